/*
 * atom.go, part of pseudogen.
 *
 *
 * Copyright 2026 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package atom

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

//Usage errors. They signal that a handle was not completely set before running.
var (
	ErrNoRadii          = errors.New("atom: pseudopotential radii must be set")
	ErrMissingElectrons = errors.New("atom: valence orbital fillings missing")
	ErrTooManyElectrons = errors.New("atom: no valence orbitals left to fill")
	ErrBadOccupation    = errors.New("atom: occupation must have one value, or two if spin-polarized")
)

// Orbitals lists the (n, l) atomic orbitals in filling order. The valence
// orbitals of an element start at index NCore.
var Orbitals = [][2]int{
	{1, 0}, {2, 0}, {2, 1},
	{3, 0}, {3, 1}, {4, 0},
	{3, 2}, {4, 1}, {5, 0},
	{4, 2}, {5, 1}, {6, 0},
	{4, 3}, {5, 2}, {6, 1},
	{7, 0}, {5, 3}, {6, 2},
}

// Occupation is the filling of one valence orbital. It has a single
// value, or an (up, down) pair for spin-polarized calculations.
type Occupation []float64

// Calc holds the settings shared by all the ATOM calculations for
// one element.
type Calc struct {
	Element       string
	NCore         int
	NVal          int
	XC            string  //exchange-correlation tag, "ca" by default
	SpinPolarized bool    //occupations are given as up/down pairs
	Core          bool    //include non-linear core corrections ("pe" instead of "pg")
	Title         string  //title for the generation deck
	Flavor        string  //pseudopotential flavor, "tm2" by default
	PSRadius      float64 //radius for the pseudization, 2.0 by default
}

//SetDefaults fills the optional fields of C that were left empty.
func (C *Calc) SetDefaults() {
	if C.XC == "" {
		C.XC = "ca"
	}
	if C.Flavor == "" {
		C.Flavor = "tm2"
	}
	if C.PSRadius == 0 {
		C.PSRadius = 2.0
	}
}

//PPType returns the calculation type of the pseudopotential generation, "pe" with core
//corrections and "pg" without.
func (C Calc) PPType() string {
	if C.Core {
		return "pe"
	}
	return "pg"
}

func (C Calc) name(calcType string) string {
	return strings.Join([]string{C.Element, C.XC, calcType}, ".")
}

func (C Calc) xcOpt() string {
	if C.SpinPolarized {
		return "r"
	}
	return " "
}

func (C Calc) check(o Occupation) error {
	if (C.SpinPolarized && len(o) != 2) || (!C.SpinPolarized && len(o) != 1) {
		return fmt.Errorf("%w: got %v", ErrBadOccupation, []float64(o))
	}
	return nil
}

// Program locates the ATOM executable and the directory with its
// driver scripts (ae.sh, pg.sh, pt.sh).
type Program struct {
	Command string //the value of ATOM_PROGRAM
	Utils   string //the value of ATOM_UTILS_DIR
}

//NewProgram returns a Program from the ATOM_PROGRAM and ATOM_UTILS_DIR environment variables.
func NewProgram() Program {
	return Program{Command: os.Getenv("ATOM_PROGRAM"), Utils: os.Getenv("ATOM_UTILS_DIR")}
}

//run executes script from the utils directory of P in dir, with the ATOM variables set only
//in the environment of the child. The standard output and error go to logname in dir.
func (P Program) run(ctx context.Context, dir, logname, script string, args ...string) error {
	path := filepath.Join(P.Utils, script)
	logf, err := os.Create(filepath.Join(dir, logname))
	if err != nil {
		return Error{message: CantInput, filename: logname, deco: []string{"run"}, critical: true, err: err}
	}
	defer logf.Close()
	command := exec.CommandContext(ctx, path, args...)
	command.Dir = dir
	command.Env = append(os.Environ(), "ATOM_PROGRAM="+P.Command, "ATOM_UTILS_DIR="+P.Utils)
	command.Stdout = logf
	command.Stderr = logf
	if err := command.Run(); err != nil {
		return Error{message: NotRunning, filename: strings.Join(append([]string{path}, args...), " "), deco: []string{"exec.Run", "run"}, critical: true, err: err}
	}
	return nil
}

//pyFloat formats v as Python's "{:width.prec}" does for floats: the shortest of fixed and
//exponential notation with prec significant digits, always with a fractional part.
func pyFloat(v float64, width, prec int) string {
	s := strconv.FormatFloat(v, 'g', prec, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return fmt.Sprintf("%*s", width, s)
}

//occupationLine formats one orbital line of an ATOM deck.
func occupationLine(n, l int, o Occupation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%5d%5d", n, l)
	for _, v := range o {
		b.WriteString(pyFloat(v, 10, 3))
	}
	b.WriteString("\n")
	return b.String()
}

//removeOld deletes a previous calculation directory, if present.
func removeOld(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return Error{message: CantInput, filename: dir, deco: []string{"removeOld"}, critical: true, err: err}
	}
	return nil
}

//writeInput writes deck to name in dir.
func writeInput(dir, name, deck string) error {
	if err := os.WriteFile(filepath.Join(dir, name), []byte(deck), 0o644); err != nil {
		return Error{message: CantInput, filename: name, deco: []string{"writeInput"}, critical: true, err: err}
	}
	return nil
}
