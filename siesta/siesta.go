/*
 * siesta.go, part of pseudogen.
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

package siesta

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"gonum.org/v1/gonum/mat"
)

// Calc holds the settings of the bulk calculations for one element.
type Calc struct {
	Element      string
	Title        string
	XCFunctional string     //the XC.functional fdf key, e.g. GGA
	XC           string     //the XC.authors fdf key, e.g. PBE
	Vectors      mat.Matrix //3x3 lattice vectors in units of the lattice constant
	NAtoms       int        //atoms per cell
}

// Handle sets and runs SIESTA calculations at different lattice
// constants, each in its own directory.
type Handle struct {
	calc    Calc
	command string
	mpi     []string
	tmpl    *template.Template
	psf     string
}

//NewHandle returns a handle for the calculations in c, with the default command.
func NewHandle(c Calc) *Handle {
	H := &Handle{calc: c}
	H.SetDefaults()
	return H
}

//SetDefaults sets the command from the SIESTA_EXEC environment variable, or to "siesta"
//if that is empty. The default title is the element symbol.
func (H *Handle) SetDefaults() {
	H.command = os.Getenv("SIESTA_EXEC")
	if H.command == "" {
		H.command = "siesta"
	}
	if H.calc.Title == "" {
		H.calc.Title = H.calc.Element
	}
}

//SetCommand sets the SIESTA executable and an optional launcher prefix, such as mpirun -np 4.
func (H *Handle) SetCommand(command string, mpi ...string) {
	H.command = command
	H.mpi = mpi
}

//Command returns the full command line used to run SIESTA.
func (H *Handle) Command() []string {
	return append(append([]string(nil), H.mpi...), H.command)
}

//SetTemplate parses text as the fdf input template.
func (H *Handle) SetTemplate(text string) error {
	t, err := template.New("fdf").Option("missingkey=error").Parse(text)
	if err != nil {
		return Error{message: BadTmpl, filename: "fdf", deco: []string{"SetTemplate"}, critical: true, err: err}
	}
	H.tmpl = t
	return nil
}

//LoadTemplate reads and parses the fdf input template in the file name.
func (H *Handle) LoadTemplate(name string) error {
	b, err := os.ReadFile(name)
	if err != nil {
		return Error{message: BadTmpl, filename: name, deco: []string{"LoadTemplate"}, critical: true, err: err}
	}
	return H.SetTemplate(string(b))
}

//SetPseudo sets the pseudopotential file (psf) used in the calculations.
func (H *Handle) SetPseudo(psf string) {
	H.psf = psf
}

//Name returns the base name of the input and output files.
func (H *Handle) Name() string {
	return H.calc.Element
}

//AlatDir returns the name of the directory for the calculation at lattice constant alat.
func AlatDir(alat float64) string {
	return fmt.Sprintf("%.4f", alat)
}

//InputData holds the values available to the fdf template.
type InputData struct {
	Element      string
	Title        string
	XCFunctional string
	XC           string
	Alat         float64
	Vectors      string //one tab-separated row per line
	NAtoms       int
}

func formatVectors(v mat.Matrix) string {
	if v == nil {
		return ""
	}
	r, c := v.Dims()
	rows := make([]string, r)
	for i := 0; i < r; i++ {
		fields := make([]string, c)
		for j := 0; j < c; j++ {
			fields[j] = strconv.FormatFloat(v.At(i, j), 'f', -1, 64)
		}
		rows[i] = strings.Join(fields, "\t")
	}
	return strings.Join(rows, "\n")
}

//BuildInput creates the directory for the calculation at alat inside dir, copies the
//pseudopotential to it and writes the fdf input.
func (H *Handle) BuildInput(dir string, alat float64) error {
	if H.tmpl == nil {
		return ErrNoTemplate
	}
	calcdir := filepath.Join(dir, AlatDir(alat))
	if err := os.MkdirAll(calcdir, 0o755); err != nil {
		return Error{message: CantInput, filename: calcdir, deco: []string{"BuildInput"}, critical: true, err: err}
	}
	if err := copyFile(H.psf, filepath.Join(calcdir, H.Name()+".psf")); err != nil {
		return Error{message: CantInput, filename: H.psf, deco: []string{"copyFile", "BuildInput"}, critical: true, err: err}
	}
	fdfname := filepath.Join(calcdir, H.Name()+".fdf")
	fdf, err := os.Create(fdfname)
	if err != nil {
		return Error{message: CantInput, filename: fdfname, deco: []string{"BuildInput"}, critical: true, err: err}
	}
	defer fdf.Close()
	data := InputData{
		Element:      H.calc.Element,
		Title:        H.calc.Title,
		XCFunctional: H.calc.XCFunctional,
		XC:           H.calc.XC,
		Alat:         alat,
		Vectors:      formatVectors(H.calc.Vectors),
		NAtoms:       H.calc.NAtoms,
	}
	if err := H.tmpl.Execute(fdf, data); err != nil {
		return Error{message: BadTmpl, filename: fdfname, deco: []string{"template.Execute", "BuildInput"}, critical: true, err: err}
	}
	return fdf.Close()
}

//Run runs SIESTA on the input previously built for alat in dir, with the fdf file as standard
//input. The standard output goes to El.out and the standard error to El.err.
func (H *Handle) Run(ctx context.Context, dir string, alat float64) error {
	calcdir := filepath.Join(dir, AlatDir(alat))
	in, err := os.Open(filepath.Join(calcdir, H.Name()+".fdf"))
	if err != nil {
		return Error{message: NotRunning, filename: H.Name() + ".fdf", deco: []string{"Run"}, critical: true, err: err}
	}
	defer in.Close()
	out, err := os.Create(filepath.Join(calcdir, H.Name()+".out"))
	if err != nil {
		return Error{message: CantInput, filename: H.Name() + ".out", deco: []string{"Run"}, critical: true, err: err}
	}
	defer out.Close()
	errf, err := os.Create(filepath.Join(calcdir, H.Name()+".err"))
	if err != nil {
		return Error{message: CantInput, filename: H.Name() + ".err", deco: []string{"Run"}, critical: true, err: err}
	}
	defer errf.Close()
	args := H.Command()
	command := exec.CommandContext(ctx, args[0], args[1:]...)
	command.Dir = calcdir
	command.Stdin = in
	command.Stdout = out
	command.Stderr = errf
	if err := command.Run(); err != nil {
		return Error{message: NotRunning, filename: strings.Join(args, " "), deco: []string{"exec.Run", "Run"}, critical: true, err: err}
	}
	return nil
}

//OutputFile returns the path of the SIESTA output for the calculation at alat in dir.
func (H *Handle) OutputFile(dir string, alat float64) string {
	return filepath.Join(dir, AlatDir(alat), H.Name()+".out")
}

//Energy returns the cell volume (Å^3) and the final total energy (eV) of the calculation
//at alat in dir. A missing output gives ErrNoResult.
func (H *Handle) Energy(dir string, alat float64) (volume, energy float64, err error) {
	f, err := os.Open(H.OutputFile(dir, alat))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrNoResult, err)
	}
	defer f.Close()
	return ReadEnergy(f)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
