/*
 * pt.go, part of pseudogen.
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
	"path/filepath"
	"strings"
)

//ErrNoPseudo is returned when a test is run before the pseudopotential was generated.
var ErrNoPseudo = errors.New("atom: pseudopotential file not found")

// TestHandle runs the transferability tests of a pseudopotential: the
// total energies of several electronic configurations, all-electron
// and with the pseudopotential.
type TestHandle struct {
	calc    Calc
	prog    Program
	configs []*AllElectronHandle
	dir     string
}

//NewTestHandle returns a handle to test the pseudopotential generated for the element in c.
func NewTestHandle(c Calc, p Program) *TestHandle {
	c.SetDefaults()
	return &TestHandle{calc: c, prog: p}
}

//SetDir sets the directory where the tests run. It must contain the pseudopotential.
func (T *TestHandle) SetDir(dir string) {
	T.dir = dir
}

//Name returns the base name of the input.
func (T *TestHandle) Name() string {
	return T.calc.name("pt")
}

//PseudoName returns the base name of the tested pseudopotential.
func (T *TestHandle) PseudoName() string {
	return T.calc.name(T.calc.PPType())
}

//OutDir returns the name of the directory ATOM writes the test results to.
func (T *TestHandle) OutDir() string {
	return T.Name() + "-" + T.PseudoName()
}

//AddConfiguration adds an electronic configuration to be tested, one occupation per valence orbital.
func (T *TestHandle) AddConfiguration(electrons []Occupation) error {
	if len(electrons) == 0 {
		return fmt.Errorf("%w: empty test configuration", ErrMissingElectrons)
	}
	conf := newConfiguration(T.calc, T.prog, len(electrons))
	for _, el := range electrons {
		if err := conf.AddElectrons(el); err != nil {
			return err
		}
	}
	T.configs = append(T.configs, conf)
	return nil
}

//BuildInput returns the input: the all-electron decks of every configuration,
//followed by the same decks for the pseudopotential.
func (T *TestHandle) BuildInput() (string, error) {
	var b strings.Builder
	for _, calcType := range []string{"ae", "pt"} {
		for _, conf := range T.configs {
			d, err := conf.deck(calcType)
			if err != nil {
				return "", err
			}
			b.WriteString(d)
		}
	}
	return b.String(), nil
}

//Run writes the input and runs pt.sh on it and the pseudopotential.
func (T *TestHandle) Run(ctx context.Context) error {
	vps := T.PseudoName() + ".vps"
	if _, err := os.Stat(filepath.Join(T.dir, vps)); err != nil {
		return Error{message: NoOutput, filename: vps, deco: []string{"Run"}, critical: true, err: ErrNoPseudo}
	}
	deck, err := T.BuildInput()
	if err != nil {
		return err
	}
	if err := removeOld(filepath.Join(T.dir, T.OutDir())); err != nil {
		return err
	}
	if err := writeInput(T.dir, T.Name()+".inp", deck); err != nil {
		return err
	}
	return T.prog.run(ctx, T.dir, T.Name()+".log", "pt.sh", T.Name()+".inp", vps)
}

//Errors reads the excitation energies of a finished test and returns the mean and the maximum
//absolute difference between the all-electron and pseudopotential values, in Ry.
func (T *TestHandle) Errors() (mean, maxErr float64, err error) {
	n := len(T.configs)
	if n < 2 {
		return 0, 0, fmt.Errorf("atom: at least 2 test configurations needed, got %d", n)
	}
	name := filepath.Join(T.dir, T.OutDir(), "OUT")
	f, err := os.Open(name)
	if err != nil {
		return 0, 0, Error{message: NoOutput, filename: name, deco: []string{"Errors"}, critical: true, err: err}
	}
	defer f.Close()
	ae, ps, err := ReadExcitations(f, n)
	if err != nil {
		return 0, 0, decorate(err, "Errors")
	}
	mean, maxErr = TransferabilityErrors(ae, ps)
	return mean, maxErr, nil
}
