/*
 * ae.go, part of pseudogen.
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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AllElectronHandle sets and runs an all-electron ATOM calculation.
// The same decks, with calculation type "pt", are the test
// configurations of a TestHandle.
type AllElectronHandle struct {
	calc      Calc
	prog      Program
	title     string
	nval      int
	electrons []Occupation
	dir       string
}

//NewAllElectronHandle returns a handle for an all-electron calculation of the element in c,
//with c.NVal valence orbitals.
func NewAllElectronHandle(c Calc, p Program) *AllElectronHandle {
	return newConfiguration(c, p, c.NVal)
}

func newConfiguration(c Calc, p Program, nval int) *AllElectronHandle {
	c.SetDefaults()
	return &AllElectronHandle{calc: c, prog: p, title: c.Element + " all-electron", nval: nval}
}

//SetDir sets the directory where the calculation runs.
func (A *AllElectronHandle) SetDir(dir string) {
	A.dir = dir
}

//SetTitle sets the title line of the deck.
func (A *AllElectronHandle) SetTitle(title string) {
	A.title = title
}

//Name returns the base name of the input and of the calculation directory.
func (A *AllElectronHandle) Name() string {
	return A.calc.name("ae")
}

//AddElectrons adds the filling of the next valence orbital.
func (A *AllElectronHandle) AddElectrons(o Occupation) error {
	if len(A.electrons) == A.nval {
		return ErrTooManyElectrons
	}
	if err := A.calc.check(o); err != nil {
		return err
	}
	A.electrons = append(A.electrons, o)
	return nil
}

func (A *AllElectronHandle) deck(calcType string) (string, error) {
	c := A.calc
	if n := len(A.electrons); n != A.nval {
		return "", fmt.Errorf("%w: %d more valence orbital configurations must be added", ErrMissingElectrons, A.nval-n)
	}
	if c.NCore+A.nval > len(Orbitals) {
		return "", fmt.Errorf("atom: %d core and %d valence orbitals exceed the orbital table", c.NCore, A.nval)
	}
	var b strings.Builder
	b.WriteString("#\n")
	fmt.Fprintf(&b, "   %-2s %-49s\n", calcType, A.title)
	fmt.Fprintf(&b, "   %-2s   %-2s%-1s\n", c.Element, c.XC, c.xcOpt())
	b.WriteString("         0\n")
	fmt.Fprintf(&b, "%5d%5d\n", c.NCore, A.nval)
	for i, el := range A.electrons {
		orb := Orbitals[c.NCore+i]
		b.WriteString(occupationLine(orb[0], orb[1], el))
	}
	return b.String(), nil
}

//BuildInput returns the ATOM input deck for the calculation.
func (A *AllElectronHandle) BuildInput() (string, error) {
	return A.deck("ae")
}

//Run writes the input and runs ae.sh on it. A previous calculation directory with the
//same name is removed.
func (A *AllElectronHandle) Run(ctx context.Context) error {
	deck, err := A.BuildInput()
	if err != nil {
		return err
	}
	if err := removeOld(filepath.Join(A.dir, A.Name())); err != nil {
		return err
	}
	if err := writeInput(A.dir, A.Name()+".inp", deck); err != nil {
		return err
	}
	return A.prog.run(ctx, A.dir, A.Name()+".log", "ae.sh", A.Name()+".inp")
}

//Eigenvalues reads the orbitals of a finished calculation.
func (A *AllElectronHandle) Eigenvalues() ([]Orbital, error) {
	name := filepath.Join(A.dir, A.Name(), "OUT")
	f, err := os.Open(name)
	if err != nil {
		return nil, Error{message: NoOutput, filename: name, deco: []string{"Eigenvalues"}, critical: true, err: err}
	}
	defer f.Close()
	ae, _, err := ReadEigenvalues(f)
	if err != nil {
		return nil, decorate(err, "Eigenvalues")
	}
	return ae, nil
}
