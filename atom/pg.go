/*
 * pg.go, part of pseudogen.
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

// GenerationHandle generates a pseudopotential with ATOM and checks
// its eigenvalues against the all-electron ones.
type GenerationHandle struct {
	calc      Calc
	prog      Program
	electrons []Occupation
	radii     []float64
	dir       string
}

//NewGenerationHandle returns a handle for the generation of a pseudopotential for the element in c.
func NewGenerationHandle(c Calc, p Program) *GenerationHandle {
	c.SetDefaults()
	if c.Title == "" {
		c.Title = c.Element + " pseudopotential generation"
	}
	return &GenerationHandle{calc: c, prog: p}
}

//SetDir sets the directory where the calculation runs.
func (G *GenerationHandle) SetDir(dir string) {
	G.dir = dir
}

//Name returns the base name of the input, of the calculation directory
//and of the generated pseudopotential files.
func (G *GenerationHandle) Name() string {
	return G.calc.name(G.calc.PPType())
}

//PSFFile returns the name of the pseudopotential file, in the SIESTA psf format.
func (G *GenerationHandle) PSFFile() string {
	return G.Name() + ".psf"
}

//VPSFile returns the name of the binary pseudopotential file, used by the tests.
func (G *GenerationHandle) VPSFile() string {
	return G.Name() + ".vps"
}

//AddElectrons adds the filling of the next valence orbital.
func (G *GenerationHandle) AddElectrons(o Occupation) error {
	if len(G.electrons) == G.calc.NVal {
		return ErrTooManyElectrons
	}
	if err := G.calc.check(o); err != nil {
		return err
	}
	G.electrons = append(G.electrons, o)
	return nil
}

//SetRadii sets the s, p, d and f pseudization radii and the radius of the core corrections.
func (G *GenerationHandle) SetRadii(radii ...float64) error {
	if len(radii) != 5 {
		return fmt.Errorf("%w: 5 radii (s, p, d, f, core) needed, got %d", ErrNoRadii, len(radii))
	}
	G.radii = append([]float64(nil), radii...)
	return nil
}

//channels returns the four pseudopotential channels: the valence orbitals, followed by the
//next orbitals with an angular momentum not yet present.
func (G *GenerationHandle) channels() ([][2]int, error) {
	c := G.calc
	if c.NCore+c.NVal > len(Orbitals) {
		return nil, fmt.Errorf("atom: %d core and %d valence orbitals exceed the orbital table", c.NCore, c.NVal)
	}
	chans := append([][2]int(nil), Orbitals[c.NCore:c.NCore+c.NVal]...)
	ls := make(map[int]bool)
	for _, o := range chans {
		ls[o[1]] = true
	}
	for i := c.NCore + c.NVal; len(chans) < 4; i++ {
		if i >= len(Orbitals) {
			return nil, fmt.Errorf("atom: not enough orbitals to complete 4 channels for %s", c.Element)
		}
		if o := Orbitals[i]; !ls[o[1]] {
			ls[o[1]] = true
			chans = append(chans, o)
		}
	}
	return chans, nil
}

//BuildInput returns the ATOM input deck for the generation.
func (G *GenerationHandle) BuildInput() (string, error) {
	c := G.calc
	if n := len(G.electrons); n != c.NVal {
		return "", fmt.Errorf("%w: %d more valence orbital configurations must be added", ErrMissingElectrons, c.NVal-n)
	}
	if G.radii == nil {
		return "", ErrNoRadii
	}
	chans, err := G.channels()
	if err != nil {
		return "", err
	}
	empty := Occupation{0}
	if c.SpinPolarized {
		empty = Occupation{0, 0}
	}
	var b strings.Builder
	b.WriteString("#\n")
	fmt.Fprintf(&b, "   %-2s %-49s\n", c.PPType(), c.Title)
	fmt.Fprintf(&b, "        %-3s%s\n", c.Flavor, pyFloat(c.PSRadius, 9, 3))
	fmt.Fprintf(&b, "   %-2s   %-2s%-1s\n", c.Element, c.XC, c.xcOpt())
	b.WriteString("         0\n")
	fmt.Fprintf(&b, "%5d    4\n", c.NCore)
	for i, ch := range chans {
		el := empty
		if i < len(G.electrons) {
			el = G.electrons[i]
		}
		b.WriteString(occupationLine(ch[0], ch[1], el))
	}
	r := G.radii
	for _, v := range []float64{r[0], r[1], r[2], r[3], 0, r[4]} {
		b.WriteString(pyFloat(v, 10, 5))
	}
	b.WriteString("\n")
	return b.String(), nil
}

//Run writes the input and runs pg.sh on it. A previous calculation directory with the
//same name is removed.
func (G *GenerationHandle) Run(ctx context.Context) error {
	deck, err := G.BuildInput()
	if err != nil {
		return err
	}
	if err := removeOld(filepath.Join(G.dir, G.Name())); err != nil {
		return err
	}
	if err := writeInput(G.dir, G.Name()+".inp", deck); err != nil {
		return err
	}
	return G.prog.run(ctx, G.dir, G.Name()+".log", "pg.sh", G.Name()+".inp")
}

//Eigenvalues reads the all-electron and pseudopotential orbitals of a finished generation.
func (G *GenerationHandle) Eigenvalues() (ae, ps []Orbital, err error) {
	name := filepath.Join(G.dir, G.Name(), "OUT")
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, Error{message: NoOutput, filename: name, deco: []string{"Eigenvalues"}, critical: true, err: err}
	}
	defer f.Close()
	ae, ps, err = ReadEigenvalues(f)
	if err != nil {
		return nil, nil, decorate(err, "Eigenvalues")
	}
	return ae, ps, nil
}

//EigenvalueError returns the root of the sum of the squared differences between the
//all-electron and the pseudopotential eigenvalues of a finished generation, in Ry.
func (G *GenerationHandle) EigenvalueError() (float64, error) {
	ae, ps, err := G.Eigenvalues()
	if err != nil {
		return 0, err
	}
	return EigenvalueRSS(ae, ps)
}
