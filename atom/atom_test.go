/*
 * atom_test.go, part of pseudogen.
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

package atom

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var silicon = Calc{Element: "Si", NCore: 3, NVal: 2}

func TestPyFloat(Te *testing.T) {
	cases := []struct {
		v     float64
		width int
		prec  int
		want  string
	}{
		{2, 10, 3, "       2.0"},
		{0, 10, 5, "       0.0"},
		{1.9, 10, 5, "       1.9"},
		{0.5, 9, 3, "      0.5"},
		{2.0, 9, 3, "      2.0"},
		{1.23456, 10, 3, "      1.23"},
		{123456, 10, 3, "  1.23e+05"},
		{1e-5, 10, 3, "     1e-05"},
	}
	for _, c := range cases {
		assert.Equal(Te, c.want, pyFloat(c.v, c.width, c.prec), "%g", c.v)
	}
}

func TestAllElectronDeck(Te *testing.T) {
	ae := NewAllElectronHandle(silicon, Program{})
	require.NoError(Te, ae.AddElectrons(Occupation{2}))
	require.NoError(Te, ae.AddElectrons(Occupation{2}))
	deck, err := ae.BuildInput()
	require.NoError(Te, err)
	want := strings.Join([]string{
		"#",
		fmt.Sprintf("   ae %-49s", "Si all-electron"),
		"   Si   ca ",
		"         0",
		"    3    2",
		"    3    0       2.0",
		"    3    1       2.0",
		"",
	}, "\n")
	assert.Equal(Te, want, deck)
	assert.Equal(Te, "Si.ca.ae", ae.Name())
}

func TestAllElectronSpinPolarized(Te *testing.T) {
	c := silicon
	c.SpinPolarized = true
	c.XC = "pb"
	ae := NewAllElectronHandle(c, Program{})
	assert.ErrorIs(Te, ae.AddElectrons(Occupation{2}), ErrBadOccupation)
	require.NoError(Te, ae.AddElectrons(Occupation{1, 1}))
	require.NoError(Te, ae.AddElectrons(Occupation{1.5, 0.5}))
	assert.ErrorIs(Te, ae.AddElectrons(Occupation{1, 0}), ErrTooManyElectrons)
	deck, err := ae.BuildInput()
	require.NoError(Te, err)
	lines := strings.Split(deck, "\n")
	assert.Equal(Te, "   Si   pbr", lines[2])
	assert.Equal(Te, "    3    0       1.0       1.0", lines[5])
	assert.Equal(Te, "    3    1       1.5       0.5", lines[6])
}

func TestGenerationDeck(Te *testing.T) {
	pg := NewGenerationHandle(silicon, Program{})
	_, err := pg.BuildInput()
	assert.ErrorIs(Te, err, ErrMissingElectrons)
	require.NoError(Te, pg.AddElectrons(Occupation{2}))
	require.NoError(Te, pg.AddElectrons(Occupation{2}))
	_, err = pg.BuildInput()
	assert.ErrorIs(Te, err, ErrNoRadii)
	assert.ErrorIs(Te, pg.SetRadii(1.9, 1.9, 1.9, 1.9), ErrNoRadii)
	require.NoError(Te, pg.SetRadii(1.9, 1.9, 1.9, 1.9, 1.5))
	deck, err := pg.BuildInput()
	require.NoError(Te, err)
	want := strings.Join([]string{
		"#",
		fmt.Sprintf("   pg %-49s", "Si pseudopotential generation"),
		"        tm2      2.0",
		"   Si   ca ",
		"         0",
		"    3    4",
		"    3    0       2.0",
		"    3    1       2.0",
		"    3    2       0.0",
		"    4    3       0.0",
		"       1.9       1.9       1.9       1.9       0.0       1.5",
		"",
	}, "\n")
	assert.Equal(Te, want, deck)
	assert.Equal(Te, "Si.ca.pg.psf", pg.PSFFile())

	c := silicon
	c.Core = true
	assert.Equal(Te, "Si.ca.pe.vps", NewGenerationHandle(c, Program{}).VPSFile())
}

func TestTestDeck(Te *testing.T) {
	pt := NewTestHandle(silicon, Program{})
	assert.ErrorIs(Te, pt.AddConfiguration(nil), ErrMissingElectrons)
	require.NoError(Te, pt.AddConfiguration([]Occupation{{2}, {2}}))
	require.NoError(Te, pt.AddConfiguration([]Occupation{{2}, {1}, {1}}))
	deck, err := pt.BuildInput()
	require.NoError(Te, err)
	assert.Equal(Te, 2, strings.Count(deck, "   ae Si all-electron"))
	assert.Equal(Te, 2, strings.Count(deck, "   pt Si all-electron"))
	assert.Less(Te, strings.LastIndex(deck, "   ae "), strings.Index(deck, "   pt "))
	assert.Contains(Te, deck, "    3    3\n    3    0       2.0\n    3    1       1.0\n    4    0       1.0\n")
	assert.Equal(Te, "Si.ca.pt-Si.ca.pg", pt.OutDir())

	pt.SetDir(Te.TempDir())
	err = pt.Run(context.Background())
	assert.ErrorIs(Te, err, ErrNoPseudo)
	var aerr Error
	require.True(Te, errors.As(err, &aerr))
	assert.Equal(Te, NoOutput, aerr.message)
}

const eigenOut = `
 ATM3.4  Si ca  &v&d
   nl    s      occ         eigenvalue    kinetic energy      pot energy
   3s   0.0   2.0000      -0.79637      0.55888      -2.14726  &v
   3p   0.0   2.0000      -0.30162      0.43154      -1.76210  &v
 ----------------------------------------------------------  &v
   3s   0.0   2.0000      -0.79600      0.55800      -2.14700  &v
   3p   0.0   2.0000      -0.30200      0.43100      -1.76200  &v
`

func TestReadEigenvalues(Te *testing.T) {
	ae, ps, err := ReadEigenvalues(strings.NewReader(eigenOut))
	require.NoError(Te, err)
	require.Len(Te, ae, 2)
	require.Len(Te, ps, 2)
	assert.Equal(Te, "3p", ae[1].Label)
	assert.Equal(Te, -0.79637, ae[0].Eigenvalue)
	assert.Equal(Te, 2.0, ps[1].Occupation)
	assert.Equal(Te, -1.762, ps[1].Potential)
	rss, err := EigenvalueRSS(ae, ps)
	require.NoError(Te, err)
	want := mat.Norm(mat.NewVecDense(2, []float64{-0.79637 + 0.79600, -0.30162 + 0.30200}), 2)
	assert.InDelta(Te, want, rss, 1e-12)

	_, err = EigenvalueRSS(ae, ps[:1])
	var rerr Error
	require.True(Te, errors.As(err, &rerr), "got %v", err)
	assert.Equal(Te, WrongFormat, rerr.message)

	_, _, err = ReadEigenvalues(strings.NewReader("nothing here\n"))
	var aerr Error
	require.True(Te, errors.As(err, &aerr))
	assert.Equal(Te, WrongFormat, aerr.message)
	assert.True(Te, aerr.Critical())
}

const excitationOut = `
 &d total energy differences in series
 &d        1         2
 &d  1    0.0000
 &d  2    0.5000    0.0000
 &v this line is ignored
 &d  total energy differences, pseudopotential
 &d        1         2
 &d  1    0.0000
 &d  2    0.5010    0.0000
`

func TestReadExcitations(Te *testing.T) {
	ae, ps, err := ReadExcitations(strings.NewReader(excitationOut), 2)
	require.NoError(Te, err)
	assert.Equal(Te, 0.5, ae.At(0, 1))
	assert.Equal(Te, 0.5, ae.At(1, 0))
	assert.Equal(Te, 0.501, ps.At(1, 0))
	mean, maxErr := TransferabilityErrors(ae, ps)
	assert.InDelta(Te, 0.001, mean, 1e-12)
	assert.InDelta(Te, 0.001, maxErr, 1e-12)

	_, _, err = ReadExcitations(strings.NewReader(excitationOut), 1)
	assert.Error(Te, err)
}

func TestTransferabilityErrors(Te *testing.T) {
	ae := mat.NewDense(3, 3, []float64{
		0, 1, 2,
		1, 0, 3,
		2, 3, 0,
	})
	ps := mat.NewDense(3, 3, []float64{
		0, 1.1, 2,
		1.1, 0, 2.7,
		2, 2.7, 0,
	})
	mean, maxErr := TransferabilityErrors(ae, ps)
	assert.InDelta(Te, (0.1+0.3)*2/6, mean, 1e-12)
	assert.InDelta(Te, 0.3, maxErr, 1e-12)
}

//fakeUtils writes an executable pg.sh into a new directory. The script records its
//arguments and environment and writes a small OUT file.
func fakeUtils(Te *testing.T) string {
	if _, err := exec.LookPath("sh"); err != nil {
		Te.Skip("no sh available")
	}
	dir := Te.TempDir()
	script := `#!/bin/sh
name=$(basename "$1" .inp)
mkdir -p "$name"
echo "$ATOM_PROGRAM $*" > args.txt
cat > "$name/OUT" <<EOF
 &v header
   3s   0.0   2.0000   -0.5700   0.5   -2.1  &v
   3p   0.0   2.0000   -0.2100   0.4   -1.7  &v
 ------  &v
   3s   0.0   2.0000   -0.5650   0.5   -2.1  &v
   3p   0.0   2.0000   -0.2130   0.4   -1.7  &v
EOF
touch "$name.psf" "$name.vps"
`
	require.NoError(Te, os.WriteFile(filepath.Join(dir, "pg.sh"), []byte(script), 0o755))
	return dir
}

func TestGenerationRun(Te *testing.T) {
	utils := fakeUtils(Te)
	work := Te.TempDir()
	pg := NewGenerationHandle(silicon, Program{Command: "/opt/atom", Utils: utils})
	pg.SetDir(work)
	require.NoError(Te, pg.AddElectrons(Occupation{2}))
	require.NoError(Te, pg.AddElectrons(Occupation{2}))
	require.NoError(Te, pg.SetRadii(1.9, 1.9, 1.9, 1.9, 0))
	require.NoError(Te, pg.Run(context.Background()))

	args, err := os.ReadFile(filepath.Join(work, "args.txt"))
	require.NoError(Te, err)
	assert.Equal(Te, "/opt/atom Si.ca.pg.inp\n", string(args))
	assert.FileExists(Te, filepath.Join(work, "Si.ca.pg.inp"))
	assert.FileExists(Te, filepath.Join(work, pg.PSFFile()))

	rss, err := pg.EigenvalueError()
	require.NoError(Te, err)
	assert.InDelta(Te, 0.005830951894845301, rss, 1e-12)
}

func TestRunFailure(Te *testing.T) {
	pg := NewGenerationHandle(silicon, Program{Utils: Te.TempDir()})
	pg.SetDir(Te.TempDir())
	require.NoError(Te, pg.AddElectrons(Occupation{2}))
	require.NoError(Te, pg.AddElectrons(Occupation{2}))
	require.NoError(Te, pg.SetRadii(1.9, 1.9, 1.9, 1.9, 0))
	err := pg.Run(context.Background())
	var aerr Error
	require.True(Te, errors.As(err, &aerr), "got %v", err)
	assert.Equal(Te, NotRunning, aerr.message)

	_, err = pg.EigenvalueError()
	require.True(Te, errors.As(err, &aerr))
	assert.Equal(Te, NoOutput, aerr.message)
	assert.ErrorIs(Te, err, os.ErrNotExist)
}

func TestErrorTrail(Te *testing.T) {
	err := decorate(Error{message: NoOutput, filename: "OUT", deco: []string{"ReadEigenvalues"}}, "Eigenvalues")
	var aerr Error
	require.True(Te, errors.As(err, &aerr))
	assert.Equal(Te, []string{"ReadEigenvalues", "Eigenvalues"}, aerr.Decorate(""))
	assert.Equal(Te, []string{"ReadEigenvalues", "Eigenvalues", "Run"}, aerr.Decorate("Run"))
	assert.Equal(Te, []string{"ReadEigenvalues", "Eigenvalues"}, aerr.Decorate(""))
	assert.Equal(Te, "OUT", aerr.FileName())
}
