/*
 * pseudogen_test.go, part of pseudogen.
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

package pseudogen

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"

	"github.com/rmera/pseudogen/config"
	"github.com/rmera/pseudogen/eos"
	"github.com/rmera/pseudogen/logs"
	"github.com/rmera/pseudogen/siesta"
	"github.com/rmera/pseudogen/workspace"
)

const pgScript = `#!/bin/sh
name=$(basename "$1" .inp)
mkdir -p "$name"
cat > "$name/OUT" <<EOF
 &v header
   3s   0.0   2.0000   -0.5700   0.5   -2.1  &v
   3p   0.0   1.0000   -0.2100   0.4   -1.7  &v
 ------  &v
   3s   0.0   2.0000   -0.5650   0.5   -2.1  &v
   3p   0.0   1.0000   -0.2130   0.4   -1.7  &v
EOF
touch "$name.psf" "$name.vps"
`

const ptScript = `#!/bin/sh
out="$(basename "$1" .inp)-$(basename "$2" .vps)"
mkdir -p "$out"
cat > "$out/OUT" <<EOF
 &d total energy differences in series
 &d        1         2
 &d  1    0.0000
 &d  2    0.5000    0.0000
 &d  total energy differences, pseudopotential
 &d        1         2
 &d  1    0.0000
 &d  2    0.5010    0.0000
EOF
`

//The energies follow a Birch-Murnaghan curve with V0=16 Å^3, B0=0.5 eV/Å^3 and B1=4.5.
const siestaScript = `#!/bin/sh
awk '
/^LatticeConstant/ { a = $2 }
END {
	v = a * a * a
	x = (16 / v) ^ (2 / 3) - 1
	e = -50 + 4.5 * (x * x * x * 4.5 + x * x * (6 - 4 * (x + 1)))
	printf "outcell: Cell volume (Ang**3)        :     %.10f\n", v
	print "siesta: Final energy (eV):"
	printf "siesta:         Total =  %.12f\n", e
}'
`

const failingSiesta = `#!/bin/sh
echo "not today" >&2
exit 1
`

const fdf = `SystemLabel {{.Element}}
XC.functional {{.XCFunctional}}
XC.authors {{.XC}}
LatticeConstant {{.Alat}} Ang
NumberOfAtoms {{.NAtoms}}
%block LatticeVectors
{{.Vectors}}
%endblock LatticeVectors
`

const refB0 = 0.5 * eos.EVA32GPa

//setup writes the fake ATOM scripts, a SIESTA script with the contents script, the template
//and the reference data, and returns a configuration that uses them.
func setup(Te *testing.T, script string) *config.Config {
	for _, prog := range []string{"sh", "awk"} {
		if _, err := exec.LookPath(prog); err != nil {
			Te.Skipf("no %s available", prog)
		}
	}
	dir := Te.TempDir()
	utils := filepath.Join(dir, "utils")
	require.NoError(Te, os.Mkdir(utils, 0o755))
	require.NoError(Te, os.WriteFile(filepath.Join(utils, "pg.sh"), []byte(pgScript), 0o755))
	require.NoError(Te, os.WriteFile(filepath.Join(utils, "pt.sh"), []byte(ptScript), 0o755))
	exe := filepath.Join(dir, "siesta.sh")
	require.NoError(Te, os.WriteFile(exe, []byte(script), 0o755))
	tmpl := filepath.Join(dir, "bulk.fdf")
	require.NoError(Te, os.WriteFile(tmpl, []byte(fdf), 0o644))
	ref := filepath.Join(dir, "reference.txt")
	require.NoError(Te, os.WriteFile(ref, []byte("# element V0 B0 B1\nAl 16.0 80.1088 4.3\nSi 20.453 88.545 4.31\n"), 0o644))

	C := &config.Config{
		Element:     "Al",
		Root:        filepath.Join(dir, "runs"),
		Reference:   ref,
		EquilVolume: 16,
		Calc:        config.Calc{Lattice: "SC", NCore: 3, NVal: 2},
		Electrons:   []config.Occupation{{2}, {1}},
		Radii:       []float64{2.4, 2.8, 2.3, 2.3, 0.7},
		Configs: [][]config.Occupation{
			{{2}, {1}},
			{{1}, {2}},
		},
		Siesta: config.Siesta{Template: tmpl, Command: exe, XCF: "LDA", XC: "CA"},
		Atom:   config.Atom{Program: "/opt/atom", Utils: utils},
	}
	C.SetDefaults()
	return C
}

func newEvaluator(Te *testing.T, C *config.Config) (*Evaluator, *bytes.Buffer) {
	var buf bytes.Buffer
	E, err := NewEvaluator(C, logs.New(&buf, slog.LevelDebug))
	require.NoError(Te, err)
	return E, &buf
}

func TestNewEvaluator(Te *testing.T) {
	C := setup(Te, siestaScript)
	E, _ := newEvaluator(Te, C)
	assert.Equal(Te, eos.Params{V0: 16, B0: 80.1088, B1: 4.3}, E.Reference())
	alats := E.LatticeConstants()
	require.Len(Te, alats, 7)
	assert.InDelta(Te, 0.94*16, alats[0]*alats[0]*alats[0], 1e-9)
	assert.InDelta(Te, 16, alats[3]*alats[3]*alats[3], 1e-9)

	bad := *C
	bad.Element = "Xx"
	_, err := NewEvaluator(&bad, nil)
	assert.ErrorIs(Te, err, eos.ErrNoReference)

	bad = *C
	bad.Radii = nil
	_, err = NewEvaluator(&bad, nil)
	assert.ErrorContains(Te, err, "radii")
}

func TestEvaluate(Te *testing.T) {
	C := setup(Te, siestaScript)
	E, buf := newEvaluator(Te, C)
	ev, err := E.Evaluate(context.Background(), C.Radii)
	require.NoError(Te, err)
	assert.Equal(Te, filepath.Join(C.Root, "Al", ev.ID), ev.Dir)
	assert.Equal(Te, C.Radii, ev.Radii)
	assert.InDelta(Te, 0.005830951894845301, ev.GroundState, 1e-12)
	assert.InDelta(Te, 0.001, ev.TestMean, 1e-12)
	assert.InDelta(Te, 0.001, ev.TestMax, 1e-12)
	require.Len(Te, ev.Points, 7)
	assert.InDelta(Te, 16, ev.Fit.V0, 1e-4)
	assert.InDelta(Te, refB0, ev.Fit.B0, 1e-2)
	assert.InDelta(Te, 4.5, ev.Fit.B1, 1e-2)
	assert.InDelta(Te, -50, ev.Fit.E0, 1e-6)
	assert.Greater(Te, ev.Delta.Delta, 0.0)
	assert.NoFileExists(Te, filepath.Join(ev.Dir, PlotName))

	out := buf.String()
	assert.Contains(Te, out, "msg=evaluation")
	assert.Contains(Te, out, "id="+ev.ID)
	assert.Contains(Te, out, "logger=Al")

	_, err = E.Evaluate(context.Background(), C.Radii[:3])
	assert.Error(Te, err)
	assert.False(Te, Penalized(err))
}

func TestCheckAndEnergies(Te *testing.T) {
	C := setup(Te, siestaScript)
	C.Output.Plot = true
	C.Output.Compress = true
	E, _ := newEvaluator(Te, C)
	ev, err := E.Evaluate(context.Background(), C.Radii)
	require.NoError(Te, err)
	assert.FileExists(Te, filepath.Join(ev.Dir, PlotName))

	ws, err := workspace.Open(ev.Dir)
	require.NoError(Te, err)
	alats, err := ws.LatticeConstants()
	require.NoError(Te, err)
	require.Len(Te, alats, 7)
	for _, a := range alats {
		calc := ws.Join(siesta.AlatDir(a))
		assert.FileExists(Te, filepath.Join(calc, "Al.out"+workspace.Ext))
		assert.NoFileExists(Te, filepath.Join(calc, "Al.out"))
	}
	assert.FileExists(Te, filepath.Join(ev.Dir, "Al.ca.pg", "OUT"+workspace.Ext))

	pts, err := E.Samples(ws)
	require.NoError(Te, err)
	assert.InDeltaSlice(Te, pointVolumes(ev.Points), pointVolumes(pts), 1e-9)

	chk, err := E.Check(ev.Dir)
	require.NoError(Te, err)
	assert.InDelta(Te, ev.Delta.Delta, chk.Delta.Delta, 1e-6)
	for _, name := range []string{"BP.dat", "energies_original.txt", "energies_BM.txt", "Al.ca.pg.psf"} {
		assert.FileExists(Te, filepath.Join(ev.Dir, CheckDir, name))
	}
	bp, err := os.ReadFile(filepath.Join(ev.Dir, CheckDir, "BP.dat"))
	require.NoError(Te, err)
	assert.Contains(Te, string(bp), "Reference data: Al 16.000000 80.108800 4.300000")

	require.NoError(Te, os.Remove(filepath.Join(ev.Dir, PlotName)))
	en, err := E.Energies(ev.Dir)
	require.NoError(Te, err)
	assert.InDelta(Te, 16, en.Fit.V0, 1e-4)
	assert.FileExists(Te, filepath.Join(ev.Dir, PlotName))

	_, err = E.Check(filepath.Join(ev.Dir, "nothere"))
	assert.Error(Te, err)
}

func pointVolumes(pts []eos.Point) []float64 {
	v := make([]float64, len(pts))
	for i, p := range pts {
		v[i] = p.V
	}
	return v
}

//hashes returns the SHA-256 of every file under dir, by relative path.
func hashes(Te *testing.T, dir string) map[string]string {
	ret := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(b)
		ret[rel] = hex.EncodeToString(sum[:])
		return nil
	})
	require.NoError(Te, err)
	return ret
}

func TestConcurrentEvaluations(Te *testing.T) {
	C := setup(Te, siestaScript)
	E, _ := newEvaluator(Te, C)
	solo, err := E.Evaluate(context.Background(), C.Radii)
	require.NoError(Te, err)
	want := hashes(Te, solo.Dir)

	const n = 3
	evs := make([]*Evaluation, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			evs[i], errs[i] = E.Evaluate(context.Background(), C.Radii)
		}(i)
	}
	wg.Wait()
	ids := map[string]bool{solo.ID: true}
	for i := 0; i < n; i++ {
		require.NoError(Te, errs[i])
		assert.False(Te, ids[evs[i].ID], "repeated workspace %s", evs[i].ID)
		ids[evs[i].ID] = true
		assert.Equal(Te, solo.Delta, evs[i].Delta)
		assert.Equal(Te, want, hashes(Te, evs[i].Dir))
	}
}

func TestObjectivePenalty(Te *testing.T) {
	C := setup(Te, failingSiesta)
	E, buf := newEvaluator(Te, C)
	_, err := E.Evaluate(context.Background(), C.Radii)
	assert.ErrorIs(Te, err, eos.ErrTooFewPoints)
	assert.True(Te, Penalized(err))
	assert.Contains(Te, buf.String(), "SIESTA failed")

	obj := E.Objective(context.Background())
	v, err := obj(C.Radii)
	require.NoError(Te, err)
	assert.Equal(Te, C.Delta.Penalty, v)
	assert.Contains(Te, buf.String(), "evaluation failed")

	noatom := setup(Te, siestaScript)
	noatom.Atom.Utils = Te.TempDir()
	E, buf = newEvaluator(Te, noatom)
	v, err = E.Objective(context.Background())(noatom.Radii)
	require.NoError(Te, err)
	assert.Equal(Te, 1000.0, v)
	assert.Contains(Te, buf.String(), "trail=")

	_, err = E.Objective(context.Background())(noatom.Radii[:2])
	assert.Error(Te, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = E.Objective(ctx)(noatom.Radii)
	assert.ErrorIs(Te, err, context.Canceled)
}

//Generations that stop early: only the all-electron table, or no pseudopotential files.
const truncatedPG = `#!/bin/sh
name=$(basename "$1" .inp)
mkdir -p "$name"
cat > "$name/OUT" <<EOF
 &v header
   3s   0.0   2.0000   -0.5700   0.5   -2.1  &v
   3p   0.0   1.0000   -0.2100   0.4   -1.7  &v
EOF
touch "$name.psf" "$name.vps"
`

const noPseudoPG = `#!/bin/sh
name=$(basename "$1" .inp)
mkdir -p "$name"
cat > "$name/OUT" <<EOF
 &v header
   3s   0.0   2.0000   -0.5700   0.5   -2.1  &v
 ------  &v
   3s   0.0   2.0000   -0.5650   0.5   -2.1  &v
EOF
`

func TestBrokenGeneration(Te *testing.T) {
	for name, script := range map[string]string{"truncated": truncatedPG, "no pseudopotential": noPseudoPG} {
		C := setup(Te, siestaScript)
		require.NoError(Te, os.WriteFile(filepath.Join(C.Atom.Utils, "pg.sh"), []byte(script), 0o755))
		E, buf := newEvaluator(Te, C)
		_, err := E.Evaluate(context.Background(), C.Radii)
		require.Error(Te, err, name)
		assert.True(Te, Penalized(err), "%s: %v", name, err)

		v, err := E.Objective(context.Background())(C.Radii)
		require.NoError(Te, err, name)
		assert.Equal(Te, C.Delta.Penalty, v, name)
		assert.Contains(Te, buf.String(), "evaluation failed", name)
	}
}

func TestMinimize(Te *testing.T) {
	C := setup(Te, siestaScript)
	E, buf := newEvaluator(Te, C)
	_, err := E.Minimize(context.Background(), nil)
	assert.Error(Te, err)

	ref, err := E.Evaluate(context.Background(), C.Radii)
	require.NoError(Te, err)

	//The energies do not depend on the radii, so the gradient is zero at the start.
	res, err := E.Minimize(context.Background(), []float64{2.4})
	require.NoError(Te, err)
	assert.Equal(Te, C.Radii, res.Full)
	assert.Equal(Te, optimize.GradientThreshold, res.Status)
	assert.InDelta(Te, ref.Delta.Delta, res.F, 1e-12)
	assert.Contains(Te, buf.String(), "minimization finished")

	entries, err := os.ReadDir(filepath.Join(C.Root, "Al"))
	require.NoError(Te, err)
	assert.GreaterOrEqual(Te, len(entries), 3)
}
