/*
 * check.go, part of pseudogen.
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

package pseudogen

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rmera/pseudogen/eos"
	"github.com/rmera/pseudogen/eosplot"
	"github.com/rmera/pseudogen/siesta"
	"github.com/rmera/pseudogen/workspace"
)

//CheckDir is the directory of a workspace where Check writes its results.
const CheckDir = "check"

//CheckPoints is the number of samples the check fit uses.
const CheckPoints = 7

//Samples reads the per-atom energy samples of the bulk calculations in the workspace ws,
//sorted by volume. Calculations without a result are skipped.
func (E *Evaluator) Samples(ws *workspace.Workspace) ([]eos.Point, error) {
	alats, err := ws.LatticeConstants()
	if err != nil {
		return nil, err
	}
	nat := float64(E.conf.NAtoms())
	var pts []eos.Point
	for _, alat := range alats {
		name := filepath.Join(siesta.AlatDir(alat), E.conf.Element+".out")
		v, e, err := readEnergy(ws, name)
		if errors.Is(err, siesta.ErrNoResult) || errors.Is(err, fs.ErrNotExist) {
			E.log.Debug("no energy, point dropped", "file", name, "err", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		pts = append(pts, eos.Point{V: v / nat, E: e / nat})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].V < pts[j].V })
	return pts, nil
}

func readEnergy(ws *workspace.Workspace, name string) (volume, energy float64, err error) {
	r, err := ws.OpenFile(name)
	if err != nil {
		return 0, 0, err
	}
	defer r.Close()
	return siesta.ReadEnergy(r)
}

//Check recomputes the Delta factor of the workspace in dir from its bulk calculations, in
//the symmetric mode. If there are not exactly 7 samples, a parabola fitted to them gives
//the energies at 7 volumes around the equilibrium one. The samples, the points used for
//the fit and the results are written to the check directory of the workspace, together
//with a copy of the pseudopotential.
func (E *Evaluator) Check(dir string) (*Evaluation, error) {
	ws, err := workspace.Open(dir)
	if err != nil {
		return nil, err
	}
	ev := &Evaluation{ID: ws.ID(), Dir: ws.Path()}
	if ev.Points, err = E.Samples(ws); err != nil {
		return ev, err
	}
	fitted := ev.Points
	if len(fitted) != CheckPoints {
		fitted, err = eos.Resample(ev.Points, eos.Volumes(E.conf.EquilVolume, CheckPoints))
		if err != nil {
			return ev, err
		}
	}
	if ev.Fit, err = eos.BirchMurnaghan(fitted); err != nil {
		return ev, err
	}
	if ev.Delta, err = eos.Delta(ev.Fit, E.ref, false); err != nil {
		return ev, err
	}

	out := ws.Join(CheckDir)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return ev, err
	}
	psfs, err := filepath.Glob(ws.Join("*.psf"))
	if err != nil {
		return ev, err
	}
	for _, psf := range psfs {
		if err := copyFile(psf, filepath.Join(out, filepath.Base(psf))); err != nil {
			return ev, err
		}
	}
	if err := writePoints(filepath.Join(out, "energies_original.txt"), ev.Points); err != nil {
		return ev, err
	}
	if err := writePoints(filepath.Join(out, "energies_BM.txt"), fitted); err != nil {
		return ev, err
	}
	bp, err := os.Create(filepath.Join(out, "BP.dat"))
	if err != nil {
		return ev, err
	}
	defer bp.Close()
	el := E.conf.Element
	fmt.Fprintf(bp, "Our data: %s %.6f %.6f %.6f\n", el, ev.Fit.V0, ev.Fit.B0, ev.Fit.B1)
	fmt.Fprintf(bp, "Reference data: %s %.6f %.6f %.6f\n", el, E.ref.V0, E.ref.B0, E.ref.B1)
	fmt.Fprintf(bp, "Delta factor: %.6f %.6f\n", ev.Delta.Delta, ev.Delta.Rel)
	E.log.Info("check", "id", ev.ID, "points", len(ev.Points), "v0", ev.Fit.V0, "b0", ev.Fit.B0, "b1", ev.Fit.B1, "delta", ev.Delta.Delta, "delta_rel", ev.Delta.Rel)
	return ev, bp.Close()
}

//Energies fits the samples of the workspace in dir, computes the symmetric Delta factor
//and plots the samples with the fit to energies.png in the workspace.
func (E *Evaluator) Energies(dir string) (*Evaluation, error) {
	ws, err := workspace.Open(dir)
	if err != nil {
		return nil, err
	}
	ev := &Evaluation{ID: ws.ID(), Dir: ws.Path()}
	if ev.Points, err = E.Samples(ws); err != nil {
		return ev, err
	}
	if ev.Fit, err = eos.BirchMurnaghan(ev.Points); err != nil {
		return ev, err
	}
	if ev.Delta, err = eos.Delta(ev.Fit, E.ref, false); err != nil {
		return ev, err
	}
	return ev, eosplot.Save(ev.Points, &ev.Fit, E.conf.Element+" "+ev.ID, ws.Join(PlotName))
}

//writePoints writes one "volume energy" line per point.
func writePoints(name string, pts []eos.Point) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, p := range pts {
		fmt.Fprintf(w, "%.18e %.18e\n", p.V, p.E)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
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
