/*
 * evaluator.go, part of pseudogen.
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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rmera/pseudogen/atom"
	"github.com/rmera/pseudogen/config"
	"github.com/rmera/pseudogen/eos"
	"github.com/rmera/pseudogen/eosplot"
	"github.com/rmera/pseudogen/logs"
	"github.com/rmera/pseudogen/minimize"
	"github.com/rmera/pseudogen/siesta"
	"github.com/rmera/pseudogen/workspace"
)

//PlotName is the name of the energy plot written to each workspace.
const PlotName = "energies.png"

// Evaluator runs the whole chain for a set of radii: pseudopotential
// generation and tests with ATOM, bulk calculations with SIESTA, the
// equation of state fit and the Delta factor against the reference.
// Each evaluation runs in its own workspace, so different evaluators
// (or calls) can run at the same time.
type Evaluator struct {
	conf  *config.Config
	ref   eos.Params
	alats []float64
	tmpl  string
	reg   *logs.Registry
	log   *slog.Logger
}

//NewEvaluator checks C, reads the reference data and the SIESTA template, and returns an
//evaluator that logs to the logger of the element in reg. reg can be nil.
func NewEvaluator(C *config.Config, reg *logs.Registry) (*Evaluator, error) {
	if err := C.Check(); err != nil {
		return nil, err
	}
	refs, err := eos.ReadReferenceFile(C.Reference)
	if err != nil {
		return nil, fmt.Errorf("pseudogen: reading reference: %w", err)
	}
	ref, err := refs.Get(C.Element)
	if err != nil {
		return nil, fmt.Errorf("pseudogen: %s: %w", C.Element, err)
	}
	alats, err := C.LatticeConstants()
	if err != nil {
		return nil, fmt.Errorf("pseudogen: %w", err)
	}
	tmpl, err := os.ReadFile(C.Siesta.Template)
	if err != nil {
		return nil, fmt.Errorf("pseudogen: reading SIESTA template: %w", err)
	}
	if err := siesta.NewHandle(C.SiestaCalc()).SetTemplate(string(tmpl)); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = logs.Discard()
	}
	return &Evaluator{conf: C, ref: ref, alats: alats, tmpl: string(tmpl), reg: reg, log: reg.Get(C.Element)}, nil
}

//Reference returns the reference equation of state of the element.
func (E *Evaluator) Reference() eos.Params { return E.ref }

//LatticeConstants returns the lattice constants of the bulk calculations.
func (E *Evaluator) LatticeConstants() []float64 {
	return append([]float64(nil), E.alats...)
}

// Evaluation is the outcome of one evaluation. Errors are given in Ry,
// the Delta factor in meV/atom.
type Evaluation struct {
	ID          string
	Dir         string
	Radii       []float64
	GroundState float64 //RSS of the eigenvalue differences of the generation
	TestMean    float64
	TestMax     float64
	Points      []eos.Point //per-atom samples
	Fit         eos.Params
	Delta       eos.DeltaResult
}

func (ev *Evaluation) String() string {
	return fmt.Sprintf("%s radii: %v ground state: %.6f tests: %.6f/%.6f fit: %s delta: %s", ev.ID, ev.Radii, ev.GroundState, ev.TestMax, ev.TestMean, ev.Fit, ev.Delta)
}

//Evaluate runs the calculations for radii (s, p, d, f and core) in a new workspace. The
//returned evaluation holds whatever was obtained before an error.
func (E *Evaluator) Evaluate(ctx context.Context, radii []float64) (*Evaluation, error) {
	C := E.conf
	if len(radii) != config.NRadii {
		return nil, fmt.Errorf("%w: %d radii (s, p, d, f, core) needed, got %d", atom.ErrNoRadii, config.NRadii, len(radii))
	}
	ws, err := workspace.New(C.Root, C.Element)
	if err != nil {
		return nil, err
	}
	ev := &Evaluation{ID: ws.ID(), Dir: ws.Path(), Radii: append([]float64(nil), radii...)}
	log := E.log.With("id", ev.ID)
	log.Debug("workspace created", "dir", ev.Dir)

	calc := C.AtomCalc()
	prog := C.AtomProgram()
	pg := atom.NewGenerationHandle(calc, prog)
	pg.SetDir(ws.Path())
	for _, el := range config.Occupations(C.Electrons) {
		if err := pg.AddElectrons(el); err != nil {
			return ev, err
		}
	}
	if err := pg.SetRadii(radii...); err != nil {
		return ev, err
	}
	if err := pg.Run(ctx); err != nil {
		return ev, err
	}
	if ev.GroundState, err = pg.EigenvalueError(); err != nil {
		return ev, err
	}

	pt := atom.NewTestHandle(calc, prog)
	pt.SetDir(ws.Path())
	for _, conf := range C.Configs {
		if err := pt.AddConfiguration(config.Occupations(conf)); err != nil {
			return ev, err
		}
	}
	if err := pt.Run(ctx); err != nil {
		return ev, err
	}
	if ev.TestMean, ev.TestMax, err = pt.Errors(); err != nil {
		return ev, err
	}

	sh := siesta.NewHandle(C.SiestaCalc())
	sh.SetCommand(C.Siesta.Command, C.Siesta.MPI...)
	if err := sh.SetTemplate(E.tmpl); err != nil {
		return ev, err
	}
	sh.SetPseudo(ws.Join(pg.PSFFile()))
	nat := float64(C.NAtoms())
	var archive []string
	for _, alat := range E.alats {
		if err := sh.BuildInput(ws.Path(), alat); err != nil {
			return ev, err
		}
		if err := sh.Run(ctx, ws.Path(), alat); err != nil {
			if ctx.Err() != nil {
				return ev, ctx.Err()
			}
			log.Warn("SIESTA failed", "alat", alat, "err", err)
		}
		v, e, err := sh.Energy(ws.Path(), alat)
		if errors.Is(err, siesta.ErrNoResult) {
			log.Debug("no energy, point dropped", "alat", alat, "err", err)
			continue
		}
		if err != nil {
			return ev, err
		}
		ev.Points = append(ev.Points, eos.Point{V: v / nat, E: e / nat})
		dir := siesta.AlatDir(alat)
		archive = append(archive, filepath.Join(dir, sh.Name()+".out"), filepath.Join(dir, sh.Name()+".err"))
	}

	if ev.Fit, err = eos.BirchMurnaghan(ev.Points); err != nil {
		return ev, err
	}
	if ev.Delta, err = eos.Delta(ev.Fit, E.ref, C.Delta.Asymmetric); err != nil {
		return ev, err
	}
	log.Info("evaluation",
		"radii", ev.Radii,
		"ground_state", ev.GroundState,
		"test_max", ev.TestMax,
		"test_mean", ev.TestMean,
		"v0", ev.Fit.V0,
		"b0", ev.Fit.B0,
		"b1", ev.Fit.B1,
		"delta", ev.Delta.Delta,
		"delta_rel", ev.Delta.Rel,
		"delta_norm", ev.Delta.Norm,
	)
	if C.Output.Plot {
		if err := eosplot.Save(ev.Points, &ev.Fit, C.Element+" "+ev.ID, ws.Join(PlotName)); err != nil {
			log.Warn("plot not saved", "err", err)
		}
	}
	if C.Output.Compress {
		archive = append(archive, filepath.Join(pg.Name(), "OUT"), filepath.Join(pt.OutDir(), "OUT"))
		if err := ws.Archive(archive...); err != nil {
			log.Warn("outputs not archived", "err", err)
		}
	}
	return ev, nil
}

//Penalized reports whether err makes an evaluation fail without stopping a minimization:
//a failed ATOM run or unreadable ATOM output, too few SIESTA results, or an equation of
//state without a minimum or a valid Delta factor.
func Penalized(err error) bool {
	var aerr atom.Error
	return errors.Is(err, eos.ErrTooFewPoints) ||
		errors.Is(err, eos.ErrNoMinimum) ||
		errors.Is(err, eos.ErrDomain) ||
		errors.As(err, &aerr)
}

//Objective returns the function minimized over the radii: the Delta factor of an
//evaluation, or the configured penalty if the evaluation failed in a way Penalized
//accepts. Other errors, and the end of ctx, stop the minimization.
func (E *Evaluator) Objective(ctx context.Context) minimize.Func {
	return func(radii []float64) (float64, error) {
		ev, err := E.Evaluate(ctx, radii)
		if err == nil {
			return ev.Delta.Delta, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if !Penalized(err) {
			return 0, err
		}
		attrs := []any{"radii", radii, "penalty", E.conf.Delta.Penalty, "err", err}
		if ev != nil {
			attrs = append(attrs, "id", ev.ID)
		}
		var perr Error
		if errors.As(err, &perr) {
			attrs = append(attrs, "trail", perr.Decorate(""), "file", perr.FileName())
		}
		E.log.Warn("evaluation failed", attrs...)
		return E.conf.Delta.Penalty, nil
	}
}

//Minimize searches the radii that minimize the Delta factor, starting from x0. The
//configured radii after the first len(x0) are kept constant.
func (E *Evaluator) Minimize(ctx context.Context, x0 []float64) (*minimize.Result, error) {
	if len(x0) == 0 || len(x0) > config.NRadii {
		return nil, fmt.Errorf("pseudogen: between 1 and %d free radii needed, got %d", config.NRadii, len(x0))
	}
	consts := append([]float64(nil), E.conf.Radii[len(x0):]...)
	s := E.conf.MinimizeSettings()
	s.Log = E.reg.Get("minimize")
	res, err := minimize.Minimize(ctx, E.Objective(ctx), x0, consts, s)
	if res != nil {
		E.log.Info("minimization finished", "radii", res.Full, "delta", res.F, "status", res.Status.String(), "evaluations", res.FuncEvaluations)
	}
	return res, err
}
