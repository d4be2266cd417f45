/*
 * minimize.go, part of pseudogen.
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

// Package minimize drives the search for the pseudopotential radii
// that minimize an objective. It wraps gonum's optimize package:
// some of the parameters are kept constant and appended to the free
// ones before every evaluation, and gradients are estimated with
// finite differences.
package minimize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

//ErrUnknown is returned for a method or finite-difference formula that is not supported.
var ErrUnknown = errors.New("minimize: unknown setting")

// Func is an objective. An error aborts the minimization.
type Func func(x []float64) (float64, error)

// Settings for a minimization.
type Settings struct {
	Method            string  //CG (default), BFGS, LBFGS or NelderMead
	Formula           string  //finite-difference formula, forward (default) or central
	Step              float64 //finite-difference step, 0.1 by default
	GradientThreshold float64 //0 means gonum's default
	MajorIterations   int     //0 means no limit
	FuncEvaluations   int     //0 means no limit
	Log               *slog.Logger
}

//DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{Method: "CG", Formula: "forward", Step: 0.1, GradientThreshold: 1e-2}
}

// Result of a minimization.
type Result struct {
	X               []float64 //the free parameters at the minimum
	Full            []float64 //X with the constants appended
	F               float64
	Status          optimize.Status
	MajorIterations int
	FuncEvaluations int
	Runtime         time.Duration
}

func (R *Result) String() string {
	return fmt.Sprintf("x: %v f: %.6g status: %s iterations: %d evaluations: %d", R.Full, R.F, R.Status, R.MajorIterations, R.FuncEvaluations)
}

//Method returns the gonum method called name.
func Method(name string) (optimize.Method, error) {
	switch strings.ToLower(name) {
	case "", "cg":
		return &optimize.CG{}, nil
	case "bfgs":
		return &optimize.BFGS{}, nil
	case "lbfgs":
		return &optimize.LBFGS{}, nil
	case "neldermead", "nelder-mead":
		return &optimize.NelderMead{}, nil
	}
	return nil, fmt.Errorf("%w: method %q", ErrUnknown, name)
}

//Formula returns the finite-difference formula called name.
func Formula(name string) (fd.Formula, error) {
	switch strings.ToLower(name) {
	case "", "forward":
		return fd.Forward, nil
	case "central":
		return fd.Central, nil
	case "backward":
		return fd.Backward, nil
	}
	return fd.Formula{}, fmt.Errorf("%w: formula %q", ErrUnknown, name)
}

func needsGradient(m optimize.Method) bool {
	_, nm := m.(*optimize.NelderMead)
	return !nm
}

//Minimize minimizes f starting from x0. consts are appended to the free parameters before
//every call to f. The minimization stops with an error if f returns one, or if ctx is done.
func Minimize(ctx context.Context, f Func, x0, consts []float64, s Settings) (*Result, error) {
	method, err := Method(s.Method)
	if err != nil {
		return nil, err
	}
	formula, err := Formula(s.Formula)
	if err != nil {
		return nil, err
	}
	if s.Step == 0 {
		s.Step = DefaultSettings().Step
	}
	if len(x0) == 0 {
		return nil, fmt.Errorf("minimize: no free parameters")
	}
	full := func(x []float64) []float64 {
		return append(append(make([]float64, 0, len(x)+len(consts)), x...), consts...)
	}
	var ferr error
	obj := func(x []float64) float64 {
		if ferr != nil || ctx.Err() != nil {
			return math.Inf(1)
		}
		v, err := f(full(x))
		if err != nil {
			ferr = err
			return math.Inf(1)
		}
		return v
	}
	p := optimize.Problem{
		Func: obj,
		Status: func() (optimize.Status, error) {
			if ferr != nil {
				return optimize.Failure, ferr
			}
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	if needsGradient(method) {
		fds := &fd.Settings{Formula: formula, Step: s.Step}
		p.Grad = func(grad, x []float64) {
			fd.Gradient(grad, obj, x, fds)
		}
	}
	settings := &optimize.Settings{
		GradientThreshold: s.GradientThreshold,
		MajorIterations:   s.MajorIterations,
		FuncEvaluations:   s.FuncEvaluations,
	}
	if s.Log != nil {
		settings.Recorder = &logRecorder{log: s.Log, consts: consts}
	}
	res, err := optimize.Minimize(p, x0, settings, method)
	if res == nil {
		return nil, err
	}
	R := &Result{
		X:               res.X,
		Full:            full(res.X),
		F:               res.F,
		Status:          res.Status,
		MajorIterations: res.MajorIterations,
		FuncEvaluations: res.FuncEvaluations,
		Runtime:         res.Runtime,
	}
	if err != nil {
		return R, fmt.Errorf("minimize: %w", err)
	}
	return R, nil
}

//logRecorder logs every major iteration.
type logRecorder struct {
	log    *slog.Logger
	consts []float64
}

func (l *logRecorder) Init() error { return nil }

func (l *logRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op != optimize.MajorIteration {
		return nil
	}
	l.log.Info("iteration", "n", stats.MajorIterations, "x", loc.X, "consts", l.consts, "f", loc.F, "evaluations", stats.FuncEvaluations)
	return nil
}
