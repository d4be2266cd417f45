/*
 * sampling.go, part of pseudogen.
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

package eos

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//Volumes returns n per-atom volumes evenly spaced over the Delta factor window
//around v0. A single volume is v0 itself.
func Volumes(v0 float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{v0}
	}
	return floats.Span(make([]float64, n), WindowLow*v0, WindowHigh*v0)
}

//LatticeConstant returns the lattice constant that gives a per-atom volume v to a cell with
//nat atoms, whose lattice vectors, in units of the lattice constant, are the rows of vectors.
func LatticeConstant(v float64, nat int, vectors mat.Matrix) (float64, error) {
	r, c := vectors.Dims()
	if r != 3 || c != 3 {
		return 0, fmt.Errorf("eos: lattice vectors must be 3x3, got %dx%d", r, c)
	}
	det := math.Abs(mat.Det(vectors))
	if det < 1e-12 {
		return 0, fmt.Errorf("eos: lattice vectors are linearly dependent")
	}
	if nat < 1 || v <= 0 {
		return 0, fmt.Errorf("eos: invalid cell: %d atoms, %g Å^3/atom", nat, v)
	}
	return math.Cbrt(v * float64(nat) / det), nil
}

//LatticeConstants returns the lattice constants for the n per-atom volumes given by Volumes(v0, n).
func LatticeConstants(v0 float64, n, nat int, vectors mat.Matrix) ([]float64, error) {
	vols := Volumes(v0, n)
	alats := make([]float64, len(vols))
	for i, v := range vols {
		a, err := LatticeConstant(v, nat, vectors)
		if err != nil {
			return nil, err
		}
		alats[i] = a
	}
	return alats, nil
}

//Resample fits a parabola E(V) to pts and returns its values at the given volumes.
//It is used to build a symmetric set of samples from an irregular one.
func Resample(pts []Point, volumes []float64) ([]Point, error) {
	if len(pts) < 3 {
		return nil, fmt.Errorf("%w: got %d, need 3 to resample", ErrTooFewPoints, len(pts))
	}
	v := make([]float64, len(pts))
	e := make([]float64, len(pts))
	for i, p := range pts {
		v[i], e[i] = p.V, p.E
	}
	poly, _, err := Polyfit(v, e, 2)
	if err != nil {
		return nil, err
	}
	out := make([]Point, len(volumes))
	for i, vol := range volumes {
		out[i] = Point{V: vol, E: poly.At(vol)}
	}
	return out, nil
}
