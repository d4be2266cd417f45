/*
 * delta.go, part of pseudogen.
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
	"errors"
	"fmt"
	"math"
)

//ErrDomain is returned when the Delta factor integrals are negative, which happens
//only for physically inconsistent parameters.
var ErrDomain = errors.New("eos: Delta factor undefined for these parameters")

// DeltaResult holds the three flavors of the Delta factor.
type DeltaResult struct {
	Delta float64 //meV/atom
	Rel   float64 //%
	Norm  float64 //meV/atom, normalized to VRef and BRef
}

func (D DeltaResult) String() string {
	return fmt.Sprintf("Delta=%.4f meV/atom Rel=%.4f%% Norm=%.4f meV/atom", D.Delta, D.Rel, D.Norm)
}

//quartic returns the coefficients of E(V) = a0 + a1 V^(-2/3) + a2 V^(-4/3) + a3 V^(-2)
//for the record P, with B0 in eV/Å^3.
func quartic(P Params) [4]float64 {
	v0 := P.V0
	b0 := P.B0 * GPa2EVA3
	b1 := P.B1
	return [4]float64{
		9 * v0 * b0 / 16 * (6 - b1),
		9 * math.Pow(v0, 5.0/3.0) * b0 / 16 * (3*b1 - 16),
		9 * math.Pow(v0, 7.0/3.0) * b0 / 16 * (14 - 3*b1),
		9 * math.Pow(v0, 3) * b0 / 16 * (b1 - 4),
	}
}

//antiderivative evaluates sum_n c[n] V^(-(2n-3)/3).
func antiderivative(c [7]float64, v float64) float64 {
	var r float64
	for n := 0; n < 7; n++ {
		r += c[n] * math.Pow(v, -(2*float64(n)-3)/3)
	}
	return r
}

//Delta computes the Delta factor between the equation of state test and the reference ref.
//Both records must carry B0 in GPa. If asymm is true the integration window spans 94%-106% of
//the reference equilibrium volume, otherwise it spans the same fractions of the mean of both
//equilibrium volumes, and the result is symmetric in test and ref.
func Delta(test, ref Params, asymm bool) (DeltaResult, error) {
	f := quartic(test)
	w := quartic(ref)
	v0f, v0w := test.V0, ref.V0
	b0f, b0w := test.B0*GPa2EVA3, ref.B0*GPa2EVA3
	bref := BRef * GPa2EVA3

	var vi, vf float64
	if asymm {
		vi = WindowLow * v0w
		vf = WindowHigh * v0w
	} else {
		vi = WindowLow * (v0w + v0f) / 2
		vf = WindowHigh * (v0w + v0f) / 2
	}

	d0, d1, d2, d3 := f[0]-w[0], f[1]-w[1], f[2]-w[2], f[3]-w[3]
	s0, s1, s2, s3 := f[0]+w[0], f[1]+w[1], f[2]+w[2], f[3]+w[3]

	var x, y [7]float64
	x[0] = d0 * d0
	x[1] = 6 * d1 * d0
	x[2] = -3 * (2*d2*d0 + d1*d1)
	x[3] = -2*d3*d0 - 2*d2*d1
	x[4] = -3.0 / 5.0 * (2*d3*d1 + d2*d2)
	x[5] = -6.0 / 7.0 * d3 * d2
	x[6] = -1.0 / 3.0 * d3 * d3

	y[0] = s0 * s0 / 4
	y[1] = 3 * s1 * s0 / 2
	y[2] = -3 * (2*s2*s0 + s1*s1) / 4
	y[3] = -s3*s0/2 - s2*s1/2
	y[4] = -3.0 / 20.0 * (2*s3*s1 + s2*s2)
	y[5] = -3.0 / 14.0 * s3 * s2
	y[6] = -1.0 / 12.0 * s3 * s3

	dF := antiderivative(x, vf) - antiderivative(x, vi)
	dG := antiderivative(y, vf) - antiderivative(y, vi)
	if dF < 0 || dG <= 0 || math.IsNaN(dF) || math.IsNaN(dG) {
		return DeltaResult{}, fmt.Errorf("%w: window [%g, %g], integrals %g, %g", ErrDomain, vi, vf, dF, dG)
	}
	delta := 1000 * math.Sqrt(dF/(vf-vi))
	res := DeltaResult{
		Delta: delta,
		Rel:   100 * math.Sqrt(dF/dG),
	}
	if asymm {
		res.Norm = delta / v0w / b0w * VRef * bref
	} else {
		res.Norm = delta / (v0w + v0f) / (b0w + b0f) * 4 * VRef * bref
	}
	return res, nil
}
