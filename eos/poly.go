/*
 * poly.go, part of pseudogen.
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
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//ErrDegenerate is returned by Polyfit when the abscissas do not allow a fit.
var ErrDegenerate = errors.New("eos: degenerate abscissas for polynomial fit")

// Poly is a polynomial in the reduced variable t = (x-Shift)/Scale.
// Coefs[i] multiplies t^i. Keeping the fit in the reduced variable
// avoids the ill-conditioned Vandermonde matrices of narrow volume windows.
type Poly struct {
	Coefs []float64
	Shift float64
	Scale float64
}

//NewPoly returns the polynomial with coefficients coefs (ascending powers) in x itself.
func NewPoly(coefs ...float64) Poly {
	c := make([]float64, len(coefs))
	copy(c, coefs)
	return Poly{Coefs: c, Shift: 0, Scale: 1}
}

func (p Poly) t(x float64) float64 {
	return (x - p.Shift) / p.Scale
}

//Degree returns the degree of p, ignoring vanishing leading coefficients.
//The zero polynomial has degree -1.
func (p Poly) Degree() int {
	d := len(p.Coefs) - 1
	for d >= 0 && p.Coefs[d] == 0 {
		d--
	}
	return d
}

//At evaluates p at x.
func (p Poly) At(x float64) float64 {
	t := p.t(x)
	var r float64
	for i := len(p.Coefs) - 1; i >= 0; i-- {
		r = r*t + p.Coefs[i]
	}
	return r
}

//Deriv returns the derivative of p with respect to x.
func (p Poly) Deriv() Poly {
	if len(p.Coefs) <= 1 {
		return Poly{Coefs: []float64{0}, Shift: p.Shift, Scale: p.Scale}
	}
	d := make([]float64, len(p.Coefs)-1)
	for i := 1; i < len(p.Coefs); i++ {
		d[i-1] = float64(i) * p.Coefs[i] / p.Scale
	}
	return Poly{Coefs: d, Shift: p.Shift, Scale: p.Scale}
}

//Roots returns the real roots of p, in ascending order. The roots are obtained as
//the eigenvalues of the companion matrix, and a root is considered real when its
//imaginary part is negligible. Leading coefficients at round-off level, relative to
//the largest one, are dropped first.
func (p Poly) Roots() ([]float64, error) {
	n := p.Degree()
	var big float64
	for _, c := range p.Coefs {
		big = math.Max(big, math.Abs(c))
	}
	for n >= 0 && math.Abs(p.Coefs[n]) <= 1e-12*big {
		n--
	}
	switch {
	case n < 1:
		return nil, nil
	case n == 1:
		return []float64{p.Shift + p.Scale*(-p.Coefs[0]/p.Coefs[1])}, nil
	}
	lead := p.Coefs[n]
	comp := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		comp.Set(0, j, -p.Coefs[n-1-j]/lead)
	}
	for i := 1; i < n; i++ {
		comp.Set(i, i-1, 1)
	}
	var eig mat.Eigen
	if ok := eig.Factorize(comp, mat.EigenNone); !ok {
		return nil, fmt.Errorf("eos: eigendecomposition of companion matrix failed")
	}
	roots := make([]float64, 0, n)
	for _, v := range eig.Values(nil) {
		if math.Abs(imag(v)) > 1e-9*math.Max(1, math.Abs(real(v))) {
			continue
		}
		roots = append(roots, p.Shift+p.Scale*real(v))
	}
	sort.Float64s(roots)
	return roots, nil
}

//Polyfit fits a polynomial of degree deg to the points (x,y) by least squares.
//It returns the polynomial and the sum of squared residuals.
func Polyfit(x, y []float64, deg int) (Poly, float64, error) {
	if len(x) != len(y) {
		return Poly{}, 0, fmt.Errorf("eos: Polyfit got %d abscissas and %d ordinates", len(x), len(y))
	}
	if deg < 0 || len(x) < deg+1 {
		return Poly{}, 0, fmt.Errorf("eos: %d points cannot determine a degree %d polynomial", len(x), deg)
	}
	shift := floats.Sum(x) / float64(len(x))
	var scale float64
	for _, v := range x {
		scale = math.Max(scale, math.Abs(v-shift))
	}
	if scale == 0 {
		if deg > 0 {
			return Poly{}, 0, ErrDegenerate
		}
		scale = 1
	}
	a := mat.NewDense(len(x), deg+1, nil)
	for i, v := range x {
		t := (v - shift) / scale
		pow := 1.0
		for j := 0; j <= deg; j++ {
			a.Set(i, j, pow)
			pow *= t
		}
	}
	var c mat.VecDense
	if err := c.SolveVec(a, mat.NewVecDense(len(y), append([]float64(nil), y...))); err != nil {
		return Poly{}, 0, fmt.Errorf("eos: least squares fit: %w", err)
	}
	p := Poly{Coefs: make([]float64, deg+1), Shift: shift, Scale: scale}
	for j := range p.Coefs {
		p.Coefs[j] = c.AtVec(j)
	}
	var ssr float64
	for i, v := range x {
		r := y[i] - p.At(v)
		ssr += r * r
	}
	return p, ssr, nil
}
