/*
 * fit.go, part of pseudogen.
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

	"gonum.org/v1/gonum/stat"
)

//MinPoints is the smallest number of samples a Birch-Murnaghan fit accepts.
const MinPoints = 4

var (
	//ErrTooFewPoints is returned when fewer than MinPoints samples are given to a fit.
	ErrTooFewPoints = errors.New("eos: too few points for a Birch-Murnaghan fit")

	//ErrNoMinimum is returned when the fitted polynomial has no physical minimum.
	ErrNoMinimum = errors.New("eos: no minimum could be found")
)

// Point is one (volume, energy) sample. Volumes are in Å^3 and energies
// in eV, both per atom.
type Point struct {
	V float64
	E float64
}

// Params are the parameters of an equation of state.
// B0 is always in GPa, the unit of the reference tables.
type Params struct {
	V0       float64 //equilibrium volume, Å^3/atom
	B0       float64 //bulk modulus, GPa
	B1       float64 //pressure derivative of the bulk modulus
	E0       float64 //energy at V0, eV/atom. Zero for reference records.
	Residual float64 //normalized residual of the fit, SSR/SST
}

func (P Params) String() string {
	return fmt.Sprintf("V0=%.4f B0=%.4f B1=%.4f", P.V0, P.B0, P.B1)
}

//BirchMurnaghan fits the samples in pts to a third order Birch-Murnaghan equation of state,
//that is, a cubic polynomial in V^(-2/3). The minimum is the first (in ascending order) positive
//root of the first derivative where the second derivative is positive.
func BirchMurnaghan(pts []Point) (Params, error) {
	if len(pts) < MinPoints {
		return Params{}, fmt.Errorf("%w: got %d, need %d", ErrTooFewPoints, len(pts), MinPoints)
	}
	x := make([]float64, len(pts))
	e := make([]float64, len(pts))
	for i, p := range pts {
		if p.V <= 0 {
			return Params{}, fmt.Errorf("eos: non-positive volume %g in sample %d", p.V, i)
		}
		x[i] = math.Pow(p.V, -2.0/3.0)
		e[i] = p.E
	}
	poly, ssr, err := Polyfit(x, e, 3)
	if err != nil {
		return Params{}, err
	}
	mean := stat.Mean(e, nil)
	var sst float64
	for _, v := range e {
		sst += (v - mean) * (v - mean)
	}
	var residual float64
	if sst > 0 {
		residual = ssr / sst
	}
	d1 := poly.Deriv()
	d2 := d1.Deriv()
	d3 := d2.Deriv()
	roots, err := d1.Roots()
	if err != nil {
		return Params{}, err
	}
	x0 := 0.0
	for _, r := range roots {
		if r > 0 && d2.At(r) > 0 {
			x0 = r
			break
		}
	}
	if x0 == 0 {
		return Params{}, ErrNoMinimum
	}
	derivV2 := 4.0 / 9.0 * math.Pow(x0, 5) * d2.At(x0)
	derivV3 := -20.0/9.0*math.Pow(x0, 13.0/2.0)*d2.At(x0) - 8.0/27.0*math.Pow(x0, 15.0/2.0)*d3.At(x0)
	b0 := derivV2 / math.Pow(x0, 3.0/2.0)
	b1 := -1 - math.Pow(x0, -3.0/2.0)*derivV3/derivV2
	return Params{
		V0:       math.Pow(x0, -3.0/2.0),
		B0:       b0 * EVA32GPa,
		B1:       b1,
		E0:       poly.At(x0),
		Residual: residual,
	}, nil
}

//Energy returns the Birch-Murnaghan energy of P at the volume v, in eV/atom.
func (P Params) Energy(v float64) float64 {
	b0 := P.B0 * GPa2EVA3
	eta := math.Pow(P.V0/v, 2.0/3.0)
	d := eta - 1
	return P.E0 + 9*P.V0*b0/16*(d*d*d*P.B1+d*d*(6-4*eta))
}
