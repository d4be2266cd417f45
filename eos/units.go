/*
 * units.go, part of pseudogen.
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

//This provides the conversion factors and reference values used for
//equations of state and the Delta factor.

//Conversions
const (
	EV2J     = 1.602176565e-19   //electron-volt to joule
	GPa2EVA3 = 1e9 / EV2J / 1e30 //GPa to eV/Å^3
	EVA32GPa = 1 / GPa2EVA3      //eV/Å^3 to GPa
)

//Normalization of the Delta factor, as in the DeltaCodesDFT project.
const (
	VRef = 30.0  //Å^3/atom
	BRef = 100.0 //GPa
)

//Integration window of the Delta factor, as fractions of the equilibrium volume.
const (
	WindowLow  = 0.94
	WindowHigh = 1.06
)
