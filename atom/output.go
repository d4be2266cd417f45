/*
 * output.go, part of pseudogen.
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

package atom

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Orbital is one row of the eigenvalue tables of ATOM (the lines
// marked with &v). Energies are in Ry.
type Orbital struct {
	Label      string //nl, e.g. "3s"
	Spin       float64
	Occupation float64
	Eigenvalue float64
	Kinetic    float64
	Potential  float64
}

func parseOrbital(fields []string) (Orbital, error) {
	if len(fields) < 4 {
		return Orbital{}, fmt.Errorf("%d columns", len(fields))
	}
	o := Orbital{Label: fields[0]}
	targets := []*float64{&o.Spin, &o.Occupation, &o.Eigenvalue, &o.Kinetic, &o.Potential}
	for i, t := range targets {
		if i+1 >= len(fields) {
			break
		}
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return Orbital{}, err
		}
		*t = v
	}
	return o, nil
}

//markedLines returns the lines in r that contain mark and do not contain exclude (if not empty).
func markedLines(r io.Reader, mark, exclude string) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		l := scanner.Text()
		if strings.Contains(l, mark) && (exclude == "" || !strings.Contains(l, exclude)) {
			lines = append(lines, l)
		}
	}
	return lines, scanner.Err()
}

//ReadEigenvalues reads the eigenvalue tables of an ATOM output. The first &v line is a header.
//The all-electron orbitals come first; a dashed line separates them from the pseudopotential ones.
func ReadEigenvalues(r io.Reader) (ae, ps []Orbital, err error) {
	lines, err := markedLines(r, "&v", "")
	if err != nil {
		return nil, nil, Error{message: NoOutput, filename: "OUT", deco: []string{"ReadEigenvalues"}, critical: true, err: err}
	}
	if len(lines) == 0 {
		return nil, nil, Error{message: WrongFormat, filename: "OUT", deco: []string{"ReadEigenvalues"}, critical: true, err: fmt.Errorf("no &v lines")}
	}
	isAE := true
	for i, l := range lines[1:] {
		if strings.Contains(l, "----") {
			isAE = false
			continue
		}
		fields := strings.Fields(l)
		o, err := parseOrbital(fields[:len(fields)-1])
		if err != nil {
			return nil, nil, Error{message: WrongFormat, filename: "OUT", deco: []string{"ReadEigenvalues"}, critical: true, err: fmt.Errorf("eigenvalue line %d: %w", i+2, err)}
		}
		if isAE {
			ae = append(ae, o)
		} else {
			ps = append(ps, o)
		}
	}
	return ae, ps, nil
}

//EigenvalueRSS returns the Euclidean norm of the differences between the eigenvalues of ae and ps.
//Tables of different lengths, as left by a generation that stopped early, give a WrongFormat Error.
func EigenvalueRSS(ae, ps []Orbital) (float64, error) {
	if len(ae) != len(ps) {
		return 0, Error{message: WrongFormat, filename: "OUT", deco: []string{"EigenvalueRSS"}, critical: true, err: fmt.Errorf("%d all-electron and %d pseudopotential eigenvalues", len(ae), len(ps))}
	}
	diff := make([]float64, len(ae))
	for i := range ae {
		diff[i] = ae[i].Eigenvalue - ps[i].Eigenvalue
	}
	return floats.Norm(diff, 2), nil
}

//ReadExcitations reads the n x n tables of total energy differences between the n test configurations
//from an ATOM test output (the lines marked with &d). The first two lines are headers. The all-electron
//table comes first; a line with "total" starts the pseudopotential one, and is followed by a header.
func ReadExcitations(r io.Reader, n int) (ae, ps *mat.Dense, err error) {
	lines, err := markedLines(r, "&d", "&v")
	if err != nil {
		return nil, nil, Error{message: NoOutput, filename: "OUT", deco: []string{"ReadExcitations"}, critical: true, err: err}
	}
	if len(lines) < 2 {
		return nil, nil, Error{message: WrongFormat, filename: "OUT", deco: []string{"ReadExcitations"}, critical: true, err: fmt.Errorf("%d &d lines", len(lines))}
	}
	wrong := func(i int, e error) error {
		return Error{message: WrongFormat, filename: "OUT", deco: []string{"ReadExcitations"}, critical: true, err: fmt.Errorf("&d line %d: %w", i+3, e)}
	}
	ae = mat.NewDense(n, n, nil)
	ps = mat.NewDense(n, n, nil)
	table := ae
	header := false
	for i, l := range lines[2:] {
		if strings.Contains(l, "total") {
			table = ps
			header = true
			continue
		}
		if header {
			header = false
			continue
		}
		fields := strings.Fields(l)
		if len(fields) < 2 {
			return nil, nil, wrong(i, fmt.Errorf("too few columns"))
		}
		data := fields[1:]
		idx, err := strconv.Atoi(data[0])
		if err != nil {
			return nil, nil, wrong(i, err)
		}
		idx--
		if idx < 0 || idx >= n || len(data)-1 > n {
			return nil, nil, wrong(i, fmt.Errorf("configuration %d out of %d", idx+1, n))
		}
		for ix, tok := range data[1:] {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, nil, wrong(i, err)
			}
			table.Set(ix, idx, v)
			table.Set(idx, ix, v)
		}
	}
	return ae, ps, nil
}

//TransferabilityErrors returns the mean, over the off-diagonal elements, and the maximum of the
//absolute differences between the tables ae and ps.
func TransferabilityErrors(ae, ps mat.Matrix) (mean, maxErr float64) {
	var diff mat.Dense
	diff.Sub(ae, ps)
	n, _ := diff.Dims()
	var sum float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := math.Abs(diff.At(i, j))
			sum += d
			maxErr = math.Max(maxErr, d)
		}
	}
	if n > 1 {
		mean = sum / float64(n*(n-1))
	}
	return mean, maxErr
}

func decorate(err error, caller string) error {
	if e, ok := err.(Error); ok {
		e.deco = append(e.deco, caller)
		return e
	}
	return err
}
