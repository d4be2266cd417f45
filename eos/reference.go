/*
 * reference.go, part of pseudogen.
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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

//ErrNoReference is returned when an element is absent from a reference table.
var ErrNoReference = errors.New("eos: element not in reference data")

// Reference maps element symbols to their reference equation of state
// (V0 in Å^3/atom, B0 in GPa, B1).
type Reference map[string]Params

//ReadReference reads a whitespace-delimited table with the columns element, V0, B0 and B1,
//as the WIEN2k.txt file of the DeltaCodesDFT project. Lines starting with # are ignored,
//as is anything after a # in a line.
func ReadReference(r io.Reader) (Reference, error) {
	ref := make(Reference)
	scanner := bufio.NewScanner(r)
	var nline int
	for scanner.Scan() {
		nline++
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("eos: reference line %d: expected 4 columns, got %d", nline, len(fields))
		}
		var vals [3]float64
		for i := range vals {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("eos: reference line %d: %w", nline, err)
			}
			vals[i] = v
		}
		ref[fields[0]] = Params{V0: vals[0], B0: vals[1], B1: vals[2]}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ref, nil
}

//ReadReferenceFile is ReadReference on the file name.
func ReadReferenceFile(name string) (Reference, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ref, err := ReadReference(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return ref, nil
}

//Get returns the reference record for element.
func (R Reference) Get(element string) (Params, error) {
	p, ok := R[element]
	if !ok {
		return Params{}, fmt.Errorf("%w: %s", ErrNoReference, element)
	}
	return p, nil
}
