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

package siesta

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

//ReadEnergy scans a SIESTA output for the total energy, the fourth token of the first line
//with "Total" after "Final energy", and returns it with the last cell volume (the last
//token of a "Cell volume" line) printed before it. If either is missing, it returns
//ErrNoResult.
func ReadEnergy(r io.Reader) (volume, energy float64, err error) {
	var haveVol, final bool
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "Cell volume"):
			fields := strings.Fields(line)
			volume, err = strconv.ParseFloat(fields[len(fields)-1], 64)
			if err != nil {
				return 0, 0, fmt.Errorf("%w: cell volume: %w", ErrNoResult, err)
			}
			haveVol = true
		case strings.Contains(line, "Final energy"):
			final = true
		case final && strings.Contains(line, "Total"):
			fields := strings.Fields(line)
			if len(fields) < 4 {
				return 0, 0, fmt.Errorf("%w: short total energy line %q", ErrNoResult, line)
			}
			energy, err = strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return 0, 0, fmt.Errorf("%w: total energy: %w", ErrNoResult, err)
			}
			if !haveVol {
				return 0, 0, fmt.Errorf("%w: no cell volume before the final energy", ErrNoResult)
			}
			return volume, energy, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrNoResult, err)
	}
	return 0, 0, ErrNoResult
}
