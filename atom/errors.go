/*
 * errors.go, part of pseudogen.
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

import "fmt"

// Error is the error type for failed ATOM runs and unreadable ATOM
// output.
type Error struct {
	message  string
	filename string //the input or output file that has problems, or the command line.
	deco     []string
	critical bool
	err      error
}

func (err Error) Error() string {
	if err.err != nil {
		return fmt.Sprintf("atom: %s %s: %s", err.message, err.filename, err.err.Error())
	}
	return fmt.Sprintf("atom: %s %s", err.message, err.filename)
}

//Decorate returns the trail of calls that led to the error, with deco appended if not empty.
//The error itself is not modified; use the returned slice.
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//FileName returns the file associated to the error.
func (err Error) FileName() string { return err.filename }

//Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

//Unwrap returns the underlying error, if any.
func (err Error) Unwrap() error { return err.err }

const (
	NotRunning  = "Unable to run"
	CantInput   = "Unable to write"
	NoOutput    = "Unable to read output of"
	WrongFormat = "Wrong format in"
)
