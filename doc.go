/*
 * doc.go, part of pseudogen.
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

/*Package pseudogen generates norm-conserving pseudopotentials with the ATOM program and tunes
their pseudization radii so the bulk equation of state obtained with SIESTA agrees with a
reference one, as measured by the Delta factor.



	**pseudogen Capabilities**


    Writes input decks for ATOM all-electron calculations, pseudopotential generations
	(with or without core corrections) and transferability tests, runs them and reads
	the eigenvalue and excitation-energy errors from their outputs (package atom).

    Renders SIESTA inputs from a text template for a set of lattice constants around
	the equilibrium volume, runs them and reads the cell volumes and total energies
	(package siesta).

    Fits a Birch-Murnaghan equation of state to the energy-volume samples and computes
	the Delta factor, its relative and normalized versions, against a reference table
	such as the WIEN2k data of the DeltaCodesDFT project (package eos).

    Runs each evaluation in its own workspace, so evaluations can run at the same time,
	and optionally compresses the bulky outputs with zstd (package workspace).

    Minimizes the Delta factor over some of the radii, keeping the rest constant, with
	gonum's optimize methods and finite-difference gradients (package minimize).

    Plots the samples and the fitted equation of state (package eosplot).


The Evaluator type in this package puts everything together. It is built from a checked
configuration (package config) and logs one record per evaluation to the log of the
element (package logs). Evaluations that fail because ATOM fails, or because the bulk
calculations do not give an equation of state with a minimum, are scored with a penalty
by the objective, so a minimization can go on. Configuration errors and cancellation
stop it.

Volumes are given in Å^3 per atom, energies in eV per atom, bulk moduli in GPa, ATOM
errors in Ry and the Delta factor in meV per atom.*/
package pseudogen
