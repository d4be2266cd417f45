/*
 * config.go, part of pseudogen.
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

// Package config reads the YAML configuration of a pseudogen run. The
// configuration is validated once, with Check, before any calculation
// starts.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/rmera/pseudogen/atom"
	"github.com/rmera/pseudogen/eos"
	"github.com/rmera/pseudogen/logs"
	"github.com/rmera/pseudogen/minimize"
	"github.com/rmera/pseudogen/siesta"
)

//NRadii is the number of pseudization radii: s, p, d, f and the core-correction radius.
const NRadii = 5

// Occupation is the filling of one orbital. In YAML it is either a
// number or a list with one value, or two if spin-polarized.
type Occupation []float64

//UnmarshalYAML accepts both a scalar and a sequence.
func (O *Occupation) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var v float64
		if err := value.Decode(&v); err != nil {
			return err
		}
		*O = Occupation{v}
		return nil
	}
	var vs []float64
	if err := value.Decode(&vs); err != nil {
		return err
	}
	*O = vs
	return nil
}

// Calc holds the settings of the element.
type Calc struct {
	// Lattice is the Bravais lattice of the bulk, SC, BCC or FCC.
	Lattice string `yaml:"lattice"`

	// XC is the ATOM exchange-correlation tag, such as ca or pb.
	XC string `yaml:"xc"`

	NCore     int  `yaml:"n_core"`
	NVal      int  `yaml:"n_val"`
	IsSpinPol bool `yaml:"is_spin_pol"`

	// Core enables the non-linear core corrections.
	Core bool `yaml:"core"`

	// NAtoms is the number of atoms in the cell. If zero, it is taken
	// from the lattice.
	NAtoms int `yaml:"nat"`
}

// Siesta holds the settings of the bulk calculations.
type Siesta struct {
	Template string      `yaml:"template"`
	Command  string      `yaml:"command"`
	MPI      []string    `yaml:"mpi"`
	XCF      string      `yaml:"xc_f"`
	XC       string      `yaml:"xc"`
	Vectors  [][]float64 `yaml:"vectors"`
}

// Atom locates the ATOM program.
type Atom struct {
	Program string `yaml:"program"`
	Utils   string `yaml:"utils"`
}

// Minimize holds the settings of the radii search.
type Minimize struct {
	Method    string  `yaml:"method"`
	Eps       float64 `yaml:"eps"`
	Formula   string  `yaml:"formula"`
	Tolerance float64 `yaml:"tolerance"`
	MaxIter   int     `yaml:"max_iter"`
	MaxEvals  int     `yaml:"max_evals"`

	// Free is the number of radii, from the first, that are minimized.
	// The rest are kept constant.
	Free int `yaml:"free"`
}

// Delta holds the settings of the Delta factor.
type Delta struct {
	Asymmetric bool `yaml:"asymmetric"`

	// Penalty is the value, in meV/atom, given to evaluations that
	// could not produce a Delta factor.
	Penalty float64 `yaml:"penalty"`
}

// Output controls what is kept of each evaluation.
type Output struct {
	Plot     bool `yaml:"plot"`
	Compress bool `yaml:"compress"`
}

// Config is the configuration of a run.
type Config struct {
	Element   string `yaml:"element"`
	Root      string `yaml:"root"`
	Reference string `yaml:"reference"`

	// EquilVolume is the experimental equilibrium volume, in Å^3 per atom.
	EquilVolume float64 `yaml:"equil_volume"`

	// Volumes is the number of volumes sampled around EquilVolume.
	Volumes int `yaml:"volumes"`

	Calc      Calc           `yaml:"calc"`
	Electrons []Occupation   `yaml:"electrons"`
	Radii     []float64      `yaml:"radii"`
	Configs   [][]Occupation `yaml:"configs"`
	Siesta    Siesta         `yaml:"siesta"`
	Atom      Atom           `yaml:"atom"`
	Minimize  Minimize       `yaml:"minimize"`
	Delta     Delta          `yaml:"delta"`
	Output    Output         `yaml:"output"`
	LogLevel  string         `yaml:"log_level"`
}

//Read decodes a configuration from r. Unknown keys are an error. Defaults are set for
//the missing optional fields, but the configuration is not checked.
func Read(r io.Reader) (*Config, error) {
	C := new(Config)
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(C); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	C.SetDefaults()
	return C, nil
}

//Load reads the configuration file name. Relative paths in it are taken as relative to
//the directory of the file.
func Load(name string) (*Config, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	C, err := Read(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(name)
	for _, p := range []*string{&C.Root, &C.Reference, &C.Siesta.Template} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return C, nil
}

//LoadEnv loads the environment variables in the dotenv file name, without overriding the
//ones already set. A missing file is not an error.
func LoadEnv(name string) error {
	err := godotenv.Load(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

//SetDefaults fills the optional fields that were left empty. Program paths not given
//are taken from the ATOM_PROGRAM, ATOM_UTILS_DIR and SIESTA_EXEC environment variables.
func (C *Config) SetDefaults() {
	if C.Root == "" {
		C.Root = "."
	}
	if C.Volumes == 0 {
		C.Volumes = 7
	}
	if C.Calc.XC == "" {
		C.Calc.XC = "ca"
	}
	if C.Atom.Program == "" {
		C.Atom.Program = os.Getenv("ATOM_PROGRAM")
	}
	if C.Atom.Utils == "" {
		C.Atom.Utils = os.Getenv("ATOM_UTILS_DIR")
	}
	if C.Siesta.Command == "" {
		C.Siesta.Command = os.Getenv("SIESTA_EXEC")
	}
	if C.Siesta.Command == "" {
		C.Siesta.Command = "siesta"
	}
	d := minimize.DefaultSettings()
	if C.Minimize.Method == "" {
		C.Minimize.Method = d.Method
	}
	if C.Minimize.Formula == "" {
		C.Minimize.Formula = d.Formula
	}
	if C.Minimize.Eps == 0 {
		C.Minimize.Eps = d.Step
	}
	if C.Minimize.Tolerance == 0 {
		C.Minimize.Tolerance = d.GradientThreshold
	}
	if C.Minimize.Free == 0 {
		C.Minimize.Free = NRadii
	}
	if C.Delta.Penalty == 0 {
		C.Delta.Penalty = 1000
	}
}

var latticeAtoms = map[string]int{"SC": 1, "BCC": 2, "FCC": 4}

//NAtoms returns the number of atoms in the cell.
func (C *Config) NAtoms() int {
	if C.Calc.NAtoms > 0 {
		return C.Calc.NAtoms
	}
	if n, ok := latticeAtoms[strings.ToUpper(C.Calc.Lattice)]; ok {
		return n
	}
	return 1
}

//LatticeVectors returns the configured lattice vectors, or the unit cube if none were given.
func (C *Config) LatticeVectors() *mat.Dense {
	if len(C.Siesta.Vectors) == 0 {
		return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	}
	v := mat.NewDense(3, 3, nil)
	for i, row := range C.Siesta.Vectors {
		v.SetRow(i, row)
	}
	return v
}

//LatticeConstants returns the lattice constants at which the bulk calculations run.
func (C *Config) LatticeConstants() ([]float64, error) {
	return eos.LatticeConstants(C.EquilVolume, C.Volumes, C.NAtoms(), C.LatticeVectors())
}

//AtomCalc returns the settings of the ATOM calculations.
func (C *Config) AtomCalc() atom.Calc {
	return atom.Calc{
		Element:       C.Element,
		NCore:         C.Calc.NCore,
		NVal:          C.Calc.NVal,
		XC:            C.Calc.XC,
		SpinPolarized: C.Calc.IsSpinPol,
		Core:          C.Calc.Core,
	}
}

//AtomProgram returns the location of ATOM.
func (C *Config) AtomProgram() atom.Program {
	return atom.Program{Command: C.Atom.Program, Utils: C.Atom.Utils}
}

//SiestaCalc returns the settings of the bulk calculations.
func (C *Config) SiestaCalc() siesta.Calc {
	return siesta.Calc{
		Element:      C.Element,
		XCFunctional: C.Siesta.XCF,
		XC:           C.Siesta.XC,
		Vectors:      C.LatticeVectors(),
		NAtoms:       C.NAtoms(),
	}
}

//MinimizeSettings returns the settings of the radii search.
func (C *Config) MinimizeSettings() minimize.Settings {
	return minimize.Settings{
		Method:            C.Minimize.Method,
		Formula:           C.Minimize.Formula,
		Step:              C.Minimize.Eps,
		GradientThreshold: C.Minimize.Tolerance,
		MajorIterations:   C.Minimize.MaxIter,
		FuncEvaluations:   C.Minimize.MaxEvals,
	}
}

//Occupations converts the fillings to the ATOM type.
func Occupations(occs []Occupation) []atom.Occupation {
	ret := make([]atom.Occupation, len(occs))
	for i, o := range occs {
		ret[i] = atom.Occupation(o)
	}
	return ret
}

//Check returns an error listing every missing or invalid setting, or nil.
func (C *Config) Check() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if C.Element == "" {
		bad("element not set")
	}
	if C.Reference == "" {
		bad("reference not set")
	}
	if C.EquilVolume <= 0 {
		bad("equil_volume must be positive, got %g", C.EquilVolume)
	}
	if C.Volumes < eos.MinPoints {
		bad("volumes must be at least %d, got %d", eos.MinPoints, C.Volumes)
	}
	if _, ok := latticeAtoms[strings.ToUpper(C.Calc.Lattice)]; !ok && C.Calc.Lattice != "" {
		bad("calc.lattice must be SC, BCC or FCC, got %q", C.Calc.Lattice)
	}
	if C.Calc.Lattice == "" && C.Calc.NAtoms == 0 {
		bad("calc.lattice or calc.nat must be set")
	}
	if C.Calc.NCore < 0 || C.Calc.NVal < 1 || C.Calc.NCore+C.Calc.NVal > len(atom.Orbitals) {
		bad("calc.n_core (%d) and calc.n_val (%d) out of range", C.Calc.NCore, C.Calc.NVal)
	}
	perOrbital := 1
	if C.Calc.IsSpinPol {
		perOrbital = 2
	}
	checkOccs := func(name string, occs []Occupation) {
		for i, o := range occs {
			if len(o) != perOrbital {
				bad("%s[%d] needs %d values, got %d", name, i, perOrbital, len(o))
			}
		}
	}
	if len(C.Electrons) != C.Calc.NVal {
		bad("electrons must have calc.n_val (%d) fillings, got %d", C.Calc.NVal, len(C.Electrons))
	}
	checkOccs("electrons", C.Electrons)
	if len(C.Radii) != NRadii {
		bad("radii must have %d values, got %d", NRadii, len(C.Radii))
	}
	if len(C.Configs) < 2 {
		bad("configs must have at least 2 test configurations, got %d", len(C.Configs))
	}
	for i, c := range C.Configs {
		if len(c) == 0 || C.Calc.NCore+len(c) > len(atom.Orbitals) {
			bad("configs[%d] has %d fillings", i, len(c))
		}
		checkOccs(fmt.Sprintf("configs[%d]", i), c)
	}
	if C.Siesta.Template == "" {
		bad("siesta.template not set")
	}
	if len(C.Siesta.Vectors) != 0 {
		ok := len(C.Siesta.Vectors) == 3
		for _, row := range C.Siesta.Vectors {
			ok = ok && len(row) == 3
		}
		if !ok {
			bad("siesta.vectors must be 3x3")
		} else if mat.Det(C.LatticeVectors()) == 0 {
			bad("siesta.vectors are linearly dependent")
		}
	}
	if C.Atom.Utils == "" {
		bad("atom.utils not set, and ATOM_UTILS_DIR is empty")
	}
	if _, err := minimize.Method(C.Minimize.Method); err != nil {
		errs = append(errs, err)
	}
	if _, err := minimize.Formula(C.Minimize.Formula); err != nil {
		errs = append(errs, err)
	}
	if C.Minimize.Eps <= 0 {
		bad("minimize.eps must be positive, got %g", C.Minimize.Eps)
	}
	if C.Minimize.Free < 1 || C.Minimize.Free > NRadii {
		bad("minimize.free must be between 1 and %d, got %d", NRadii, C.Minimize.Free)
	}
	if C.Minimize.MaxIter < 0 || C.Minimize.MaxEvals < 0 {
		bad("minimize.max_iter and minimize.max_evals cannot be negative")
	}
	if _, err := logs.ParseLevel(C.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: invalid configuration:\n%w", errors.Join(errs...))
}
