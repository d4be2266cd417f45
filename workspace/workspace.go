/*
 * workspace.go, part of pseudogen.
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

// Package workspace manages the directories where the calculations of
// one evaluation run. Each evaluation gets its own directory,
// <root>/<element>/<id>, with one subdirectory per lattice constant.
// Bulky outputs can be compressed with zstd once they were parsed, and
// are read back transparently.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

//Ext is the extension of the compressed files.
const Ext = ".zst"

//ErrNotWorkspace is returned when opening a path that is not a directory.
var ErrNotWorkspace = errors.New("workspace: not a directory")

// Workspace is the directory of one evaluation.
type Workspace struct {
	id   string
	path string
}

//ErrNoID is returned when no unused workspace name was found.
var ErrNoID = errors.New("workspace: no free identifier")

//MaxTries is the number of identifiers New draws before giving up.
const MaxTries = 16

var newID = func() string { return uuid.NewString()[:8] }

//New creates a new workspace for element under root, named with the first 8 hex characters
//of a random UUID. An existing directory is never reused: a new identifier is drawn instead.
func New(root, element string) (*Workspace, error) {
	parent := filepath.Join(root, element)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	for i := 0; i < MaxTries; i++ {
		id := newID()
		path := filepath.Join(parent, id)
		err := os.Mkdir(path, 0o755)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("workspace: %w", err)
		}
		return &Workspace{id: id, path: path}, nil
	}
	return nil, fmt.Errorf("%w in %s after %d tries", ErrNoID, parent, MaxTries)
}

//Open returns the existing workspace at path.
func Open(path string) (*Workspace, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotWorkspace, path)
	}
	return &Workspace{id: filepath.Base(path), path: path}, nil
}

//ID returns the identifier of the workspace.
func (W *Workspace) ID() string { return W.id }

//Path returns the directory of the workspace.
func (W *Workspace) Path() string { return W.path }

//Join joins elem to the workspace directory.
func (W *Workspace) Join(elem ...string) string {
	return filepath.Join(append([]string{W.path}, elem...)...)
}

//LatticeConstants returns, in ascending order, the lattice constants for which the workspace
//has a calculation directory, that is, the subdirectories named as a number.
func (W *Workspace) LatticeConstants() ([]float64, error) {
	entries, err := os.ReadDir(W.path)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	var alats []float64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		a, err := strconv.ParseFloat(e.Name(), 64)
		if err != nil {
			continue
		}
		alats = append(alats, a)
	}
	sort.Float64s(alats)
	return alats, nil
}

//Archive replaces each of the given files, relative to the workspace, by its zstd-compressed
//version with the Ext extension. Missing files are skipped.
func (W *Workspace) Archive(names ...string) error {
	for _, name := range names {
		err := compress(W.Join(name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("workspace: archiving %s: %w", name, err)
		}
	}
	return nil
}

func compress(name string) error {
	in, err := os.Open(name)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(name + Ext)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression), zstd.WithEncoderConcurrency(1))
	if err != nil {
		out.Close()
		return err
	}
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(name)
}

//zreader closes both the decoder and the underlying file.
type zreader struct {
	*zstd.Decoder
	f *os.File
}

func (z zreader) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

//OpenFile opens the file name, relative to the workspace, for reading. If only its
//compressed version exists, the returned reader decompresses it.
func (W *Workspace) OpenFile(name string) (io.ReadCloser, error) {
	f, err := os.Open(W.Join(name))
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	zf, zerr := os.Open(W.Join(name + Ext))
	if zerr != nil {
		return nil, err
	}
	d, err := zstd.NewReader(zf, zstd.WithDecoderConcurrency(1))
	if err != nil {
		zf.Close()
		return nil, fmt.Errorf("workspace: %w", err)
	}
	return zreader{Decoder: d, f: zf}, nil
}
