/*
 * logs.go, part of pseudogen.
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

// Package logs keeps the loggers of a run. All the loggers of a
// Registry write structured records to the same append-only file,
// <root>/<element>/log.dat, each tagged with its name.
package logs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//FileName is the name of the log file in the element directory.
const FileName = "log.dat"

// Registry hands out named loggers that share one output.
type Registry struct {
	mu      sync.Mutex
	out     io.Closer
	handler slog.Handler
	loggers map[string]*slog.Logger
}

//New returns a registry that writes to w at the given level. Closing the registry does
//not close w.
func New(w io.Writer, level slog.Level) *Registry {
	return &Registry{
		handler: slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
		loggers: make(map[string]*slog.Logger),
	}
}

//Open returns a registry that appends to root/element/log.dat, creating the directory if needed.
func Open(root, element string, level slog.Level) (*Registry, error) {
	dir := filepath.Join(root, element)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logs: %w", err)
	}
	R := New(f, level)
	R.out = f
	return R, nil
}

//Discard returns a registry whose loggers drop every record.
func Discard() *Registry {
	return New(io.Discard, slog.LevelError+1)
}

//Get returns the logger called name, creating it on first use.
func (R *Registry) Get(name string) *slog.Logger {
	R.mu.Lock()
	defer R.mu.Unlock()
	if l, ok := R.loggers[name]; ok {
		return l
	}
	l := slog.New(R.handler).With("logger", name)
	R.loggers[name] = l
	return l
}

//Close closes the log file, if the registry opened one. The loggers must not be used afterwards.
func (R *Registry) Close() error {
	R.mu.Lock()
	defer R.mu.Unlock()
	R.loggers = make(map[string]*slog.Logger)
	if R.out == nil {
		return nil
	}
	err := R.out.Close()
	R.out = nil
	return err
}

//ParseLevel parses debug, info, warn or error, case-insensitively. An empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("logs: unknown level %q", s)
	}
	return l, nil
}
