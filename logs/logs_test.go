/*
 * logs_test.go, part of pseudogen.
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

package logs

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(Te *testing.T) {
	var buf bytes.Buffer
	R := New(&buf, slog.LevelInfo)
	l := R.Get("Si")
	assert.Same(Te, l, R.Get("Si"))
	l.Info("evaluation", "delta", 1.5)
	l.Debug("hidden")
	R.Get("minimize").Warn("slow")
	out := buf.String()
	assert.Contains(Te, out, "logger=Si")
	assert.Contains(Te, out, "msg=evaluation")
	assert.Contains(Te, out, "delta=1.5")
	assert.Contains(Te, out, "logger=minimize")
	assert.NotContains(Te, out, "hidden")
	require.NoError(Te, R.Close())
}

func TestOpenAppends(Te *testing.T) {
	root := Te.TempDir()
	for i := 0; i < 2; i++ {
		R, err := Open(root, "Al", slog.LevelDebug)
		require.NoError(Te, err)
		R.Get("Al").Debug("run")
		require.NoError(Te, R.Close())
	}
	b, err := os.ReadFile(filepath.Join(root, "Al", FileName))
	require.NoError(Te, err)
	assert.Equal(Te, 2, strings.Count(string(b), "msg=run"))
}

func TestConcurrentLoggers(Te *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	R := New(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	}), slog.LevelInfo)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				R.Get("worker").Info("record", "j", j)
			}
		}()
	}
	wg.Wait()
	assert.Equal(Te, 400, strings.Count(buf.String(), "\n"))
}

func TestParseLevel(Te *testing.T) {
	for s, want := range map[string]slog.Level{"": slog.LevelInfo, "debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError} {
		l, err := ParseLevel(s)
		require.NoError(Te, err)
		assert.Equal(Te, want, l, s)
	}
	_, err := ParseLevel("loud")
	assert.Error(Te, err)
	Discard().Get("x").Error("dropped")
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
