// Package configutil reads layered json5 config files: a checked-in
// base file plus an optional `<name>.local.<ext>` overlay that wins
// on conflicts, so credentials never have to live in the base file.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

func localVariant(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// readLayer decodes one file into out, reporting whether it existed.
func readLayer[T any](path string, out *T) (bool, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json5.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads `name` and, when present, its `.local` variant
// merged on top. os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var base T
	haveBase, err := readLayer(name, &base)
	if err != nil {
		return base, err
	}

	var local T
	haveLocal, err := readLayer(localVariant(name), &local)
	if err != nil {
		return base, err
	}
	if haveLocal {
		slog.Info("merging config with local overrides", "local", localVariant(name))
		if err := mergo.Merge(&base, local, mergo.WithOverride); err != nil {
			return base, err
		}
	}

	if !haveBase && !haveLocal {
		return base, os.ErrNotExist
	}
	return base, nil
}

// ReadRecursively walks from the working directory up to the
// filesystem root looking for `name`; the nearest match wins.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	dir, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		if !os.IsNotExist(err) {
			return config, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return zero, os.ErrNotExist
		}
		dir = parent
	}
}
