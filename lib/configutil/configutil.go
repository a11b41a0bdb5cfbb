// Package configutil loads json5 configuration files with local overrides.
package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalName returns the override file name for name: config.json5 -> config.local.json5.
func LocalName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

func readFile[T any](path string) (T, bool, error) {
	var out T
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	err = json5.Unmarshal(contents, &out)
	if err != nil {
		return out, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, true, nil
}

// ReadConfig reads name and merges name's local override on top of it. Fields left empty by
// both files are taken from defaults. It returns os.ErrNotExist only when neither file
// exists, in which case defaults are returned as well.
func ReadConfig[T any](name string, defaults T) (T, error) {
	out, found, err := readFile[T](name)
	if err != nil {
		return defaults, err
	}

	localName := LocalName(name)
	local, foundLocal, err := readFile[T](localName)
	if err != nil {
		return defaults, err
	}
	if foundLocal {
		err = mergo.Merge(&out, local, mergo.WithOverride)
		if err != nil {
			return defaults, err
		}
		slog.Info("merging config with local overrides", "local", localName)
	}

	err = mergo.Merge(&out, defaults)
	if err != nil {
		return defaults, err
	}
	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}
