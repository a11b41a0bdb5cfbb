package archive

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	ReferenceDir = "api"
	DocumentDir  = "open-data-files"
)

// Store is where archived files end up. Names are relative to one of the archive
// directories.
type Store interface {
	Ensure(dir string) error
	Write(dir, name string, contents []byte) error
}

// DirStore keeps the archive under Root on the local filesystem.
type DirStore struct {
	Root string
}

func (s DirStore) Ensure(dir string) error {
	return os.MkdirAll(filepath.Join(s.Root, dir), 0777)
}

// Write replaces dir/name through a rename, so an interrupted write leaves the previous
// file in place.
func (s DirStore) Write(dir, name string, contents []byte) error {
	target := filepath.Join(s.Root, dir, name)

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+name+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(contents)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	err = os.Chmod(tmp.Name(), 0644)
	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	err = os.Rename(tmp.Name(), target)
	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}
