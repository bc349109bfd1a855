//go:build windows

package btrie

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// dirLock only creates the LOCK file on windows; exclusion is not enforced.
type dirLock struct {
	f *os.File
}

func lockDir(dir string) (*dirLock, error) {
	path := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return &dirLock{f: f}, nil
}

func (l *dirLock) release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return errors.Wrap(err, "release directory lock")
}
