package tables

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/apperrors"
)

// Materializer writes result files under a scratch directory. Files are
// written to a sibling temp file and renamed into place, so readers never
// observe a half-written result. With collision checking enabled a write
// whose target already exists with different content fails with
// apperrors.ErrCollision instead of overwriting it.
type Materializer struct {
	dir            string
	collisionCheck bool
	logger         *zap.Logger
}

// NewMaterializer creates a Materializer rooted at dir.
func NewMaterializer(dir string, collisionCheck bool, logger *zap.Logger) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{dir: dir, collisionCheck: collisionCheck, logger: logger}
}

// WriteTable serializes t into dir/name and returns the full path.
func (m *Materializer) WriteTable(name string, t *Table, comma rune) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, t, comma); err != nil {
		return "", fmt.Errorf("serialize %s: %w", name, err)
	}
	return m.place(filepath.Join(m.dir, name), buf.Bytes())
}

// CopyInto copies src into the subdirectory subdir, keeping its base name.
func (m *Materializer) CopyInto(subdir, src string) (string, error) {
	target := filepath.Join(m.dir, subdir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create result directory: %w", err)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	return m.place(filepath.Join(target, filepath.Base(src)), data)
}

// MkdirAll creates dir/subdir.
func (m *Materializer) MkdirAll(subdir string) (string, error) {
	target := filepath.Join(m.dir, subdir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", err
	}
	return target, nil
}

func (m *Materializer) place(path string, data []byte) (string, error) {
	if m.collisionCheck {
		existing, err := os.ReadFile(path)
		switch {
		case err == nil:
			if md5.Sum(existing) != md5.Sum(data) {
				m.logger.Warn("Result file collision",
					zap.String("path", path),
					zap.Int("existing_bytes", len(existing)),
					zap.Int("new_bytes", len(data)))
				return "", fmt.Errorf("%w: %s", apperrors.ErrCollision, path)
			}
			return path, nil
		case !os.IsNotExist(err):
			return "", err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".materialize-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return path, nil
}
