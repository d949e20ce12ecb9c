package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"poRequestTracker/models"
)

// ErrInvalidName is returned for file names that would escape their directory.
var ErrInvalidName = errors.New("invalid file name")

// InvoiceExtensions lists the extensions accepted for single invoice uploads.
var InvoiceExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// AllowedInvoiceFile reports whether name has an accepted invoice extension.
func AllowedInvoiceFile(name string) bool {
	return InvoiceExtensions[strings.ToLower(filepath.Ext(name))]
}

// Store writes and reads uploaded files inside a single directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string { return s.dir }

// Path returns the confined absolute path for name.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", ErrInvalidName
	}
	p := filepath.Join(s.dir, name)
	if filepath.Dir(p) != filepath.Clean(s.dir) {
		return "", ErrInvalidName
	}
	return p, nil
}

// Save atomically writes r to name, replacing any existing file.
func (s *Store) Save(name string, r io.Reader) (int64, error) {
	path, err := s.Path(name)
	if err != nil {
		return 0, err
	}
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return 0, fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	n, err := io.Copy(pf, r)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", name, err)
	}
	return n, nil
}

// Open opens name for reading.
func (s *Store) Open(name string) (*os.File, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes name. A missing file is not an error.
func (s *Store) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether name is present.
func (s *Store) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// InvoiceFilename builds the stored name for an invoice attached to a PO.
func InvoiceFilename(poID int64, ts time.Time, original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("PO%04d_%s_%s", poID, ts.Format(models.FileTimestampLayout), base)
}
