// Package storage resolves where the database and uploaded files live and
// reports whether that location survives a redeploy.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"poRequestTracker/internal/db"
)

const (
	InvoiceDirName = "invoice_uploads"
	BulkDirName    = "bulk_uploads"

	probeName = ".write_probe"
)

// EphemeralWarning is logged at startup when DATA_DIR is not set.
const EphemeralWarning = "DATA_DIR not set: database and uploads are on ephemeral storage and will be lost on redeploy"

// Layout is the on-disk arrangement of application data.
type Layout struct {
	DataDir    string
	DBPath     string
	InvoiceDir string
	BulkDir    string
	// Persistent is true when DataDir came from DATA_DIR, i.e. a mounted volume.
	Persistent bool
}

// Resolve computes the layout under dataDir. An empty dataDir falls back to the
// working directory. explicit reports whether DATA_DIR was set.
func Resolve(dataDir string, explicit bool) Layout {
	if dataDir == "" {
		if wd, err := os.Getwd(); err == nil {
			dataDir = wd
		} else {
			dataDir = "."
		}
		explicit = false
	}
	dataDir = filepath.Clean(dataDir)
	return Layout{
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, db.DefaultFilename),
		InvoiceDir: filepath.Join(dataDir, InvoiceDirName),
		BulkDir:    filepath.Join(dataDir, BulkDirName),
		Persistent: explicit,
	}
}

// Ensure creates the data directory and both upload directories.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.DataDir, l.InvoiceDir, l.BulkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Report logs a single line describing whether data will survive a redeploy.
func (l Layout) Report(logger zerolog.Logger) {
	if l.Persistent {
		logger.Info().
			Str("data_dir", l.DataDir).
			Str("db_path", l.DBPath).
			Msg("persistent storage enabled")
		return
	}
	logger.Warn().Str("data_dir", l.DataDir).Msg(EphemeralWarning)
}

// Probe checks that DataDir accepts durable writes.
func (l Layout) Probe() error {
	path := filepath.Join(l.DataDir, probeName)
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create probe file: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()
	if _, err := pf.Write([]byte("ok")); err != nil {
		return fmt.Errorf("write probe file: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit probe file: %w", err)
	}
	return os.Remove(path)
}
