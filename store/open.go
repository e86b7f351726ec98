package store

import (
	"fmt"
	"os"
	"path/filepath"

	"mucajeyadmin/crypto"
)

// Options selects and configures a backend.
type Options struct {
	// Driver is "json" (default) or "sqlite".
	Driver string
	File   string
	DB     string
	// APIKeySecret enables sealing of API keys at rest.
	APIKeySecret string
}

// Open builds the configured store. The returned close func is never nil.
func Open(opts Options) (Store, func() error, error) {
	var (
		st      Store
		closeFn = func() error { return nil }
	)

	switch opts.Driver {
	case "", "json":
		st = NewFileStore(opts.File)
	case "sqlite":
		if dir := filepath.Dir(opts.DB); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		db, err := OpenSQLite(opts.DB)
		if err != nil {
			return nil, nil, err
		}
		st, closeFn = db, db.Close
	default:
		return nil, nil, fmt.Errorf("unknown user store driver %q", opts.Driver)
	}

	if opts.APIKeySecret != "" {
		sealer, err := crypto.NewSealer(opts.APIKeySecret)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		st = NewSealed(st, sealer)
	}
	return st, closeFn, nil
}
