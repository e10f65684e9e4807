// Package blob selects and exposes the blob storage backends used for
// exported QC artifacts.
package blob

import (
	"context"
	"fmt"
	"os"

	"gclabcore/internal/blob/core"
	"gclabcore/internal/infra/blob/fs"
	"gclabcore/internal/infra/blob/memory"
	"gclabcore/internal/infra/blob/s3"
)

// Aliases keep call sites concise while the contracts live in core.
type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = core.ErrUnsupported

// NewMemory returns an in-memory store for tests.
func NewMemory() Store { return memory.New() }

// NewFilesystem returns a filesystem store rooted at the given directory.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// Open selects a blob.Store implementation using environment variables.
//
//	GCLAB_BLOB_DRIVER: fs|s3|memory (default fs)
//	GCLAB_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("GCLAB_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("GCLAB_BLOB_FS_ROOT")
		return fs.New(root)
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
