package blob

import (
	"context"
	"fmt"

	"inventario/internal/infra/blob/fs"
	"inventario/internal/infra/blob/memory"
	"inventario/internal/infra/blob/s3"
)

// S3Config configures the S3 driver.
type S3Config = s3.Config

// DefaultS3Region is used when no region is configured.
const DefaultS3Region = s3.DefaultRegion

// Config selects a backup store. Driver defaults to fs.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open builds the blob.Store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		store, err := fs.New(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverS3:
		store, err := s3.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
