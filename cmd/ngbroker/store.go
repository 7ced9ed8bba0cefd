package main

import (
	"fmt"
	"os"

	"github.com/flynn/noise"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/config"
	"github.com/nextgraph-core/ng/pkg/netconn"
)

// openStore builds the configured blockstore backend, gzip-compressed
// when backed by files (large ORM/snapshot payloads compress well;
// spec.md names no on-disk format requirement, so the compressed file
// layout is an implementation choice).
func openStore(cfg *config.Config) (*blockstore.Store, error) {
	switch cfg.Storage.Backend {
	case "memory", "":
		return blockstore.New(blockstore.NewMemoryBackend()), nil
	case "file":
		fb, err := blockstore.NewFileBackend(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		return blockstore.New(blockstore.NewCompressingBackend(fb)), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func readNoiseKey(path string) (noise.DHKey, error) {
	if path == "" {
		return noise.DHKey{}, fmt.Errorf("noise_static_key_path not configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return noise.DHKey{}, err
	}
	return netconn.StaticKeypairFromPrivate(data)
}
