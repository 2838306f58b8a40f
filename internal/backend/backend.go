// Package backend selects and opens the sale store named by configuration.
package backend

import (
	"context"

	"bountytracker/internal/store"
)

type (
	// Backend is the sale store selected by configuration.
	Backend interface {
		store.SaleStore
	}

	// Pinger is implemented by backends with a live connection to probe.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	Factory interface {
		CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	}

	// BackendResult pairs an opened store with the function releasing it.
	// Cleanup is nil for stores holding no external resources.
	BackendResult struct {
		Backend Backend
		Cleanup func() error
	}

	BackendType string

	Config struct {
		Type BackendType

		SQLiteDBPath  string
		MongoURI      string
		MongoDatabase string
		// SeedFile preloads the memory store from a JSON export.
		SeedFile string
	}
)

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
)

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, MongoBackend}
}

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	for _, known := range GetBackendTypes() {
		if bt == known {
			return true
		}
	}
	return false
}
