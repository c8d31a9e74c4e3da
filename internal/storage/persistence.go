package storage

import (
	"fmt"
	"io"
	"watchsync/internal/models"
	"watchsync/internal/providers"
	"watchsync/internal/storage/interfaces"
	"watchsync/internal/structures"
)

// Adapter is a persistence backend that holds resources until closed.
type Adapter interface {
	models.PersistenceAdapter
	io.Closer
}

type memoryAdapter struct {
	*models.MemoryPersistence
}

func (memoryAdapter) Close() error { return nil }

// NewPersistence builds the adapter selected by persistence.driver.
func NewPersistence(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) (Adapter, error) {
	switch conf.Persistence.Driver {
	case "memory":
		logger.Warnf(providers.TypeApp, "Using in-memory persistence, history is lost on exit")
		return memoryAdapter{models.NewMemoryPersistence()}, nil
	case "file", "":
		logger.Infof(providers.TypeApp, "Using file persistence in %s", conf.Persistence.Dir)
		return NewFileAdapter(conf.Persistence.Dir, compressor)
	case "sqlite":
		logger.Infof(providers.TypeApp, "Using sqlite persistence in %s", conf.Persistence.Dir)
		return NewSQLiteAdapter(conf.Persistence.Dir)
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", conf.Persistence.Driver)
	}
}

// NewProgressStore binds the local history to the configured document key.
// The document is read by the scheduler's Restore.
func NewProgressStore(conf *structures.Config, adapter Adapter) *models.ProgressStore {
	return models.NewProgressStore(adapter, conf.Persistence.Key)
}
