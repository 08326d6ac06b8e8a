package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/placepinapp/placepin-server/internal/config"
	"github.com/placepinapp/placepin-server/internal/logger"
	"github.com/placepinapp/placepin-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// Index is nil when search is disabled by configuration.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.Index == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Search disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.New(search.Options{
		DataPath: cfg.Data.BasePath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocCount()
	log.Info("Search index initialized", "documents", docCount)

	// A fresh index next to an existing database means the mapping changed
	// or the index was lost. Rebuild from the store.
	if docCount == 0 {
		storeHandle := do.MustInvoke[*StoreHandle](i)
		n, err := index.Rebuild(storeHandle.AllPlaces(context.Background()))
		if err != nil {
			log.Warn("Search index rebuild failed", "error", err)
		} else if n > 0 {
			log.Info("Search index rebuilt", "documents", n)
		}
	}

	return &SearchIndexHandle{Index: index}, nil
}
