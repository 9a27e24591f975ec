package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
)

var (
	store   docstore.Store
	storeMu sync.RWMutex
)

// GetDocStore returns the active document store, nil until connected.
func GetDocStore() docstore.Store {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return store
}

// SetDocStore installs s as the active store. Tests use it with an in-memory store.
func SetDocStore(s docstore.Store) {
	storeMu.Lock()
	store = s
	storeMu.Unlock()
}

// ConnectDocStore opens the backend chosen by STORE_BACKEND.
// The mysql backend blocks until the database is reachable.
func ConnectDocStore() error {
	switch StoreBackend() {
	case "badger":
		path := strings.TrimSpace(os.Getenv("BADGER_PATH"))
		if path == "" {
			path = "./data/badger"
		}
		s, err := docstore.OpenBadger(docstore.BadgerConfig{
			Path:       path,
			SyncWrites: true,
			Logger:     GetLogger(),
		})
		if err != nil {
			return err
		}
		SetDocStore(s)
		log.Printf("document store ready (backend=badger path=%s)", path)
		return nil
	case "mysql":
		ConnectDatabaseWithRetry()
		s := docstore.NewGormStore(GetDB(), tenantpath.TenantOf)
		if !envBool("SKIP_MIGRATIONS") {
			if err := s.Migrate(); err != nil {
				return fmt.Errorf("migrate documents table: %w", err)
			}
		}
		SetDocStore(s)
		log.Printf("document store ready (backend=mysql)")
		return nil
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", StoreBackend())
	}
}

// CloseDocStore closes the active store (best-effort).
func CloseDocStore() {
	storeMu.Lock()
	defer storeMu.Unlock()
	if store != nil {
		_ = store.Close()
		store = nil
	}
}
