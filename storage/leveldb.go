package storage

import (
	"fmt"
	"path/filepath"

	log "github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/config"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// InitDB opens the local ledger database of the configured network
func InitDB(cfg *config.Config) (*leveldb.DB, error) {
	dbName := fmt.Sprintf("leveldb_%s.db", networkName(cfg))
	dbPath := filepath.Join(cfg.DB.Path, dbName)

	// Create DB directory if it does not exist
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		log.Error("Failed to open db: ", err)
		return nil, err
	}

	log.Info("Successfully opened db: ", dbPath)
	return db, nil
}

// OpenMemDB opens a throwaway in-memory database
func OpenMemDB() (*leveldb.DB, error) {
	return leveldb.Open(storage.NewMemStorage(), nil)
}

func networkName(cfg *config.Config) string {
	if cfg.Common.NetworkID == "" {
		return "localnet"
	}
	return cfg.Common.NetworkID
}
