package cmd

import (
	"sync"

	"envdiff/core/database"
	"envdiff/core/source"

	"gorm.io/gorm"
)

// databaseOpener connects db:<name> references with the configured driver
// and credentials. An empty name keeps the configured database. One
// connection is kept per name.
func databaseOpener(cfg database.Config) source.DatabaseOpener {
	var mu sync.Mutex
	conns := make(map[string]*gorm.DB)

	return func(name string) (*gorm.DB, error) {
		mu.Lock()
		defer mu.Unlock()

		if db, ok := conns[name]; ok {
			return db, nil
		}

		dbCfg := cfg
		if name != "" {
			dbCfg.Name = name
		}
		db, err := database.Connect(dbCfg)
		if err != nil {
			return nil, err
		}
		conns[name] = db
		return db, nil
	}
}

// anyOfKind reports whether one of refs points at kind.
func anyOfKind(refs []string, kind source.Kind) bool {
	for _, ref := range refs {
		if ref != "" && source.Classify(ref) == kind {
			return true
		}
	}
	return false
}
