package dbclient

import (
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// PoolManager caches one *sql.DB per DSN so repeated queries against the
// same connection reuse the driver's pool instead of reconnecting.
type PoolManager struct {
	mu    sync.Mutex
	pools map[string]*sql.DB
}

func NewPoolManager() *PoolManager {
	return &PoolManager{pools: make(map[string]*sql.DB)}
}

// Get returns the pool for dsn, opening one on first use.
func (p *PoolManager) Get(driverName, dsn string) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if db, ok := p.pools[dsn]; ok {
		return db, nil
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	// Sensible pool settings for a desktop app
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	p.pools[dsn] = db
	return db, nil
}

// Close drops and closes the pool for dsn, if any.
func (p *PoolManager) Close(dsn string) {
	p.mu.Lock()
	db, ok := p.pools[dsn]
	delete(p.pools, dsn)
	p.mu.Unlock()
	if ok {
		db.Close()
	}
}

// CloseAll closes every cached pool. Called on app shutdown.
func (p *PoolManager) CloseAll() {
	p.mu.Lock()
	pools := p.pools
	p.pools = make(map[string]*sql.DB)
	p.mu.Unlock()
	for _, db := range pools {
		db.Close()
	}
}
