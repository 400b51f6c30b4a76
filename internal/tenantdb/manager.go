// Package tenantdb manages per-tenant database handles. Each tenant
// lives in its own database; the manager opens handles lazily and
// reuses them across requests.
package tenantdb

import (
	"context"
	"errors"
	"sync"

	"github.com/workstack/hrsuite/internal/config"
	obslogger "github.com/workstack/hrsuite/internal/observability/logger"
	"github.com/workstack/hrsuite/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Manager struct {
	base db.Config
	log  *zap.Logger

	mu      sync.RWMutex
	handles map[string]*gorm.DB
}

func NewManager(cfg config.Config, log *zap.Logger) *Manager {
	return &Manager{
		base:    db.FromAppConfig(cfg),
		log:     log.Named("tenantdb"),
		handles: make(map[string]*gorm.DB),
	}
}

// Get returns the handle for the named tenant database, opening it on
// first use. The handle shares the central pool settings.
func (m *Manager) Get(ctx context.Context, databaseName string) (*gorm.DB, error) {
	if databaseName == "" {
		return nil, errors.New("tenant database name is empty")
	}

	m.mu.RLock()
	handle, ok := m.handles[databaseName]
	m.mu.RUnlock()
	if ok {
		return handle.WithContext(ctx), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if handle, ok := m.handles[databaseName]; ok {
		return handle.WithContext(ctx), nil
	}

	cfg := m.base
	cfg.Name = databaseName
	handle, err := db.Open(cfg, &gorm.Config{
		Logger: obslogger.NewGormLogger(m.log),
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("tenant database opened", zap.String("database", databaseName))
	m.handles[databaseName] = handle
	return handle.WithContext(ctx), nil
}

// Close closes all tenant handles.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, handle := range m.handles {
		sqlDB, err := handle.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.handles, name)
	}
	return firstErr
}

func registerHooks(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return m.Close()
		},
	})
}

var Module = fx.Module("tenantdb",
	fx.Provide(NewManager),
	fx.Invoke(registerHooks),
)
