package circuitbreaker

import (
	"context"
	"sync"

	"eaglechat-server/internal/common/logging"
)

// GoBreakerManager manages one circuit breaker per named upstream
type GoBreakerManager struct {
	breakers map[string]*GoBreakerAdapter
	logger   logging.Logger
	mu       sync.RWMutex
}

// NewGoBreakerManager creates a new manager using gobreaker
func NewGoBreakerManager(logger logging.Logger) *GoBreakerManager {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &GoBreakerManager{
		breakers: make(map[string]*GoBreakerAdapter),
		logger:   logger,
	}
}

// GetOrCreate gets an existing circuit breaker or creates a new one
func (m *GoBreakerManager) GetOrCreate(name string, config Config) *GoBreakerAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if breaker, exists := m.breakers[name]; exists {
		return breaker
	}

	breaker := NewGoBreaker(name, config, m.logger)
	m.breakers[name] = breaker
	return breaker
}

// Get retrieves an existing circuit breaker by name
func (m *GoBreakerManager) Get(name string) (*GoBreakerAdapter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	breaker, exists := m.breakers[name]
	return breaker, exists
}

// Execute executes a function with circuit breaker protection
func (m *GoBreakerManager) Execute(ctx context.Context, name string, config Config, fn func() error) error {
	breaker := m.GetOrCreate(name, config)
	return breaker.Execute(ctx, fn)
}

// AllStats returns statistics for all circuit breakers
func (m *GoBreakerManager) AllStats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]Stats, 0, len(m.breakers))
	for _, breaker := range m.breakers {
		stats = append(stats, breaker.Stats())
	}

	return stats
}

// IsOpen checks if a circuit breaker is in open state
func (m *GoBreakerManager) IsOpen(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if breaker, exists := m.breakers[name]; exists {
		return breaker.IsOpen()
	}

	return false
}
