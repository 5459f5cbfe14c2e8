package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Manager owns the current SessionContext. The first request builds it;
// later requests reuse it until Refresh tears it down. Build is
// serialized so concurrent first requests do not race two acquisitions.
type Manager struct {
	builder *Builder
	logger  *zap.Logger

	mu      sync.Mutex
	current *SessionContext
}

// NewManager constructs a Manager.
func NewManager(builder *Builder, logger *zap.Logger) *Manager {
	return &Manager{builder: builder, logger: logger}
}

// Session returns the current session, building one if none exists.
func (m *Manager) Session(ctx context.Context) (*SessionContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.current, nil
	}

	s, err := m.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	m.current = s
	return s, nil
}

// Refresh clears the memoization cache and rebuilds the session from
// scratch. This is the manual "refresh data" operation.
func (m *Manager) Refresh(ctx context.Context) (*SessionContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.builder.memo.Clear(ctx); err != nil {
		m.logger.Warn("cache clear failed", zap.Error(err))
	}
	m.current = nil

	s, err := m.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	m.current = s
	m.logger.Info("session refreshed", zap.String("session_id", s.ID))
	return s, nil
}
