package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState reports what the underlying store can do and how many watch
// streams are being relayed.
type ServiceState struct {
	RepositoryType  string `json:"repository_type"`
	Transactional   bool   `json:"transactional"`
	Watchable       bool   `json:"watchable"`
	EventBufferSize int    `json:"event_buffer_size"`
	ActiveWatches   int    `json:"active_watches"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	size := s.eventBufferSize
	s.mu.RUnlock()

	state := ServiceState{
		RepositoryType:  "none",
		EventBufferSize: size,
		ActiveWatches:   int(s.watches.Load()),
	}
	if s.repo == nil {
		return state
	}

	state.RepositoryType = "repository"
	if comp, ok := s.repo.(introspection.Component); ok {
		state.RepositoryType = comp.ComponentType()
	}
	_, state.Transactional = s.repo.(Transactional)
	_, state.Watchable = s.repo.(Watchable)
	return state
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var (
	_ introspection.Introspectable = (*Service)(nil)
	_ introspection.Component      = (*Service)(nil)
)
