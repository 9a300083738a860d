package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

var (
	ErrInvalidSession = errors.New("session id is empty")
	ErrNoTurns        = errors.New("no turns to append")
)

// Store is the session history contract used by the dispatch engine.
// Append writes all turns or none; a session is created by its first append
// and reading an unseen session returns an empty history.
type Store interface {
	Append(ctx context.Context, sessionID string, turns ...contractx.Turn) error
	ReadAll(ctx context.Context, sessionID string) ([]contractx.Turn, error)
}

// MemoryStore keeps histories in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]contractx.Turn
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]contractx.Turn)}
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, turns ...contractx.Turn) error {
	if err := checkAppend(sessionID, turns); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turns...)
	return nil
}

func (s *MemoryStore) ReadAll(ctx context.Context, sessionID string) ([]contractx.Turn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]contractx.Turn(nil), s.sessions[sessionID]...), nil
}

func checkAppend(sessionID string, turns []contractx.Turn) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if len(turns) == 0 {
		return ErrNoTurns
	}
	for i, t := range turns {
		switch t.Role {
		case contractx.RoleUser, contractx.RoleAssistant:
		default:
			return fmt.Errorf("%w: turn %d has role=%q", contractx.ErrValidation, i, t.Role)
		}
	}
	return nil
}
