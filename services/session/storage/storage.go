package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/briefly/backend/pkg/gen"
	"github.com/briefly/backend/services/session/entity"
)

var ErrSessionNotFound = errors.New("session not found")

type Storage interface {
	CreateSession(ctx context.Context) (*entity.Session, error)
	GetSession(ctx context.Context, id string) (*entity.Session, error)
	UpdateSession(ctx context.Context, session *entity.Session) error
	DeleteSession(ctx context.Context, id string) error
}

type storage struct {
	mu       sync.RWMutex
	sessions map[string]*entity.Session
	uuid     gen.UUIDGenerator
}

func New(uuid gen.UUIDGenerator) Storage {
	return &storage{
		sessions: make(map[string]*entity.Session),
		uuid:     uuid,
	}
}

func (s *storage) CreateSession(ctx context.Context) (*entity.Session, error) {
	now := time.Now()
	session := &entity.Session{
		ID:        s.uuid.Next().String(),
		CreatedAt: now,
		UpdatedAt: now,
		Stage:     entity.StageNew,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session

	return session, nil
}

func (s *storage) GetSession(ctx context.Context, id string) (*entity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *storage) UpdateSession(ctx context.Context, session *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		return ErrSessionNotFound
	}

	session.UpdatedAt = time.Now()
	s.sessions[session.ID] = session
	return nil
}

func (s *storage) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return ErrSessionNotFound
	}

	delete(s.sessions, id)
	return nil
}
