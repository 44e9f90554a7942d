// Package tokenstore persists the opaque session token used to authenticate
// outbound API requests. The token's lifecycle is independent of the user
// record: either may be cleared without the other, though sign-out clears
// both.
package tokenstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/sessionstate/internal/storage"
)

// Store is the session-token persistence contract.
type Store interface {
	SetSessionToken(ctx context.Context, token string) error
	// SessionToken returns "" when no token is stored.
	SessionToken(ctx context.Context) (string, error)
	ClearSessionToken(ctx context.Context) error
}

// Mint returns a fresh opaque session token. Real deployments receive tokens
// from their auth server; demo flows mint one locally.
func Mint() string {
	return uuid.NewString()
}

const kvTokenKey = "session_token"

// KVStore keeps the token in any storage.KV, typically the same store the
// session entities live in.
type KVStore struct {
	kv storage.KV
}

var _ Store = (*KVStore)(nil)

func NewKVStore(kv storage.KV) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) SetSessionToken(ctx context.Context, token string) error {
	return s.kv.Set(ctx, kvTokenKey, []byte(token))
}

func (s *KVStore) SessionToken(ctx context.Context) (string, error) {
	v, err := s.kv.Get(ctx, kvTokenKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *KVStore) ClearSessionToken(ctx context.Context) error {
	return s.kv.Delete(ctx, kvTokenKey)
}

// MemoryStore is a test double holding the token in memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string

	// FailNext, when set, makes the next call return that error.
	FailNext error
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

func (s *MemoryStore) SetSessionToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.token = token
	return nil
}

func (s *MemoryStore) SessionToken(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return "", err
	}
	return s.token, nil
}

func (s *MemoryStore) ClearSessionToken(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.token = ""
	return nil
}
