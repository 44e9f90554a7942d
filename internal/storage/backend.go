// Package storage implements durable persistence for the session-state
// entities: the user record, the onboarding flag, and the user-data map.
//
// The Backend interface is what the state manager consumes. Concrete
// durability comes from a pluggable KV (memory, SQLite, Postgres, Redis);
// entity encoding comes from a codec, which is either plain JSON or an
// AES-GCM envelope, so encrypted and plain storage are swappable without
// touching the manager.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/sessionstate/internal/common"
	"github.com/dmitrijs2005/sessionstate/internal/models"
)

// Entity keys within the KV namespace.
const (
	keyUser       = "user"
	keyOnboarding = "onboarding"
	keyUserData   = "user_data"
)

// Backend is the persistence contract the state manager depends on.
// All failures are wrapped in *common.StorageError.
type Backend interface {
	SaveUser(ctx context.Context, user *models.User) error
	// LoadUser returns (nil, nil) when no user record is stored.
	LoadUser(ctx context.Context) (*models.User, error)
	DeleteUser(ctx context.Context) error

	SaveOnboardingStatus(ctx context.Context, completed bool) error
	// LoadOnboardingStatus returns false when the flag was never set.
	LoadOnboardingStatus(ctx context.Context) (bool, error)

	// SaveUserData stores the full, already-merged map.
	SaveUserData(ctx context.Context, data map[string]any) error
	// LoadUserData returns an empty map when nothing was stored.
	LoadUserData(ctx context.Context) (map[string]any, error)

	Close() error
}

// codec encodes entity records to the bytes handed to the KV and back.
type codec interface {
	encode(v any) ([]byte, error)
	decode(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) encode(v any) ([]byte, error)    { return json.Marshal(v) }
func (jsonCodec) decode(data []byte, v any) error { return json.Unmarshal(data, v) }

// KVBackend implements Backend over any KV using a codec.
type KVBackend struct {
	kv    KV
	codec codec
}

var _ Backend = (*KVBackend)(nil)

// NewBackend returns a plain (unencrypted JSON) backend over kv.
func NewBackend(kv KV) *KVBackend {
	return &KVBackend{kv: kv, codec: jsonCodec{}}
}

// storedUser is the serialized user record. Timestamps are kept as RFC 3339
// strings with nanoseconds so they round-trip losslessly through every KV.
type storedUser struct {
	ID          string         `json:"id"`
	Email       string         `json:"email,omitempty"`
	Name        string         `json:"name,omitempty"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	CreatedAt   string         `json:"created_at"`
	LastLoginAt string         `json:"last_login_at"`
	Preferences map[string]any `json:"preferences,omitempty"`
	CustomData  map[string]any `json:"custom_data,omitempty"`
}

func toStored(u *models.User) *storedUser {
	return &storedUser{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339Nano),
		LastLoginAt: u.LastLoginAt.UTC().Format(time.RFC3339Nano),
		Preferences: u.Preferences,
		CustomData:  u.CustomData,
	}
}

func fromStored(s *storedUser) (*models.User, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, s.CreatedAt)
	if err != nil {
		return nil, err
	}
	lastLoginAt, err := time.Parse(time.RFC3339Nano, s.LastLoginAt)
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:          s.ID,
		Email:       s.Email,
		Name:        s.Name,
		AvatarURL:   s.AvatarURL,
		CreatedAt:   createdAt,
		LastLoginAt: lastLoginAt,
		Preferences: s.Preferences,
		CustomData:  s.CustomData,
	}, nil
}

func (b *KVBackend) SaveUser(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return common.NewStorageError("SaveUser", err)
	}
	data, err := b.codec.encode(toStored(user))
	if err != nil {
		return common.NewStorageError("SaveUser", err)
	}
	return common.NewStorageError("SaveUser", b.kv.Set(ctx, keyUser, data))
}

func (b *KVBackend) LoadUser(ctx context.Context) (*models.User, error) {
	data, err := b.kv.Get(ctx, keyUser)
	if err != nil {
		return nil, common.NewStorageError("LoadUser", err)
	}
	if data == nil {
		return nil, nil
	}
	var s storedUser
	if err := b.codec.decode(data, &s); err != nil {
		return nil, common.NewStorageError("LoadUser", err)
	}
	u, err := fromStored(&s)
	if err != nil {
		return nil, common.NewStorageError("LoadUser", err)
	}
	return u, nil
}

func (b *KVBackend) DeleteUser(ctx context.Context) error {
	return common.NewStorageError("DeleteUser", b.kv.Delete(ctx, keyUser))
}

func (b *KVBackend) SaveOnboardingStatus(ctx context.Context, completed bool) error {
	data, err := b.codec.encode(completed)
	if err != nil {
		return common.NewStorageError("SaveOnboardingStatus", err)
	}
	return common.NewStorageError("SaveOnboardingStatus", b.kv.Set(ctx, keyOnboarding, data))
}

func (b *KVBackend) LoadOnboardingStatus(ctx context.Context) (bool, error) {
	data, err := b.kv.Get(ctx, keyOnboarding)
	if err != nil {
		return false, common.NewStorageError("LoadOnboardingStatus", err)
	}
	if data == nil {
		return false, nil
	}
	var completed bool
	if err := b.codec.decode(data, &completed); err != nil {
		return false, common.NewStorageError("LoadOnboardingStatus", err)
	}
	return completed, nil
}

func (b *KVBackend) SaveUserData(ctx context.Context, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := b.codec.encode(data)
	if err != nil {
		return common.NewStorageError("SaveUserData", err)
	}
	return common.NewStorageError("SaveUserData", b.kv.Set(ctx, keyUserData, raw))
}

func (b *KVBackend) LoadUserData(ctx context.Context) (map[string]any, error) {
	raw, err := b.kv.Get(ctx, keyUserData)
	if err != nil {
		return nil, common.NewStorageError("LoadUserData", err)
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	data := map[string]any{}
	if err := b.codec.decode(raw, &data); err != nil {
		return nil, common.NewStorageError("LoadUserData", err)
	}
	return data, nil
}

func (b *KVBackend) Close() error {
	return b.kv.Close()
}
