package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/sessionstate/internal/common"
	"github.com/dmitrijs2005/sessionstate/internal/cryptox"
)

// keySalt stores the random Argon2 salt next to the sealed records. The salt
// itself is not secret, only the passphrase is.
const keySalt = "crypto_salt"

const saltSize = 16

// sealedCodec encodes records as JSON and seals them with AES-GCM.
type sealedCodec struct {
	key []byte
}

func (c sealedCodec) encode(v any) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return cryptox.SealRecord(plain, c.key)
}

func (c sealedCodec) decode(data []byte, v any) error {
	plain, err := cryptox.OpenRecord(data, c.key)
	if err != nil {
		return err
	}
	return json.Unmarshal(plain, v)
}

// NewEncryptedBackend returns a backend that stores every entity as an
// AES-256-GCM envelope under a key derived from passphrase. The salt is
// loaded from kv, or generated and persisted on first use, so reopening the
// same store with the same passphrase yields the same key.
//
// Opening an existing store with the wrong passphrase is not detected here;
// it surfaces as a StorageError on the first Load.
func NewEncryptedBackend(ctx context.Context, kv KV, passphrase []byte) (*KVBackend, error) {
	salt, err := kv.Get(ctx, keySalt)
	if err != nil {
		return nil, common.NewStorageError("LoadSalt", err)
	}
	if salt == nil {
		salt = common.GenerateRandByteArray(saltSize)
		if err := kv.Set(ctx, keySalt, salt); err != nil {
			return nil, common.NewStorageError("SaveSalt", err)
		}
	}
	if len(salt) != saltSize {
		return nil, common.NewStorageError("LoadSalt",
			fmt.Errorf("unexpected salt length %d", len(salt)))
	}

	key := cryptox.DeriveKey(passphrase, salt)
	return &KVBackend{kv: kv, codec: sealedCodec{key: key}}, nil
}
