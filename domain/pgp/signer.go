package pgp

import (
	"bytes"
	"fmt"

	"github.com/zeromicro/go-zero/core/syncx"
	"golang.org/x/crypto/openpgp"

	"github.com/kjanat/gpg-signing-service/domain/keycache"
	"github.com/kjanat/gpg-signing-service/domain/keystore"
)

// SignResult is a detached signature plus the identity of the key that
// produced it.
type SignResult struct {
	Signature   string
	KeyID       string
	Algorithm   string
	Fingerprint string
}

// Signer produces detached armored signatures, keeping decrypted key material
// in the TTL cache between requests. Cold-path decryption runs under a
// single-flight so a thundering herd on one key decrypts once.
type Signer struct {
	cache *keycache.Cache
	group syncx.SingleFlight
}

func NewSigner(cache *keycache.Cache) *Signer {
	return &Signer{
		cache: cache,
		group: syncx.NewSingleFlight(),
	}
}

// Sign produces a detached ASCII-armored signature over commitData with the
// stored key, decrypting with the passphrase on a cache miss.
func (s *Signer) Sign(commitData []byte, stored *keystore.StoredKey, passphrase string) (*SignResult, error) {
	entity, err := s.decryptedEntity(stored, passphrase)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, entity, bytes.NewReader(commitData), nil); err != nil {
		return nil, fmt.Errorf("detached signing failed: %w", err)
	}

	return &SignResult{
		Signature:   buf.String(),
		KeyID:       stored.KeyID,
		Algorithm:   stored.Algorithm,
		Fingerprint: stored.Fingerprint,
	}, nil
}

func (s *Signer) decryptedEntity(stored *keystore.StoredKey, passphrase string) (*openpgp.Entity, error) {
	if entity, ok := s.cache.Get(stored.KeyID); ok {
		return entity, nil
	}

	v, err := s.group.Do(stored.KeyID, func() (interface{}, error) {
		if entity, ok := s.cache.Get(stored.KeyID); ok {
			return entity, nil
		}

		entity, err := readEntity(stored.ArmoredPrivateKey)
		if err != nil {
			return nil, err
		}
		if entity.PrivateKey == nil {
			return nil, fmt.Errorf("%w: armored block holds no private key", ErrParse)
		}
		if err := decryptEntity(entity, passphrase); err != nil {
			return nil, err
		}

		s.cache.Set(stored.KeyID, entity)
		return entity, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*openpgp.Entity), nil
}
