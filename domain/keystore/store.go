package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zeromicro/go-zero/core/logx"
)

var ErrNotFound = errors.New("key not found")

var keyIDPattern = regexp.MustCompile(`^[0-9A-F]{16}$`)

const (
	minArmoredBytes = 350
	maxArmoredBytes = 10_000

	armorBeginMarker = "BEGIN PGP PRIVATE KEY BLOCK"
	armorEndMarker   = "END PGP PRIVATE KEY BLOCK"
)

// StoredKey is the persistent unit of key material. The armored private key
// never leaves the store other than through Get for signing.
type StoredKey struct {
	KeyID             string    `db:"key_id" json:"keyId"`
	Fingerprint       string    `db:"fingerprint" json:"fingerprint"`
	Algorithm         string    `db:"algorithm" json:"algorithm"`
	ArmoredPrivateKey string    `db:"armored_private_key" json:"-"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
}

// KeyMetadata is the private-material-free view returned by List.
type KeyMetadata struct {
	KeyID       string    `db:"key_id" json:"keyId"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	Algorithm   string    `db:"algorithm" json:"algorithm"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

const (
	upsertKeyQuery = `
		INSERT INTO gpg_keys (key_id, fingerprint, algorithm, armored_private_key, created_at)
		VALUES (:key_id, :fingerprint, :algorithm, :armored_private_key, :created_at)
		ON CONFLICT (key_id) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			algorithm = EXCLUDED.algorithm,
			armored_private_key = EXCLUDED.armored_private_key,
			created_at = EXCLUDED.created_at`

	selectKeyQuery = `
		SELECT key_id, fingerprint, algorithm, armored_private_key, created_at
		FROM gpg_keys WHERE key_id = $1`

	listKeysQuery = `
		SELECT key_id, fingerprint, algorithm, created_at
		FROM gpg_keys ORDER BY created_at DESC`

	deleteKeyQuery = `DELETE FROM gpg_keys WHERE key_id = $1`

	countKeysQuery = `SELECT COUNT(*) FROM gpg_keys`
)

// Store is the durable keyId -> StoredKey map.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// NormalizeKeyID uppercases a key id and validates the 16-hex-character form.
func NormalizeKeyID(keyID string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(keyID))
	if !keyIDPattern.MatchString(normalized) {
		return "", fmt.Errorf("key id must be 16 hex characters, got %q", keyID)
	}
	return normalized, nil
}

// ValidateArmor checks the size bounds and BEGIN/END markers of an armored
// private key block.
func ValidateArmor(armored string) error {
	if len(armored) < minArmoredBytes || len(armored) > maxArmoredBytes {
		return fmt.Errorf("armored key must be between %d and %d bytes", minArmoredBytes, maxArmoredBytes)
	}
	if !strings.Contains(armored, armorBeginMarker) || !strings.Contains(armored, armorEndMarker) {
		return fmt.Errorf("armored key is missing PGP private key markers")
	}
	return nil
}

// Put stores or overwrites a key. The key id is normalized; the armored block
// is validated. Idempotent for identical payloads.
func (s *Store) Put(ctx context.Context, key *StoredKey) error {
	normalized, err := NormalizeKeyID(key.KeyID)
	if err != nil {
		return err
	}
	key.KeyID = normalized

	if err := ValidateArmor(key.ArmoredPrivateKey); err != nil {
		return err
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	if _, err := s.db.NamedExecContext(ctx, upsertKeyQuery, key); err != nil {
		logx.WithContext(ctx).Errorf("Failed to store key %s: %v", key.KeyID, err)
		return fmt.Errorf("failed to store key: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, keyID string) (*StoredKey, error) {
	normalized, err := NormalizeKeyID(keyID)
	if err != nil {
		return nil, err
	}

	var key StoredKey
	if err := s.db.GetContext(ctx, &key, selectKeyQuery, normalized); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logx.WithContext(ctx).Errorf("Failed to get key %s: %v", normalized, err)
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return &key, nil
}

func (s *Store) List(ctx context.Context) ([]KeyMetadata, error) {
	keys := []KeyMetadata{}
	if err := s.db.SelectContext(ctx, &keys, listKeysQuery); err != nil {
		logx.WithContext(ctx).Errorf("Failed to list keys: %v", err)
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

func (s *Store) Delete(ctx context.Context, keyID string) (bool, error) {
	normalized, err := NormalizeKeyID(keyID)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, deleteKeyQuery, normalized)
	if err != nil {
		logx.WithContext(ctx).Errorf("Failed to delete key %s: %v", normalized, err)
		return false, fmt.Errorf("failed to delete key: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete key: %w", err)
	}
	return affected > 0, nil
}

// Count returns the number of stored keys, used by the health check.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, countKeysQuery); err != nil {
		return 0, fmt.Errorf("failed to count keys: %w", err)
	}
	return count, nil
}
