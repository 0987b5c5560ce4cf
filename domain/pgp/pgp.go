package pgp

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"
)

var (
	ErrParse   = errors.New("failed to parse armored key")
	ErrDecrypt = errors.New("failed to decrypt private key")
)

// pubKeyAlgoEdDSA is the RFC 4880bis EdDSA algorithm identifier (22).
// golang.org/x/crypto/openpgp/packet does not export this constant.
const pubKeyAlgoEdDSA packet.PublicKeyAlgorithm = 22

// ParsedKeyInfo describes an armored private key after parsing and, when a
// passphrase was supplied, decryption.
type ParsedKeyInfo struct {
	KeyID       string
	Fingerprint string
	Algorithm   string
	UserID      string
	Encrypted   bool
}

// AlgorithmName maps an OpenPGP public-key algorithm identifier to its
// RFC 4880 section 9.1 name.
func AlgorithmName(algo packet.PublicKeyAlgorithm) string {
	switch algo {
	case packet.PubKeyAlgoRSA:
		return "RSA"
	case packet.PubKeyAlgoRSAEncryptOnly:
		return "RSA-E"
	case packet.PubKeyAlgoRSASignOnly:
		return "RSA-S"
	case packet.PubKeyAlgoElGamal:
		return "Elgamal"
	case packet.PubKeyAlgoDSA:
		return "DSA"
	case packet.PubKeyAlgoECDH:
		return "ECDH"
	case packet.PubKeyAlgoECDSA:
		return "ECDSA"
	case pubKeyAlgoEdDSA:
		return "EdDSA"
	default:
		return fmt.Sprintf("Unknown(%d)", int(algo))
	}
}

func readEntity(armored string) (*openpgp.Entity, error) {
	ring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(ring) == 0 {
		return nil, fmt.Errorf("%w: no keys in armored block", ErrParse)
	}
	return ring[0], nil
}

func decryptEntity(entity *openpgp.Entity, passphrase string) error {
	pass := []byte(passphrase)
	if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
		if err := entity.PrivateKey.Decrypt(pass); err != nil {
			return fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
	}
	for _, sub := range entity.Subkeys {
		if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
			if err := sub.PrivateKey.Decrypt(pass); err != nil {
				return fmt.Errorf("%w: %v", ErrDecrypt, err)
			}
		}
	}
	return nil
}

// ParseAndValidate parses an armored private key and extracts its identity
// fields. When the key is encrypted and a passphrase is supplied, the key is
// decrypted to prove the passphrase fits.
func ParseAndValidate(armored, passphrase string) (*ParsedKeyInfo, error) {
	entity, err := readEntity(armored)
	if err != nil {
		return nil, err
	}
	if entity.PrivateKey == nil {
		return nil, fmt.Errorf("%w: armored block holds no private key", ErrParse)
	}

	encrypted := entity.PrivateKey.Encrypted
	if encrypted && passphrase != "" {
		if err := decryptEntity(entity, passphrase); err != nil {
			return nil, err
		}
	}

	userID := "Unknown"
	for _, identity := range entity.Identities {
		userID = identity.Name
		break
	}

	return &ParsedKeyInfo{
		KeyID:       entity.PrimaryKey.KeyIdString(),
		Fingerprint: fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint),
		Algorithm:   AlgorithmName(entity.PrimaryKey.PubKeyAlgo),
		UserID:      userID,
		Encrypted:   encrypted,
	}, nil
}

// ExtractPublic emits the armored public key for an armored private key.
// Decryption is not required.
func ExtractPublic(armoredPrivate string) (string, error) {
	entity, err := readEntity(armoredPrivate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return "", fmt.Errorf("encoding public key armor: %w", err)
	}
	if err := entity.Serialize(w); err != nil {
		return "", fmt.Errorf("serializing public key: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing public key armor: %w", err)
	}

	return buf.String(), nil
}
