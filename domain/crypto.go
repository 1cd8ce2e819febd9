package domain

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	apperrors "github.com/injectivepass/nfc_service/errors"
)

const (
	kdfIterations = 310_000
	keyLen        = 32
	nonceLen      = 12
	tagLen        = 16
)

var errMalformed = errors.New("malformed encrypted value")

// clearBytes zeroes b in place.
func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// KeyFromConfig turns configured key material into a 32-byte AES key.
// A 64-char hex string is used as-is, anything else is stretched with
// PBKDF2-SHA256 over salt.
func KeyFromConfig(material, salt string) ([]byte, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, errors.New("empty AES key material")
	}
	if len(material) == 2*keyLen {
		if key, err := hex.DecodeString(material); err == nil {
			return key, nil
		}
	}
	if salt == "" {
		return nil, errors.New("salt is required to derive an AES key from a passphrase")
	}
	return pbkdf2.Key([]byte(material), []byte(salt), kdfIterations, keyLen, sha256.New), nil
}

// Cipher seals private keys with AES-256-GCM under a single server key.
// Serialized form is hex(nonce):hex(tag):hex(ciphertext).
type Cipher struct {
	aead cipher.AEAD
}

func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keyLen {
		return nil, fmt.Errorf("AES key must be %d bytes, got %d", keyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: gcm}, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	// Seal appends the tag to the ciphertext.
	ct, tag := sealed[:len(sealed)-tagLen], sealed[len(sealed)-tagLen:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ct),
	}, ":"), nil
}

func (c *Cipher) Decrypt(serialized string) (string, error) {
	const op = "decrypt"

	parts := strings.Split(serialized, ":")
	if len(parts) != 3 {
		return "", apperrors.WrapWithCode(apperrors.CodeDecryption, op, errMalformed)
	}
	nonce, err := decodeLowerHex(parts[0])
	if err != nil || len(nonce) != nonceLen {
		return "", apperrors.WrapWithCode(apperrors.CodeDecryption, op, errMalformed)
	}
	tag, err := decodeLowerHex(parts[1])
	if err != nil || len(tag) != tagLen {
		return "", apperrors.WrapWithCode(apperrors.CodeDecryption, op, errMalformed)
	}
	ct, err := decodeLowerHex(parts[2])
	if err != nil {
		return "", apperrors.WrapWithCode(apperrors.CodeDecryption, op, errMalformed)
	}

	plain, err := c.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", apperrors.WrapWithCode(apperrors.CodeDecryption, op, errors.New("authentication failed"))
	}
	defer clearBytes(plain)
	return string(plain), nil
}

// decodeLowerHex only accepts the lowercase form Encrypt produces, so a
// case-flipped digit cannot decode to the same bytes.
func decodeLowerHex(s string) ([]byte, error) {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !(ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'f') {
			return nil, errMalformed
		}
	}
	return hex.DecodeString(s)
}
