// Package token implements the share-link capability token: an AES-GCM
// sealed "{subject}:{expiry}:{mode}" payload, base64url encoded, that can be
// verified without any server-side lookup.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrDecode covers every way a token can fail to open: bad base64, short
	// input, failed authentication or a malformed payload.
	ErrDecode = errors.New("invalid token")

	// ErrExpired is returned by Verify for a token that decodes but whose
	// expiry lies in the past.
	ErrExpired = errors.New("token expired")
)

const (
	keySize   = 32
	nonceSize = 12

	// Argon2id parameters. The key is derived once per Codec.
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

// kdfSalt domain-separates share-token keys from any other key derived from
// the same secret.
var kdfSalt = []byte("codespace.share-token.v1")

var encoding = base64.RawURLEncoding

// Claims is the decoded content of a token.
type Claims struct {
	SubjectID string
	ExpiresAt int64 // Unix seconds
	Mode      string
}

// Expired reports whether the claims are past their expiry at now. The
// comparison uses whole epoch seconds, the resolution of ExpiresAt.
func (c Claims) Expired(now time.Time) bool {
	return now.Unix() > c.ExpiresAt
}

// Codec seals and opens tokens under a key derived from a long-lived secret.
type Codec struct {
	aead cipher.AEAD
	rand io.Reader
	now  func() time.Time
}

// NewCodec derives the encryption key from secret with Argon2id.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	key := argon2.IDKey([]byte(secret), kdfSalt, kdfTime, kdfMemory, kdfThreads, keySize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Codec{aead: aead, rand: rand.Reader, now: time.Now}, nil
}

// Encode issues a token for subjectID that expires ttlSeconds from now. The
// caller is responsible for validating ttlSeconds and mode.
func (c *Codec) Encode(subjectID string, ttlSeconds int64, mode string) (string, error) {
	expiresAt := c.now().Unix() + ttlSeconds
	payload := subjectID + ":" + strconv.FormatInt(expiresAt, 10) + ":" + mode

	nonce := make([]byte, nonceSize, nonceSize+len(payload)+c.aead.Overhead())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	// Format: [nonce|ciphertext|tag]
	sealed := c.aead.Seal(nonce, nonce, []byte(payload), nil)
	return encoding.EncodeToString(sealed), nil
}

// Decode opens a token and returns its claims. It does not check expiry.
func (c *Codec) Decode(tok string) (Claims, error) {
	raw, err := encoding.Strict().DecodeString(strings.TrimRight(tok, "="))
	if err != nil {
		return Claims{}, ErrDecode
	}
	if len(raw) < nonceSize {
		return Claims{}, ErrDecode
	}

	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return Claims{}, ErrDecode
	}

	parts := strings.Split(string(plain), ":")
	if len(parts) != 3 {
		return Claims{}, ErrDecode
	}
	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Claims{}, ErrDecode
	}

	return Claims{
		SubjectID: parts[0],
		ExpiresAt: expiresAt,
		Mode:      parts[2],
	}, nil
}

// Verify decodes tok and rejects it with ErrExpired once its expiry has
// passed.
func (c *Codec) Verify(tok string) (Claims, error) {
	claims, err := c.Decode(tok)
	if err != nil {
		return Claims{}, err
	}
	if claims.Expired(c.now()) {
		return claims, ErrExpired
	}
	return claims, nil
}
