// Package crypto provides AES-256-GCM encryption for tenant credentials and
// shared secrets, with PBKDF2 key derivation from a deployment master key.
//
// Each encryption uses a fresh random nonce, so encrypting the same plaintext
// twice yields different ciphertexts. Decryption authenticates the ciphertext;
// tampered or foreign data fails loudly instead of yielding garbage.
//
// Example usage:
//
//	encryptor, err := crypto.NewSecretEncryptor(os.Getenv("EAGLECHAT_MASTER_KEY"), "")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	encrypted, err := encryptor.Encrypt("sk-ant-api-key")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	decrypted, err := encryptor.Decrypt(encrypted)
//	if err != nil {
//		log.Fatal(err)
//	}
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"eaglechat-server/internal/common/errors"
)

// DefaultKeySalt is the deployment salt used when none is configured. It
// keeps key derivation deterministic across restarts; override it per
// deployment with VAULT_KEY_SALT.
const DefaultKeySalt = "eaglechat_vault_salt_v1"

// pbkdf2Iterations is the PBKDF2-SHA256 work factor for deriving the AES key
// from the master key. Changing it invalidates every stored ciphertext.
const pbkdf2Iterations = 100000

// SecretEncryptor encrypts and decrypts secret material using AES-256-GCM
// with a key derived once from the deployment master key.
//
// The encryptor is safe for concurrent use by multiple goroutines.
type SecretEncryptor struct {
	key []byte // 32-byte AES-256 key derived at construction
}

// NewSecretEncryptor derives a 32-byte AES key from the master key using
// PBKDF2-SHA256 and returns an encryptor holding it. Derivation happens once
// here, never per operation. An empty salt selects DefaultKeySalt.
func NewSecretEncryptor(masterKey, salt string) (*SecretEncryptor, error) {
	if masterKey == "" {
		return nil, errors.ValidationError("master key cannot be empty")
	}
	if salt == "" {
		salt = DefaultKeySalt
	}

	derivedKey := pbkdf2.Key([]byte(masterKey), []byte(salt), pbkdf2Iterations, 32, sha256.New)

	return &SecretEncryptor{key: derivedKey}, nil
}

// Encrypt encrypts a plaintext string and returns a base64 encoding of
// nonce||ciphertext. The empty string maps to the empty string.
func (e *SecretEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", errors.InternalError("failed to create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.InternalError("failed to create GCM", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.InternalError("failed to create nonce", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. GCM authenticates the ciphertext, so data
// encrypted under a different key, or modified after encryption, returns an
// error rather than plaintext. The empty string maps to the empty string.
func (e *SecretEncryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.InternalError("failed to decode ciphertext", err)
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", errors.InternalError("failed to create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.InternalError("failed to create GCM", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.ValidationError("ciphertext too short")
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", errors.InternalError("failed to decrypt", err)
	}

	return string(plaintext), nil
}

// GenerateSecret returns a random secret of byteLen random bytes rendered as
// lowercase hex, suitable for HMAC signing secrets and tenant API keys.
func GenerateSecret(byteLen int) (string, error) {
	if byteLen <= 0 {
		byteLen = 32
	}
	buf := make([]byte, byteLen)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", errors.InternalError("failed to generate random secret", err)
	}
	return hex.EncodeToString(buf), nil
}

// SiteHash derives the stable per-site fingerprint registered for a tenant's
// domain. Client sites send it back on each request so a signature cannot be
// replayed from a different installation of the same domain.
func SiteHash(domain, tenantID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(domain))
	mac.Write([]byte("|"))
	mac.Write([]byte(tenantID))
	return hex.EncodeToString(mac.Sum(nil))
}
