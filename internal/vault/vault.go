package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100_000
	keyLen           = 32
	saltLen          = 16
	nonceLen         = 12
)

// ErrDecryptFailed is returned for every decryption failure: malformed blob,
// wrong password, or tampered ciphertext. The causes are deliberately not
// distinguishable to the caller.
var ErrDecryptFailed = errors.New("vault: decryption failed")

// Encrypt seals a wallet secret under a user password. The key is derived
// with PBKDF2-SHA256 and a fresh random salt, and the plaintext is sealed
// with AES-256-GCM under a fresh random nonce. The returned blob is
// self-describing: base64(salt):base64(nonce):base64(tag):base64(ciphertext),
// so the password alone is enough to reverse it.
func Encrypt(plaintext, password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	aead, err := newAEAD(password, salt)
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	parts := [][]byte{salt, nonce, tag, ciphertext}
	encoded := make([]string, len(parts))
	for i, p := range parts {
		encoded[i] = base64.StdEncoding.EncodeToString(p)
	}
	return strings.Join(encoded, ":"), nil
}

// Decrypt reverses Encrypt. Any failure, structural or cryptographic, is
// reported as ErrDecryptFailed.
func Decrypt(blob, password string) (string, error) {
	parts := strings.Split(blob, ":")
	if len(parts) != 4 {
		return "", ErrDecryptFailed
	}
	decoded := make([][]byte, 4)
	for i, p := range parts {
		raw, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return "", ErrDecryptFailed
		}
		decoded[i] = raw
	}
	salt, nonce, tag, ciphertext := decoded[0], decoded[1], decoded[2], decoded[3]

	aead, err := newAEAD(password, salt)
	if err != nil {
		return "", ErrDecryptFailed
	}
	if len(nonce) != aead.NonceSize() {
		return "", ErrDecryptFailed
	}

	plaintext, err := aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

func newAEAD(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
