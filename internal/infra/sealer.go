package infra

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const localKeySize = 32 // AES-256

// LocalSealer はKMSを使わない開発用のAES-GCM封印。出力はnonce||ciphertext。
type LocalSealer struct {
	aead cipher.AEAD
}

// NewLocalSealer はBase64エンコードされた鍵からLocalSealerを生成する。
// 鍵が空の場合はプロセスごとにランダムな鍵を使う。
func NewLocalSealer(encodedKey string) (*LocalSealer, error) {
	key := make([]byte, localKeySize)
	if encodedKey == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating random key: %w", err)
		}
	} else {
		decoded, err := base64.StdEncoding.DecodeString(encodedKey)
		if err != nil {
			return nil, fmt.Errorf("decoding seal key: %w", err)
		}
		if len(decoded) != localKeySize {
			return nil, fmt.Errorf("seal key must be %d bytes, got %d", localKeySize, len(decoded))
		}
		key = decoded
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &LocalSealer{aead: aead}, nil
}

// Seal は平文を暗号化する。
func (s *LocalSealer) Seal(_ context.Context, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open はSealの出力を復号する。
func (s *LocalSealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, fmt.Errorf("sealed data too short")
	}
	return s.aead.Open(nil, sealed[:n], sealed[n:], nil)
}
