package testutil

import (
	"encoding/base64"
	"testing"

	"github.com/vdavid/mailvault/internal/crypto"
)

// TestEncryptionKey returns a deterministic base64 key for tests.
func TestEncryptionKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

// GetTestEncryptor creates an encryptor with the deterministic test key.
func GetTestEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()

	encryptor, err := crypto.NewEncryptor(TestEncryptionKey())
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}
	return encryptor
}
