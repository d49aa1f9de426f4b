package cipher

import (
	"crypto/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBox(t *testing.T) *Box {
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.Nil(t, err)
	box, err := NewBox(key)
	require.Nil(t, err)
	return box
}

func TestNewBox(t *testing.T) {
	t.Run("rejects short key", func(t *testing.T) {
		_, err := NewBox(make([]byte, KeySize-1))
		assert.NotNil(t, err)
	})

	t.Run("rejects empty key", func(t *testing.T) {
		_, err := NewBox(nil)
		assert.NotNil(t, err)
	})
}

func TestRoundTrip(t *testing.T) {
	box := newTestBox(t)

	plaintexts := []string{
		"hello",
		"",
		"with spaces and\nnewlines",
		"non-ascii: สวัสดี ครับ 你好",
		strings.Repeat("a", 1000),
	}

	for _, plaintext := range plaintexts {
		ciphertext, err := box.Encrypt(plaintext)
		require.Nil(t, err)
		assert.NotEqual(t, plaintext, ciphertext)

		decrypted, err := box.Decrypt(ciphertext)
		require.Nil(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	box := newTestBox(t)

	c1, err := box.Encrypt("same content")
	require.Nil(t, err)
	c2, err := box.Encrypt("same content")
	require.Nil(t, err)

	assert.NotEqual(t, c1, c2)
}

func TestDecryptFailures(t *testing.T) {
	box := newTestBox(t)

	t.Run("malformed base64", func(t *testing.T) {
		_, err := box.Decrypt("%%%not base64%%%")
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := box.Decrypt("c2hvcnQ=")
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("foreign key", func(t *testing.T) {
		other := newTestBox(t)
		ciphertext, err := other.Encrypt("secret")
		require.Nil(t, err)

		_, err = box.Decrypt(ciphertext)
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		ciphertext, err := box.Encrypt("secret")
		require.Nil(t, err)

		tampered := []byte(ciphertext)
		tampered[len(tampered)-5] ^= 'x'
		_, err = box.Decrypt(string(tampered))
		assert.ErrorIs(t, err, ErrDecrypt)
	})
}

func TestConcurrentUse(t *testing.T) {
	box := newTestBox(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ciphertext, err := box.Encrypt("concurrent content")
				if !assert.Nil(t, err) {
					return
				}
				decrypted, err := box.Decrypt(ciphertext)
				if !assert.Nil(t, err) {
					return
				}
				assert.Equal(t, "concurrent content", decrypted)
			}
		}()
	}
	wg.Wait()
}
