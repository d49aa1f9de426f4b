package sealroom

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCipherKeyFromEnv(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.Nil(t, err)
	t.Setenv("CIPHER_KEY", base64.StdEncoding.EncodeToString(key))

	config, err := LoadConfig()
	require.Nil(t, err)

	assert.Equal(t, key, []byte(config.Cipher.Key))
	assert.Nil(t, config.Validate())
}

func TestValidateRejectsMissingCipherKey(t *testing.T) {
	config, err := LoadConfig()
	require.Nil(t, err)

	assert.NotNil(t, config.Validate())
}
