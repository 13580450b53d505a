package pagination_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexledger/lexledger_backend/internal/utils/pagination"
)

func TestEncodeDecodeToken(t *testing.T) {
	createdAt := time.Date(2026, 8, 31, 14, 5, 30, 123456789, time.UTC)
	rowID := "b6c7a8e2-4f9d-4a1b-9a3e-0d2f5c6e7a8b"

	token := pagination.EncodeToken(createdAt, rowID)

	decodedAt, decodedID, err := pagination.DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(decodedAt))
	assert.Equal(t, rowID, decodedID)
}

func TestDecodeTokenInvalidBase64(t *testing.T) {
	_, _, err := pagination.DecodeToken("not-base64!!!")
	assert.Error(t, err)
}

func TestDecodeTokenMissingSeparator(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("2026-08-31T14:05:30Z"))
	_, _, err := pagination.DecodeToken(token)
	assert.Error(t, err)
}

func TestDecodeTokenBadTimestamp(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("yesterday|some-id"))
	_, _, err := pagination.DecodeToken(token)
	assert.Error(t, err)
}
