package services

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessage(t *testing.T) {
	encoded, err := encodeMessage(map[string]string{"blob_name": "imports/jan.csv"})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.JSONEq(t, `{"blob_name":"imports/jan.csv"}`, string(raw))

	_, err = encodeMessage(func() {})
	assert.Error(t, err)
}

func TestReadLimited(t *testing.T) {
	got, err := readLimited(strings.NewReader("Date,Type,Amount\n"), 64)
	require.NoError(t, err)
	assert.Equal(t, "Date,Type,Amount\n", got)

	_, err = readLimited(strings.NewReader(strings.Repeat("x", 65)), 64)
	assert.ErrorContains(t, err, "exceeds 64 bytes")

	got, err = readLimited(strings.NewReader(strings.Repeat("x", 64)), 64)
	require.NoError(t, err)
	assert.Len(t, got, 64)
}

func TestNewStorageServices_RequireURL(t *testing.T) {
	_, err := NewBlobService("")
	assert.Error(t, err)
	_, err = NewQueueService("")
	assert.Error(t, err)
	_, err = NewTableStore(t.Context(), "", "ledger")
	assert.Error(t, err)
}

func TestNewBlobService_Azurite(t *testing.T) {
	s, err := NewBlobService("http://127.0.0.1:10000/devstoreaccount1")
	require.NoError(t, err)
	assert.NotNil(t, s.client)
}
