package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, expires, err := signer.Generate("CMP-20260831-000001", "complaints/file.pdf")
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	complaintNo, relPath, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "CMP-20260831-000001", complaintNo)
	assert.Equal(t, "complaints/file.pdf", relPath)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("CMP-20260831-000001", "complaints/file.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token + "x")
	assert.Error(t, err)

	other := NewSignedURLSigner("different", time.Minute)
	_, _, _, err = other.Parse(token)
	assert.Error(t, err)
}

func TestSignedURLRejectsExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.ttl = -time.Minute
	token, _, err := signer.Generate("CMP-20260831-000001", "complaints/file.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token)
	assert.Error(t, err)
}
