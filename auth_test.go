package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPassword(t *testing.T) {
	pw, err := readPassword(strings.NewReader("hunter2\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	_, err = readPassword(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password required")

	_, err = readPassword(strings.NewReader("\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")
}

func TestTokenState(t *testing.T) {
	now := time.Now()

	assert.Equal(t, tokenStateMissing, tokenState("", now))
	assert.Equal(t, tokenStateOffline, tokenState("mock-jwt-token-1700000000000", now))
	assert.Equal(t, tokenStateOpaque, tokenState("not-a-jwt", now))
	assert.Equal(t, tokenStateValid, tokenState(signedToken(t, "alice", now.Add(time.Hour)), now))
	assert.Equal(t, tokenStateExpired, tokenState(signedToken(t, "alice", now.Add(-time.Hour)), now))
}

func TestParseClaims_IgnoresSignature(t *testing.T) {
	tok := signedToken(t, "carol", time.Now().Add(time.Minute))

	claims := parseClaims(tok)
	require.NotNil(t, claims)

	sub, err := claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "carol", sub)
	assert.Equal(t, "carol", tokenSubject(tok))

	assert.Nil(t, parseClaims("mock-jwt-token-1"))
	assert.Empty(t, tokenSubject("mock-jwt-token-1"))
}

func TestJoinRoles(t *testing.T) {
	assert.Equal(t, "none", joinRoles(nil))
	assert.Equal(t, "admin, user", joinRoles([]string{"admin", "user"}))
}
