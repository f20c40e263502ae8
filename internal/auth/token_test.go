package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef-test")

func TestIssueVerify(t *testing.T) {
	tok, err := Issue(secret, "user-1", time.Hour, time.Now())
	require.NoError(t, err)

	sub, err := Verify(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)

	sub, err = Subject(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestVerifyRejects(t *testing.T) {
	expired, err := Issue(secret, "user-1", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = Verify(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := Issue([]byte("another-secret-of-length"), "user-1", 0, time.Now())
	require.NoError(t, err)
	_, err = Verify(secret, other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = Verify(secret, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueRejectsBadInput(t *testing.T) {
	_, err := Issue(secret, "", 0, time.Now())
	assert.ErrorIs(t, err, ErrNoSubject)

	_, err = Issue([]byte("short"), "u", 0, time.Now())
	assert.Error(t, err)
}

func TestSubjectMalformed(t *testing.T) {
	_, err := Subject("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
