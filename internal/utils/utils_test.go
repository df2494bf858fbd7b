package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Event! 2024", "my-event-2024"},
		{"Intro Talk", "intro-talk"},
		{"  --Go   Workshop--  ", "go-workshop"},
		{"a - b", "a-b"},
		{"Ünïcode ©", "ncode"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestNewTicketToken_Format(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-F]{12}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, re, NewTicketToken())
	}
}

func TestNewTicketTokens_Distinct(t *testing.T) {
	tokens := NewTicketTokens(500)
	require.Len(t, tokens, 500)
	seen := map[string]bool{}
	for _, tok := range tokens {
		assert.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	at, err := NewAccessToken("secret", 42, "ADMIN", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), at.Exp, 5*time.Second)

	claims, err := ParseAccessToken("secret", at.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "ADMIN", claims.Role)

	_, err = ParseAccessToken("other-secret", at.Token)
	assert.Error(t, err)
}

func TestParseAccessToken_RejectsNonHMAC(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": 1, "role": "ADMIN"})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", raw)
	assert.Error(t, err)
}

func TestRefreshToken_Hash(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)
	assert.Len(t, HashRefreshRaw(rt.Raw), 64)
	assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}
