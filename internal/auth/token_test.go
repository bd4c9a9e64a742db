package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	a := New("secret", "clinic", false)

	tok, err := a.Issue(Identity{Subject: "p-1", Roles: []string{RolePatient}, Name: "Jane Doe", Phone: "5550123"}, time.Hour)
	require.NoError(t, err)

	id, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "p-1", id.Subject)
	assert.Equal(t, "5550123", id.Phone)
	assert.Equal(t, "Jane Doe", id.Name)
	assert.True(t, id.HasRole(RolePatient))
	assert.False(t, id.HasRole(RoleDoctor))
}

func TestParseRejects(t *testing.T) {
	a := New("secret", "clinic", false)

	wrongKey, err := New("other", "clinic", false).Issue(Identity{Roles: []string{RoleDoctor}}, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := New("secret", "elsewhere", false).Issue(Identity{Roles: []string{RoleDoctor}}, time.Hour)
	require.NoError(t, err)
	expired, err := a.Issue(Identity{Roles: []string{RoleDoctor}}, -time.Minute)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Roles: []string{RoleDoctor}}).SignedString([]byte("secret"))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Roles: []string{RoleDoctor}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":      "not.a.token",
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"expired":      expired,
		"no expiry":    noExp,
		"alg none":     none,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Parse(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIssueWithoutKey(t *testing.T) {
	_, err := New("", "", true).Issue(Identity{}, time.Hour)
	assert.Error(t, err)

	_, err = New("", "", true).Parse("x.y.z")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{Subject: "d-1", Roles: []string{RoleDoctor}})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "d-1", id.Subject)
}
