package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-bytes-long-xxxxx"

// makeToken creates a signed HS256 JWT from the given secret and claims.
func makeToken(secret string, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString([]byte(secret))
	return signed
}

func TestNewHS256Validator(t *testing.T) {
	t.Parallel()

	_, err := NewHS256Validator("")
	require.Error(t, err)

	v, err := NewHS256Validator("my-secret")
	require.NoError(t, err)
	assert.Equal(t, []byte("my-secret"), v.secret)
}

func TestHS256Validator_Validate(t *testing.T) {
	t.Parallel()

	v, err := NewHS256Validator(testSecret)
	require.NoError(t, err)

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rs256, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "molly",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(rsaKey)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
		wantSub string
		wantIss string
		wantAud []string
	}{
		{
			name: "valid token with audience list",
			token: makeToken(testSecret, jwt.MapClaims{
				"sub": "molly",
				"iss": "https://auth.example.com",
				"aud": []string{"groupman", "other"},
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantSub: "molly",
			wantIss: "https://auth.example.com",
			wantAud: []string{"groupman", "other"},
		},
		{
			name: "audience as string",
			token: makeToken(testSecret, jwt.MapClaims{
				"sub": "anna",
				"aud": "groupman",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantSub: "anna",
			wantAud: []string{"groupman"},
		},
		{
			name: "expired",
			token: makeToken(testSecret, jwt.MapClaims{
				"sub": "molly",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
			wantErr: true,
		},
		{
			name:    "wrong secret",
			token:   makeToken("another-secret", jwt.MapClaims{"sub": "molly"}),
			wantErr: true,
		},
		{
			name:    "wrong algorithm",
			token:   rs256,
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not.a.jwt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := v.Validate(context.Background(), tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "token verification failed")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, claims.Subject)
			assert.Equal(t, tt.wantIss, claims.Issuer)
			assert.Equal(t, tt.wantAud, claims.Audience)
		})
	}
}

func TestClaimMapping(t *testing.T) {
	t.Parallel()

	mapping := ClaimMapping{NameClaim: "preferred_username", RolesClaim: "roles"}

	tests := []struct {
		name      string
		claims    *JWTClaims
		wantName  string
		wantRoles []string
	}{
		{
			name: "name claim and both role sources",
			claims: &JWTClaims{Subject: "f3a1", Raw: map[string]interface{}{
				"preferred_username": "molly",
				"roles":              []interface{}{"ROLE_USER", "ROLE_ADMIN"},
				"realm_access":       map[string]interface{}{"roles": []interface{}{"ROLE_USER", "ROLE_LOCAL_USER"}},
			}},
			wantName:  "molly",
			wantRoles: []string{"ROLE_USER", "ROLE_ADMIN", "ROLE_LOCAL_USER"},
		},
		{
			name:      "falls back to subject",
			claims:    &JWTClaims{Subject: "anna", Raw: map[string]interface{}{"roles": "ROLE_USER"}},
			wantName:  "anna",
			wantRoles: []string{"ROLE_USER"},
		},
		{
			name:     "no roles",
			claims:   &JWTClaims{Subject: "leopold", Raw: map[string]interface{}{}},
			wantName: "leopold",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantName, mapping.Name(tt.claims))
			roles := mapping.Roles(tt.claims)
			if tt.wantRoles == nil {
				assert.Empty(t, roles)
				return
			}
			assert.Equal(t, tt.wantRoles, roles)
		})
	}
}
