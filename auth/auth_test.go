package auth

import (
	"chat-client/domain"
	"chat-client/errors"
	stderrors "errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims Claims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestCheckToken(t *testing.T) {
	now := time.Now()
	valid := signedToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}})
	expired := signedToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
	}})

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"Empty token", "", true},
		{"Opaque token", "abc", false},
		{"Valid JWT", valid, false},
		{"Expired JWT", expired, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckToken(tt.token, now)
			if tt.wantErr {
				require.True(t, stderrors.Is(err, errors.ErrInvalidCredentials))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIdentityFromToken(t *testing.T) {
	req := require.New(t)

	withEmail := signedToken(t, Claims{Email: "alice@example.com"})
	withSubject := signedToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "bob"}})

	req.Equal("alice@example.com", IdentityFromToken(withEmail))
	req.Equal("bob", IdentityFromToken(withSubject))
	req.Equal("", IdentityFromToken("abc"))
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name    string
		creds   domain.Credentials
		wantErr bool
	}{
		{"Valid credentials", domain.Credentials{Token: "abc", Identity: "test@tester.com"}, false},
		{"No identity", domain.Credentials{Token: "abc"}, false},
		{"Missing token", domain.Credentials{Identity: "test@tester.com"}, true},
		{"Invalid identity", domain.Credentials{Token: "abc", Identity: "not-an-email"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredentials(tt.creds)
			if tt.wantErr {
				require.True(t, stderrors.Is(err, errors.ErrInvalidCredentials))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateMessage(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateMessage(domain.Message{Title: "t", Body: "hi", Room: "chat"}))

	err := ValidateMessage(domain.Message{Title: "t", Room: "chat"})
	req.True(stderrors.Is(err, errors.ErrInvalidMessage))

	err = ValidateMessage(domain.Message{Title: "t", Body: "hi"})
	req.True(stderrors.Is(err, errors.ErrInvalidMessage))
}
