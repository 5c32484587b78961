package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is who a connection acts as. It is established by the gateway and
// passed through the core untouched.
type Identity struct {
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarUrl   string `json:"avatar_url"`
}

func (i Identity) Valid() bool {
	return i.UserId != ""
}

type claims struct {
	DisplayName string `json:"display_name"`
	AvatarUrl   string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Issue signs a token for id. Token issuance normally belongs to the auth
// service; this exists for tooling and tests.
func (a Authenticator) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		DisplayName: id.DisplayName,
		AvatarUrl:   id.AvatarUrl,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserId,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	return token.SignedString(a.secret)
}

func (a Authenticator) Parse(tokenString string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid || c.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	displayName := c.DisplayName
	if displayName == "" {
		displayName = c.Subject
	}

	return Identity{
		UserId:      c.Subject,
		DisplayName: displayName,
		AvatarUrl:   c.AvatarUrl,
	}, nil
}
