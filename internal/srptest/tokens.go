package srptest

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/srpgate/internal/client/session"
	"github.com/dmitrijs2005/srpgate/internal/common"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 24 * time.Hour

	refreshAudience = "refresh"
)

var errInvalidToken = errors.New("invalid token")

type tokenIssuer struct {
	secret []byte
	now    func() time.Time
	// live refresh token ids; a redeemed id is removed so tokens rotate.
	live map[string]string
}

func newTokenIssuer(now func() time.Time) *tokenIssuer {
	secret := common.GenerateRandByteArray(32)
	if secret == nil {
		panic("srptest: cannot generate token secret")
	}
	return &tokenIssuer{secret: secret, now: now, live: make(map[string]string)}
}

func (t *tokenIssuer) issue(email, role string) (session.Tokens, error) {
	now := t.now()

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTTL)),
		},
		Role: role,
	}).SignedString(t.secret)
	if err != nil {
		return session.Tokens{}, err
	}

	id, err := common.MakeRandHexString(16)
	if err != nil {
		return session.Tokens{}, err
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        id,
		Subject:   email,
		Audience:  jwt.ClaimStrings{refreshAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(refreshTTL)),
	}).SignedString(t.secret)
	if err != nil {
		return session.Tokens{}, err
	}
	t.live[id] = email

	return session.Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// redeem validates a refresh token and retires it.
func (t *tokenIssuer) redeem(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(refreshAudience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errInvalidToken
	}

	email, ok := t.live[claims.ID]
	if !ok || email != claims.Subject {
		return "", errInvalidToken
	}
	delete(t.live, claims.ID)
	return email, nil
}
