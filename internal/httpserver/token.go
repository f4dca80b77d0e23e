package httpserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	SessionCookie = "topspin_session"
	sessionTTL    = 30 * 24 * time.Hour
	// Tokens closer than this to expiry are reissued on use.
	refreshWindow = 7 * 24 * time.Hour
	tokenIssuer   = "topspin"
)

func IssueSessionToken(id uuid.UUID, secret []byte, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   id.String(),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func SessionIDFromToken(tokenStr string, secret []byte) (uuid.UUID, error) {
	id, _, err := parseSessionToken(tokenStr, secret)
	return id, err
}

func parseSessionToken(tokenStr string, secret []byte) (uuid.UUID, time.Time, error) {
	var claims jwt.RegisteredClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	if !tkn.Valid {
		return uuid.Nil, time.Time{}, errors.New("invalid session token")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("session subject: %w", err)
	}
	return id, claims.ExpiresAt.Time, nil
}
