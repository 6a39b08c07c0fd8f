package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieCodec signs session IDs into the browser cookie and verifies
// them on the way back in. The cookie carries nothing but the session
// ID; all session state stays server-side.
type CookieCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewCookieCodec(secret string, ttl time.Duration) *CookieCodec {
	return &CookieCodec{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (cc *CookieCodec) TTL() time.Duration {
	return cc.ttl
}

func (cc *CookieCodec) Encode(sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cc.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cc.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

func (cc *CookieCodec) Decode(cookie string) (string, error) {
	token, err := jwt.ParseWithClaims(cookie, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return cc.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse session cookie: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("session cookie missing subject")
	}
	return claims.Subject, nil
}
