package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager handles generation and validation of bearer tokens.
type JWTManager struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

// TokenSubject is what a token is issued for. Username is empty for
// client-credentials tokens.
type TokenSubject struct {
	Username    string
	ClientID    string
	Scopes      []string
	Authorities []string
}

// Claims uses the OAuth2 resource-server claim names.
type Claims struct {
	Username    string   `json:"user_name,omitempty"`
	ClientID    string   `json:"client_id"`
	Scope       []string `json:"scope,omitempty"`
	Authorities []string `json:"authorities,omitempty"`
	SessionID   string   `json:"sid"`
	jwt.RegisteredClaims
}

func (c *Claims) Subject() TokenSubject {
	return TokenSubject{Username: c.Username, ClientID: c.ClientID, Scopes: c.Scope, Authorities: c.Authorities}
}

func (m *JWTManager) GenerateAccessToken(sub TokenSubject, sid string) (string, time.Time, error) {
	return m.sign(sub, sid, m.AccessTTL, m.AccessSecret)
}

func (m *JWTManager) GenerateRefreshToken(sub TokenSubject, sid string) (string, time.Time, error) {
	return m.sign(sub, sid, m.RefreshTTL, m.RefreshSecret)
}

func (m *JWTManager) sign(sub TokenSubject, sid string, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	subject := sub.Username
	if subject == "" {
		subject = sub.ClientID
	}
	claims := &Claims{
		Username:    sub.Username,
		ClientID:    sub.ClientID,
		Scope:       sub.Scopes,
		Authorities: sub.Authorities,
		SessionID:   sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.Issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(secret)
	return s, exp, err
}

func (m *JWTManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, m.AccessSecret)
}

func (m *JWTManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, m.RefreshSecret)
}

func parseToken(tokenStr string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
