// Package auth issues and verifies the session tokens that bind API calls to
// the subject established during the authorization callback.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/spotivault/internal/common"
)

// Claims carries the registered claims plus the subject id established
// during the callback.
type Claims struct {
	jwt.RegisteredClaims
	SubjectID string `json:"sid"`
}

// GenerateSessionToken signs a session token binding subjectID for the given
// validity window.
func GenerateSessionToken(subjectID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		SubjectID: subjectID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// SubjectFromToken verifies a session token and returns the subject id it
// binds. Expired, tampered and malformed tokens all map to
// common.ErrInvalidSession.
func SubjectFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidSession, err)
	}

	if !token.Valid || claims.SubjectID == "" {
		return "", common.ErrInvalidSession
	}

	return claims.SubjectID, nil
}
