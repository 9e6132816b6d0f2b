package jwt_parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken  = errors.New("no authorization token")
	ErrInvalidFormat = errors.New("invalid authorization format")
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingUserID = errors.New("invalid token claims")
)

// Claims are the token fields this service relies on.
type Claims struct {
	UserID    string
	TokenType string
	JTI       string
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:]), nil
	}
	return "", ErrInvalidFormat
}

// ParseToken validates an HMAC-signed token issued by the identity service.
// The user id comes from the user_id claim, or sub when that is absent.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	if userID, ok := mapClaims["user_id"].(string); ok && userID != "" {
		claims.UserID = userID
	} else if sub, err := mapClaims.GetSubject(); err == nil && sub != "" {
		claims.UserID = sub
	} else {
		return nil, ErrMissingUserID
	}
	if t, ok := mapClaims["type"].(string); ok {
		claims.TokenType = t
	}
	if jti, ok := mapClaims["jti"].(string); ok {
		claims.JTI = jti
	}
	return claims, nil
}
