package jwt

import (
	"errors"
	"fmt"
	"time"

	"ansel/internal/lib/identity"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// NewToken signs the viewer claims uid, age and groups with HS256.
func NewToken(id identity.Identity, secret string, duration time.Duration) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["uid"] = id.User
	claims["age"] = id.Age
	claims["groups"] = id.Groups
	claims["exp"] = time.Now().Add(duration).Unix()

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Parse validates tokenString and returns the viewer it describes.
func Parse(tokenString, secret string) (identity.Identity, error) {
	const op = "jwt.Parse"

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, _ := claims["uid"].(string)
	if uid == "" {
		return identity.Identity{}, fmt.Errorf("%s: %w: missing uid", op, ErrInvalidToken)
	}

	id := identity.Identity{User: uid}
	if age, ok := claims["age"].(float64); ok {
		id.Age = int(age)
	}
	if groups, ok := claims["groups"].([]interface{}); ok {
		for _, g := range groups {
			if s, ok := g.(string); ok {
				id.Groups = append(id.Groups, s)
			}
		}
	}

	return id, nil
}
