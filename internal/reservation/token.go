package reservation

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDFromToken extracts the user id from a bearer token's 'sub' claim.
// The signature is not verified here; the server validates the token on
// every request. The id is only used to stamp outgoing reservation drafts.
func UserIDFromToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.New("empty token")
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("subject claim not found in token")
	}
	return sub, nil
}
