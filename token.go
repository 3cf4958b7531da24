package main

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

func parseToken(authHeader string) (*jwt.Token, error) {
	index := strings.Index(authHeader, "Bearer ")
	if index == 0 {
		authHeader = authHeader[len("Bearer "):]
	}

	// Parse the auth token. The downstream services verify it
	token, _, err := new(jwt.Parser).ParseUnverified(authHeader, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	return token, nil
}

func getSubject(token *jwt.Token) (string, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("subject (sub) claim not found")
	}

	// Extract the "sub" claim from the token payload
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("subject (sub) not a valid string")
	}
	if sub == "" {
		return "", fmt.Errorf("invalid subject (sub) value")
	}
	return sub, nil
}
