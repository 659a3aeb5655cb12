package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token accepts an HMAC-signed JWT as the password.
type Token struct {
	// Secret is the shared secret for HS256/HS384/HS512 validation.
	Secret []byte

	// Issuer is the expected "iss" claim (optional).
	Issuer string

	// Audience is the expected "aud" claim (optional).
	Audience string

	// NameClaim is the claim compared with the username (default: "name").
	NameClaim string
}

func (t Token) Check(username, password string) bool {
	name, err := t.Validate(password)
	return err == nil && name == username
}

// Validate parses tokenString and returns the value of its name claim.
func (t Token) Validate(tokenString string) (string, error) {
	if len(t.Secret) == 0 {
		return "", errors.New("no JWT secret configured")
	}

	nameClaim := t.NameClaim
	if nameClaim == "" {
		nameClaim = "name"
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if t.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.Secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	if t.Audience != "" {
		audiences, _ := claims.GetAudience()
		if !slices.Contains(audiences, t.Audience) {
			return "", fmt.Errorf("invalid audience: expected %s", t.Audience)
		}
	}

	name, _ := claims[nameClaim].(string)
	if name == "" {
		return "", fmt.Errorf("token missing identity claim %s", nameClaim)
	}

	return name, nil
}

// IssueToken signs an HS256 token naming username. A zero ttl issues a
// token without expiry.
func IssueToken(secret []byte, username, issuer string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("no JWT secret configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"name": username,
		"sub":  username,
		"iat":  now.Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
