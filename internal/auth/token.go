package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	RoleOperator = "operator"
	RoleBridge   = "bridge"
)

var (
	ErrEmptyToken   = errors.New("empty JWT-Token")
	ErrInvalidToken = errors.New("invalid JWT-Token")
	ErrWrongRole    = errors.New("role is not allowed")
)

// Claims is what the matcher reads back from a verified token.
type Claims struct {
	Subject string
	Role    string
	Expires time.Time
}

// Issue signs an HS256 token for subject with the given role.
func Issue(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": subject,
		"role":    role,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// Verify parses a token, with or without the "Bearer " prefix, and checks
// its signature and expiry.
func Verify(secret, tokenString string) (Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return Claims{}, ErrEmptyToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%w: cannot get claims", ErrInvalidToken)
	}
	subject, ok := claims["user_id"].(string)
	if !ok || subject == "" {
		return Claims{}, fmt.Errorf("%w: no user_id", ErrInvalidToken)
	}
	role, ok := claims["role"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("%w: no role", ErrInvalidToken)
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return Claims{}, fmt.Errorf("%w: no exp", ErrInvalidToken)
	}

	return Claims{Subject: subject, Role: role, Expires: time.Unix(int64(exp), 0)}, nil
}

// VerifyRole is Verify plus a role check.
func VerifyRole(secret, tokenString, role string) (Claims, error) {
	c, err := Verify(secret, tokenString)
	if err != nil {
		return Claims{}, err
	}
	if c.Role != role {
		return Claims{}, fmt.Errorf("%w: %s", ErrWrongRole, c.Role)
	}
	return c, nil
}
