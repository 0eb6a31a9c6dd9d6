package jwtmw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is used when IssueToken is called with a non-positive ttl.
const DefaultTTL = 15 * time.Minute

// ErrInvalidToken covers every verification failure: bad signature, wrong algorithm,
// expiry, missing exp and missing sub.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload carried by every token this service issues.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Generator issues signed tokens.
type Generator interface {
	// IssueToken creates a signed JWT for subject, valid for ttl.
	IssueToken(subject, email string, ttl time.Duration) (string, error)
}

// Verifier checks tokens issued by a Generator with the same secret.
type Verifier interface {
	VerifyToken(token string) (*Claims, error)
}

var (
	_ Generator = (*Manager)(nil)
	_ Verifier  = (*Manager)(nil)
)

// Manager signs and verifies HMAC JWTs with a shared secret.
type Manager struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// NewManager creates a Manager for one of HS256, HS384 or HS512.
func NewManager(secret, algorithm string) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}

	var method jwt.SigningMethod
	switch algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}

	return &Manager{
		secret: []byte(secret),
		method: method,
		now:    time.Now,
	}, nil
}

// IssueToken creates a signed token with sub, email, jti, iat and exp claims.
func (m *Manager) IssueToken(subject, email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := m.now()

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(m.method, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// VerifyToken parses tokenStr and returns its claims, or an error wrapping ErrInvalidToken.
func (m *Manager) VerifyToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}
