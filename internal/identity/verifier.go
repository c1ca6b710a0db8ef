package identity

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/testnet-portal/internal/domain"
)

// Claims describes the identity token payload.
type Claims struct {
	Email         string `json:"email,omitempty"`
	PublicAddress string `json:"public_address,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates identity tokens issued by the passwordless provider.
type Verifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
}

// NewVerifier builds a verifier for HS256 tokens signed with secret.
func NewVerifier(secret, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), audience: audience, leeway: 30 * time.Second}
}

// Verify validates the token and returns its claims. Tokens that are
// expired, malformed or signed with another key yield domain.ErrUnauthenticated.
func (v *Verifier) Verify(token string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, errors.New("identity: verifier secret not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthenticated)
	}
	if claims.Issuer == "" {
		return nil, fmt.Errorf("%w: token has no issuer", domain.ErrUnauthenticated)
	}
	return claims, nil
}

// Issue signs a token for the given issuer with the verifier's secret. Tests use it to
// mint tokens; the portal itself only verifies.
func (v *Verifier) Issue(issuer, email string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
