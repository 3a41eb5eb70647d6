package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims represents the claims carried by a regit access token
type Claims struct {
	jwt.RegisteredClaims
	Email  string   `json:"email,omitempty"`
	Name   string   `json:"name,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// ParsedClaims represents validated claims
type ParsedClaims struct {
	Subject   string
	Email     string
	Name      string
	Groups    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// parseClaims converts Claims to ParsedClaims
func parseClaims(claims *Claims) (*ParsedClaims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	parsed := &ParsedClaims{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Groups:  append([]string(nil), claims.Groups...),
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}
	return parsed, nil
}

// Issuer mints HS256 tokens. Used by the CLI and by tests.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	clock    clockwork.Clock
}

// NewIssuer creates a token issuer
func NewIssuer(config Config) *Issuer {
	config = config.withDefaults()
	return &Issuer{
		secret:   []byte(config.Secret),
		issuer:   config.Issuer,
		audience: config.Audience,
		ttl:      config.TokenTTL,
		clock:    config.Clock,
	}
}

// Subject describes the identity a token is minted for
type Subject struct {
	ID     string
	Email  string
	Name   string
	Groups []string
}

// Issue signs a token for the subject
func (i *Issuer) Issue(subject Subject) (string, error) {
	if subject.ID == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	now := i.clock.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject.ID,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email:  subject.Email,
		Name:   subject.Name,
		Groups: subject.Groups,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}
