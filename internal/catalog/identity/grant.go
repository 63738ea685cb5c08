// Package identity verifies bearer identity grants.
//
// A grant is an ed25519-signed JWT carrying the caller's email address. The
// email string is the opaque identity the catalog core keys overlay catalogs
// by; nothing downstream of verification treats it as an address.
package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/louisbranch/indexshell/internal/platform/config"
)

// ErrGrantInvalid indicates a grant that is malformed, unsigned, or signed
// with the wrong key or algorithm.
var ErrGrantInvalid = errors.New("identity grant is invalid")

// ErrGrantExpired indicates a grant whose exp claim has passed.
var ErrGrantExpired = errors.New("identity grant is expired")

// ErrGrantMismatch indicates a grant whose issuer or audience does not match
// the verifier configuration.
var ErrGrantMismatch = errors.New("identity grant mismatch")

// grantEnv holds raw env values before post-parse validation.
type grantEnv struct {
	Issuer    string `env:"INDEXSHELL_GRANT_ISSUER"`
	Audience  string `env:"INDEXSHELL_GRANT_AUDIENCE"`
	PublicKey string `env:"INDEXSHELL_GRANT_PUBLIC_KEY"`
}

// VerifierConfig defines how identity grants are verified.
type VerifierConfig struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// grantClaims is the internal claims type used for JWT parsing.
type grantClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// LoadVerifierConfigFromEnv reads grant verification configuration. The
// public key is base64 encoded, padded or unpadded.
func LoadVerifierConfigFromEnv(now func() time.Time) (VerifierConfig, error) {
	var raw grantEnv
	if err := config.ParseEnv(&raw); err != nil {
		return VerifierConfig{}, err
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return VerifierConfig{}, fmt.Errorf("INDEXSHELL_GRANT_ISSUER is required")
	}
	if audience == "" {
		return VerifierConfig{}, fmt.Errorf("INDEXSHELL_GRANT_AUDIENCE is required")
	}
	if publicKey == "" {
		return VerifierConfig{}, fmt.Errorf("INDEXSHELL_GRANT_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return VerifierConfig{}, fmt.Errorf("decode grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return VerifierConfig{}, fmt.Errorf("grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return VerifierConfig{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// VerifyGrant verifies a bearer grant and returns the caller identity.
func VerifyGrant(grant string, cfg VerifierConfig) (string, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return "", fmt.Errorf("%w: grant is required", ErrGrantInvalid)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return "", errors.New("grant verifier is not configured")
	}

	var parsed grantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return "", fmt.Errorf("%w: issuer", ErrGrantMismatch)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return "", fmt.Errorf("%w: audience", ErrGrantMismatch)
	}
	if parsed.ExpiresAt == nil {
		return "", fmt.Errorf("%w: exp is required", ErrGrantInvalid)
	}

	now := cfg.Now().UTC()
	if !parsed.ExpiresAt.Time.UTC().After(now) {
		return "", ErrGrantExpired
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return "", fmt.Errorf("%w: not active yet", ErrGrantInvalid)
	}

	email := strings.TrimSpace(parsed.Email)
	if email == "" {
		return "", fmt.Errorf("%w: email claim is required", ErrGrantInvalid)
	}
	return email, nil
}

// mapJWTError translates jwt library errors to grant errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return fmt.Errorf("%w: signature", ErrGrantInvalid)
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return fmt.Errorf("%w: alg", ErrGrantInvalid)
	}
	return ErrGrantInvalid
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
