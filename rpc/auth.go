package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"
)

// AuthConfig configures bearer-token verification. Tokens are HMAC-signed
// JWTs whose subject is the caller's hex address.
type AuthConfig struct {
	HMACSecret          string
	Issuer              string
	Audience            string
	AllowAnonymousReads bool
	ClockSkew           time.Duration
}

type authenticator struct {
	cfg    AuthConfig
	secret []byte
}

func newAuthenticator(cfg AuthConfig) (*authenticator, error) {
	secret := []byte(strings.TrimSpace(cfg.HMACSecret))
	if len(secret) == 0 {
		return nil, fmt.Errorf("rpc: auth secret required")
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &authenticator{cfg: cfg, secret: secret}, nil
}

func (a *authenticator) authenticate(r *http.Request) ([20]byte, *RPCError) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return [20]byte{}, unauthorized("missing Authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return [20]byte{}, unauthorized("Authorization header must use Bearer scheme")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return [20]byte{}, unauthorized("missing bearer token")
	}
	subject, err := a.subject(token)
	if err != nil {
		return [20]byte{}, unauthorized("invalid token")
	}
	return subject, nil
}

func (a *authenticator) subject(token string) ([20]byte, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return [20]byte{}, err
	}
	if !parsed.Valid {
		return [20]byte{}, errors.New("token invalid")
	}
	if !common.IsHexAddress(claims.Subject) {
		return [20]byte{}, fmt.Errorf("subject %q is not an address", claims.Subject)
	}
	return common.HexToAddress(claims.Subject), nil
}

func unauthorized(message string) *RPCError {
	return newError(http.StatusUnauthorized, codeUnauthorized, message, nil)
}

// IssueToken mints an HMAC token naming subject as the caller. It backs the
// swapctl dev-token command and tests.
func IssueToken(secret string, subject [20]byte, issuer, audience string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("rpc: auth secret required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   common.Address(subject).Hex(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}
