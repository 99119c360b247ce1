package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Daskott/famtree/server/auth/key"
	"github.com/golang-jwt/jwt"
	"github.com/lestrrat-go/jwx/jwk"
)

const ADMIN_ROLE = "admin"

var (
	ErrNoToken      = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token provided")
)

type TokenClaims struct {
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.StandardClaims
}

func (claims *TokenClaims) IsAdmin() bool {
	for _, role := range claims.Roles {
		if role == ADMIN_ROLE {
			return true
		}
	}
	return false
}

// Verifier checks a raw bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (*TokenClaims, error)
}

func EncodeJWT(claims TokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*TokenClaims, error) {
	return decode(tokenString, func(token *jwt.Token) (interface{}, error) {
		return keyPair.PublicKey, nil
	})
}

// TokenFromHeader extracts the token of a "Bearer <token>" Authorization header.
func TokenFromHeader(authHeaderValue string) (string, error) {
	authHeaderList := strings.SplitN(authHeaderValue, "Bearer ", 2)
	if len(authHeaderList) < 2 || strings.TrimSpace(authHeaderList[1]) == "" {
		return "", ErrNoToken
	}

	return strings.TrimSpace(authHeaderList[1]), nil
}

// ---------------------------------------------------------------------------------//
// Verifiers
// --------------------------------------------------------------------------------//

type localVerifier struct {
	keyPair  *key.KeyPair
	issuer   string
	audience string
}

// NewLocalVerifier verifies tokens signed by keyPair. Empty issuer or
// audience skip the matching claim check.
func NewLocalVerifier(keyPair *key.KeyPair, issuer, audience string) Verifier {
	return &localVerifier{keyPair: keyPair, issuer: issuer, audience: audience}
}

func (v *localVerifier) Verify(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := DecodeJWT(token, v.keyPair)
	if err != nil {
		return nil, err
	}

	return claims, checkIssuerAndAudience(claims, v.issuer, v.audience)
}

type jwksVerifier struct {
	url      string
	issuer   string
	audience string
	keys     *jwk.AutoRefresh
}

// NewJWKSVerifier verifies tokens against the key set published at jwksURL.
// The set is cached and refreshed in the background until ctx is done.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer, audience string) Verifier {
	keys := jwk.NewAutoRefresh(ctx)
	keys.Configure(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute))

	return &jwksVerifier{url: jwksURL, issuer: issuer, audience: audience, keys: keys}
}

func (v *jwksVerifier) Verify(ctx context.Context, token string) (*TokenClaims, error) {
	set, err := v.keys.Fetch(ctx, v.url)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %v", err)
	}

	claims, err := decode(token, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		jwkKey, ok := set.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("no key with kid %q", kid)
		}
		return key.PublicKeyFromJWK(jwkKey)
	})
	if err != nil {
		return nil, err
	}

	return claims, checkIssuerAndAudience(claims, v.issuer, v.audience)
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func decode(tokenString string, keyFunc jwt.Keyfunc) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyFunc(token)
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	tokenClaims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to TokenClaims")
	}

	return tokenClaims, nil
}

func checkIssuerAndAudience(claims *TokenClaims, issuer, audience string) error {
	if issuer != "" && !claims.VerifyIssuer(issuer, true) {
		return fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}

	if audience != "" && !claims.VerifyAudience(audience, true) {
		return fmt.Errorf("%w: unexpected audience %q", ErrInvalidToken, claims.Audience)
	}

	return nil
}
