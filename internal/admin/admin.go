// Package admin authenticates the photographer. There is exactly one admin
// identity, configured as a public key; login proves possession of the
// matching private key via a signed challenge.
package admin

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type Config struct {
	PublicKeyPEM       string `mapstructure:"public_key_pem"`
	ChallengeTTLSec    int    `mapstructure:"challenge_ttl_sec"`
	JWTExpirationHours int    `mapstructure:"jwt_expiration_hours"`
}

// authJWSClaims is the payload the admin client signs during login.
type authJWSClaims struct {
	Challenge string `json:"challenge"`
	IssuedAt  int64  `json:"iat"`
}

type ChallengeResponse struct {
	Challenge string `json:"challenge"`
	ExpiresAt int64  `json:"expiresAt"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

var timeNowFunc = time.Now

type Endpoints struct {
	config  Config
	service *Service

	mu         sync.Mutex
	challenges map[string]time.Time
}

func NewEndpoints(config Config, service *Service) *Endpoints {
	return &Endpoints{
		config:     config,
		service:    service,
		challenges: make(map[string]time.Time),
	}
}

// GetChallenge handles GET /admin/challenge
func (e *Endpoints) GetChallenge(ctx *fasthttp.RequestCtx) {
	challenge, err := generateChallenge()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate challenge")
		ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
		return
	}

	expiresAt := timeNowFunc().Add(time.Duration(e.config.ChallengeTTLSec) * time.Second)

	e.mu.Lock()
	e.challenges[challenge] = expiresAt
	e.mu.Unlock()

	response := ChallengeResponse{
		Challenge: challenge,
		ExpiresAt: expiresAt.Unix(),
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(response)
}

// Auth handles POST /admin/auth. The Authorization header carries a JWS over
// the issued challenge, signed with the admin's private key.
func (e *Endpoints) Auth(ctx *fasthttp.RequestCtx) {
	authHeader := ctx.Request.Header.Peek("Authorization")
	if authHeader == nil {
		log.Error().Msg("Missing authorization header")
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	signedJWS, err := extractBearerToken(string(authHeader))
	if err != nil {
		log.Error().Err(err).Msg("Invalid authorization header")
		ctx.Error("Invalid authorization header", fasthttp.StatusBadRequest)
		return
	}

	if err := e.verifyAuthJWS(signedJWS); err != nil {
		log.Error().Err(err).Msg("Failed to verify JWS")
		ctx.Error("Failed to verify JWS", fasthttp.StatusUnauthorized)
		return
	}

	token, expiresAt, err := e.service.GenerateJWT()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate JWT")
		ctx.Error("Internal server error", fasthttp.StatusInternalServerError)
		return
	}

	log.Info().Msg("Admin authenticated")

	response := LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(response)
}

func (e *Endpoints) verifyAuthJWS(signedJWS string) error {
	msg, err := jws.Parse([]byte(signedJWS))
	if err != nil {
		return fmt.Errorf("failed to parse JWS: %w", err)
	}

	var claims authJWSClaims
	if err := json.Unmarshal(msg.Payload(), &claims); err != nil {
		return fmt.Errorf("failed to unmarshal JWS claims: %w", err)
	}

	timeNow := timeNowFunc()
	issuedAtTime := time.Unix(claims.IssuedAt, 0)
	if issuedAtTime.Add(time.Duration(e.config.ChallengeTTLSec) * time.Second).Before(timeNow) {
		return fmt.Errorf("JWS has expired")
	}

	publicKey, err := ParseAdminPublicKey(e.config.PublicKeyPEM)
	if err != nil {
		return err
	}

	verified, err := jws.Verify([]byte(signedJWS), jws.WithKey(jwa.RS256(), publicKey))
	if err != nil {
		return fmt.Errorf("failed to verify JWS signature: %w", err)
	}
	if len(verified) == 0 {
		return fmt.Errorf("JWS signature verification failed")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	expiresAt, exists := e.challenges[claims.Challenge]
	if !exists {
		return fmt.Errorf("unknown challenge")
	}
	// A challenge is single-use regardless of the verification outcome.
	delete(e.challenges, claims.Challenge)

	if expiresAt.Before(timeNow) {
		return fmt.Errorf("challenge has expired")
	}

	return nil
}

// ParseAdminPublicKey decodes the configured admin public key PEM.
func ParseAdminPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("failed to decode admin public key PEM")
	}

	publicKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse admin public key: %w", err)
	}
	return publicKey, nil
}

func generateChallenge() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
