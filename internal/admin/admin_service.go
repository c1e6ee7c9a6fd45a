package admin

import (
	"crypto/rsa"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
)

type JWTClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

type Service struct {
	config     Config
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

func NewService(config Config, privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey) *Service {
	return &Service{
		config:     config,
		privateKey: privateKey,
		publicKey:  publicKey,
	}
}

func (s *Service) GenerateJWT() (string, int64, error) {
	expiresAt := time.Now().Add(time.Duration(s.config.JWTExpirationHours) * time.Hour).Unix()

	claims := JWTClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Unix(expiresAt, 0)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tokenString, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresAt, nil
}

func (s *Service) ValidateJWT(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.publicKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && claims.Admin {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

func (s *Service) ValidateJWTFromRequest(ctx *fasthttp.RequestCtx) (*JWTClaims, error) {
	authHeader := ctx.Request.Header.Peek("Authorization")
	if authHeader == nil {
		return nil, fmt.Errorf("missing authorization header")
	}

	tokenString, err := extractBearerToken(string(authHeader))
	if err != nil {
		return nil, fmt.Errorf("invalid authorization header: %w", err)
	}

	return s.ValidateJWT(tokenString)
}

func extractBearerToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
