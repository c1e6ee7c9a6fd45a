package pinauth

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type Service struct {
	store      *Store
	config     Config
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

func NewService(store *Store, config Config, privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey) *Service {
	return &Service{
		store:      store,
		config:     config,
		privateKey: privateKey,
		publicKey:  publicKey,
	}
}

func (s *Service) Store() *Store {
	return s.store
}

// Validate checks a submitted PIN against the stored hash for the session's
// portfolio item. On success the session is granted for its remaining
// lifetime and a signed grant token is returned. Validation never touches the
// media list and never starts a fetch by itself.
func (s *Service) Validate(sess *Session, pinHash, submittedPin string) (string, error) {
	if len(submittedPin) < MinPinLength {
		return "", ErrPinTooShort
	}
	if pinHash == "" {
		// No PIN on the item means nothing to validate against.
		return "", ErrInvalidPin
	}

	match, err := VerifyPin(pinHash, submittedPin)
	if err != nil {
		log.Error().Err(err).Str("portfolioId", sess.PortfolioID).Msg("PIN hash verification failed")
		return "", fmt.Errorf("%w: %v", ErrValidateUnavailable, err)
	}
	if !match {
		log.Debug().Str("portfolioId", sess.PortfolioID).Msg("PIN rejected")
		return "", ErrInvalidPin
	}

	if err := s.store.Grant(sess.ID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidateUnavailable, err)
	}

	token, err := s.generateGrantToken(sess)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sess.ID).Msg("Failed to sign grant token")
		return "", fmt.Errorf("%w: %v", ErrValidateUnavailable, err)
	}

	log.Info().
		Str("portfolioId", sess.PortfolioID).
		Str("sessionId", sess.ID).
		Msg("PIN authorized")
	return token, nil
}

type grantJWTClaims struct {
	GrantClaims
	jwt.RegisteredClaims
}

func (s *Service) generateGrantToken(sess *Session) (string, error) {
	now := time.Now()
	claims := grantJWTClaims{
		GrantClaims: GrantClaims{
			SessionID:   sess.ID,
			PortfolioID: sess.PortfolioID,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.GrantTTLMinutes) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.privateKey)
}

// ValidateGrantToken parses and verifies a grant token and returns its claims.
// Used by the viewer socket, which authenticates with the token instead of a
// session header.
func (s *Service) ValidateGrantToken(tokenString string) (*GrantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &grantJWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.publicKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*grantJWTClaims); ok && token.Valid {
		return &claims.GrantClaims, nil
	}
	return nil, fmt.Errorf("invalid grant token")
}
