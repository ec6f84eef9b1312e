package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"queryhub/internal/models"
)

// clockSkewLeeway is the tolerance applied to expiry and issued-at checks so
// slightly drifted clients are not rejected.
const clockSkewLeeway = 30 * time.Second

// TokenService issues and verifies HS256-signed tokens carrying a user id.
// Verification is a pure function of the token, the secret and the clock;
// no server-side state backs a token.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

func NewTokenService(secret string, ttl time.Duration, logger *zap.Logger) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
	}
}

// Issue returns a signed token for userID along with its expiry.
func (s *TokenService) Issue(userID int64) (string, time.Time, error) {
	now := time.Now().UTC()
	expirationTime := now.Add(s.ttl)
	claims := &models.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expirationTime, nil
}

// Verify returns the user id carried by tokenString. ok is false on a bad
// signature, malformed structure or past expiry; callers see a single
// unauthenticated result, the distinction exists only in the logs.
func (s *TokenService) Verify(tokenString string) (int64, bool) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is what we expect
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithLeeway(clockSkewLeeway))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Warn("token expired", zap.Int64("user_id", claims.UserID))
		} else {
			s.logger.Warn("invalid token", zap.Error(err))
		}
		return 0, false
	}

	if !token.Valid {
		s.logger.Warn("invalid token")
		return 0, false
	}

	return claims.UserID, true
}
