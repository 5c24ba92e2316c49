package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

const (
	DefaultTokenTTL = 12 * time.Hour
	issuer          = "shelfscan"
)

type Claims struct {
	Role domain.Role `json:"role"`
	Name string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies HS256 bearer tokens carrying a Session.
type TokenService struct {
	log    *logger.Logger
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(log *logger.Logger, secret string, ttl time.Duration) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("missing JWT secret")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		log:    log.With("service", "TokenService"),
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

func (s *TokenService) Mint(sess domain.Session) (string, error) {
	if sess.UserID == "" {
		return "", fmt.Errorf("mint token: empty user id")
	}
	if !sess.Role.Valid() {
		return "", fmt.Errorf("mint token: unknown role %q", sess.Role)
	}
	now := s.now()
	claims := Claims{
		Role: sess.Role,
		Name: sess.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// MintFor issues a token for a stored account.
func (s *TokenService) MintFor(u *domain.User) (string, error) {
	if u == nil {
		return "", fmt.Errorf("mint token: nil user")
	}
	return s.Mint(domain.Session{UserID: u.ID, Role: u.Role, Name: u.Name})
}

// Parse verifies tokenString and returns the session it carries. Every
// failure is unauthenticated.
func (s *TokenService) Parse(tokenString string) (*domain.Session, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, apierr.Unauthenticated("missing token")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeUnauthenticated, fmt.Errorf("parse token: %w", err))
	}
	if !token.Valid || claims.Subject == "" {
		return nil, apierr.Unauthenticated("invalid or expired token")
	}
	if !claims.Role.Valid() {
		return nil, apierr.Unauthenticated("token carries an unknown role")
	}
	return &domain.Session{UserID: claims.Subject, Role: claims.Role, Name: claims.Name}, nil
}
