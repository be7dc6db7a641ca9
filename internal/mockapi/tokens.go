package mockapi

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wastewatch/wastewatch/internal/shared"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var errTokenInvalid = errors.New("Given token not valid for any token type")

type tokenClaims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// issuer mints HS256 token pairs and remembers which access tokens are live so
// tests can revoke them.
type issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu   sync.Mutex
	live map[string]int64
}

func newIssuer(secret string, accessTTL, refreshTTL time.Duration, now func() time.Time) *issuer {
	return &issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		live:       make(map[string]int64),
	}
}

func (i *issuer) pair(userID int64) (shared.Tokens, error) {
	access, jti, err := i.sign(userID, tokenTypeAccess, i.accessTTL)
	if err != nil {
		return shared.Tokens{}, err
	}
	refresh, _, err := i.sign(userID, tokenTypeRefresh, i.refreshTTL)
	if err != nil {
		return shared.Tokens{}, err
	}
	i.mu.Lock()
	i.live[jti] = userID
	i.mu.Unlock()
	return shared.Tokens{Access: access, Refresh: refresh}, nil
}

func (i *issuer) sign(userID int64, kind string, ttl time.Duration) (string, string, error) {
	now := i.now()
	jti := uuid.NewString()
	claims := tokenClaims{
		UserID:    userID,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// verify returns the user id behind a live access token.
func (i *issuer) verify(raw string) (int64, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return 0, errTokenInvalid
	}
	if claims.TokenType != tokenTypeAccess {
		return 0, errTokenInvalid
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.live[claims.ID]; !ok {
		return 0, errTokenInvalid
	}
	return claims.UserID, nil
}

func (i *issuer) revokeAll() {
	i.mu.Lock()
	defer i.mu.Unlock()
	clear(i.live)
}
