package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/Pathfinder132/SkillSwap/internal/backend"
)

const (
	userIdClaim = "user-id"
	expClaim    = "exp"
)

// Session is the signed-in user's identity and display name, held in
// memory for the lifetime of the client.
type Session struct {
	UserId   int
	Username string
}

// IdentityFromToken extracts the user id carried in the backend-issued
// access token. The signature is the backend's to verify; the client
// only reads its own identity out of the claims, but it does refuse a
// token that is already expired.
func IdentityFromToken(accessToken string) (int, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	exp, ok := claims[expClaim].(float64)
	if ok && time.Now().After(time.Unix(int64(exp), 0)) {
		return 0, fmt.Errorf("token expired")
	}

	userId, ok := claims[userIdClaim].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid user id claim")
	}

	return int(userId), nil
}

// Establish resolves the token's identity against the backend and
// returns the populated session.
func Establish(db backend.Store, accessToken string) (*Session, error) {
	userId, err := IdentityFromToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}

	user, err := db.GetAccountById(userId)
	if err != nil {
		return nil, fmt.Errorf("load account %d: %w", userId, err)
	}

	return &Session{
		UserId:   user.Id,
		Username: user.Username,
	}, nil
}
