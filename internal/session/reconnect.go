package session

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"

	"gamearena/internal/domain"
)

// ReconnectIssuer mints and verifies short-lived reconnection tokens, so a
// peer that drops a transport mid-game can rejoin the same ParticipantID
// instead of being handed a fresh one. Generalizes the teacher's manual
// JWT payload parse (extractUserIDFromToken) into real HS256 verification.
type ReconnectIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewReconnectIssuer builds an issuer signing with secret and expiring
// tokens after ttl.
func NewReconnectIssuer(secret []byte, ttl time.Duration) *ReconnectIssuer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReconnectIssuer{secret: secret, ttl: ttl}
}

// Issue mints a reconnection token binding participant to gameId.
func (r *ReconnectIssuer) Issue(gameID domain.GameID, participant domain.ParticipantID) (string, error) {
	claims := jwt.MapClaims{
		"gid": string(gameID),
		"pid": string(participant),
		"exp": time.Now().Add(r.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}

// Verify checks a reconnection token's signature and expiry and returns
// the gameId/participantId it was issued for.
func (r *ReconnectIssuer) Verify(tokenString string) (domain.GameID, domain.ParticipantID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("invalid reconnect token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid reconnect token claims")
	}
	gid, _ := claims["gid"].(string)
	pid, _ := claims["pid"].(string)
	if gid == "" || pid == "" {
		return "", "", fmt.Errorf("reconnect token missing gid/pid")
	}
	return domain.GameID(gid), domain.ParticipantID(pid), nil
}
