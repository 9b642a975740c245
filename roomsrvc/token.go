package roomsrvc

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// mintSessionToken issues the opaque value a client presents to resume
// the same participant identity after a disconnect. Clients treat it as
// opaque; signing it keeps forged resumes out.
func (r *Registry) mintSessionToken(roomID, participantID string) (string, error) {
	claims := jwt.MapClaims{
		"room": roomID,
		"pid":  participantID,
		"iat":  r.clock.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// verifySessionToken checks the signature and returns the room and
// participant the token was minted for.
func (r *Registry) verifySessionToken(tokenStr string) (roomID, participantID string, err error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", "", fmt.Errorf("invalid session token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid session token claims")
	}
	roomID, _ = claims["room"].(string)
	participantID, _ = claims["pid"].(string)
	if roomID == "" || participantID == "" {
		return "", "", fmt.Errorf("session token missing room or participant")
	}
	return roomID, participantID, nil
}

func ptrTime(t time.Time) *time.Time { return &t }
