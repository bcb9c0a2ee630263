package auth

import (
	"fmt"

	"noteflow/internal/collab"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates bearer credentials presented at connection time.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the token's signature and expiry and returns the subject
// claim. All failures come back as authentication errors; the caller
// treats them as terminal for the connection attempt.
func (v *Verifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", collab.ErrAuthentication("credential invalid or expired")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", collab.ErrAuthentication("credential invalid or expired")
	}
	return subject, nil
}
