package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/farmtrust/paymentsapi/pkg/errors"
)

// Identity is the verified caller extracted from an access token
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// TokenVerifier validates access tokens issued by the auth service.
// Token issuance lives elsewhere; this service only verifies.
type TokenVerifier interface {
	VerifyToken(token string) (*Identity, error)
}

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier creates an HS256 verifier sharing the auth service secret
func NewJWTVerifier(secret string) TokenVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (v *jwtVerifier) VerifyToken(token string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, &errors.ErrUnauthorized{Message: "invalid token"}
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return nil, &errors.ErrUnauthorized{Message: "invalid token claims"}
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return nil, &errors.ErrUnauthorized{Message: "invalid token subject"}
	}

	return &Identity{UserID: userID, Role: claims.Role}, nil
}
