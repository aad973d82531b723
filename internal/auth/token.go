package auth

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/campus360/incidencias-service/internal/domain"
)

// TokenVerifier validates bearer tokens issued by the external authentication
// service. This service never issues tokens.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a verifier for the shared HS256 secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Claims describes the JWT payload. The identity provider has emitted the
// subject id and role under different claim names over time; all spellings
// are accepted as equivalent.
type Claims struct {
	UserID      string `json:"user_id,omitempty"`
	UsuarioID   string `json:"usuario_id,omitempty"`
	Role        string `json:"role,omitempty"`
	TipoUsuario string `json:"tipo_usuario,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the first usable subject identifier claim.
func (c *Claims) SubjectID() string {
	for _, candidate := range []string{c.Subject, c.UserID, c.UsuarioID} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// RoleName returns the first usable role claim.
func (c *Claims) RoleName() string {
	if c.Role != "" {
		return c.Role
	}
	return c.TipoUsuario
}

// Actor builds the domain actor from the claims. A missing subject id or
// role makes the token unusable.
func (c *Claims) Actor() (domain.Actor, error) {
	subjectID := c.SubjectID()
	if subjectID == "" {
		return domain.Actor{}, errors.New("token carries no subject identifier")
	}
	role := c.RoleName()
	if role == "" {
		return domain.Actor{}, errors.New("token carries no role")
	}
	return domain.Actor{SubjectID: subjectID, Role: role}, nil
}

// Parse validates the token signature and returns its claims.
func (v *TokenVerifier) Parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
