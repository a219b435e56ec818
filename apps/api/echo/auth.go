package echoapi

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core"
)

const (
	RoleAdmin   = "admin:"
	RoleTrainer = "trainer:"

	contextTokenKey = "userToken"
)

// Claims represents the authorization claims transmitted via a JWT.
// Tokens are issued by the identity provider; the subject of a trainer token is its trainer ID.
type Claims struct {
	jwt.StandardClaims
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

func NewClaims(conf *core.Config, subject, name, email string, roles ...string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   subject,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  name,
		Email: email,
		Roles: roles,
	}
}

func (c Claims) hasRole(prefix string) bool {
	for _, role := range c.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (c Claims) IsAdmin() bool   { return c.hasRole(RoleAdmin) }
func (c Claims) IsTrainer() bool { return c.hasRole(RoleTrainer) }

func (c Claims) actor() core.Actor {
	return core.Actor{ID: c.Subject, Name: c.Name, Email: c.Email}
}

// appJWTConfig is the JWT auth middleware config.
func appJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	jwtConf := appJWTConfig(conf)
	method := jwt.GetSigningMethod(jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
