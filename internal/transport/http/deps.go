package http

import (
	"github.com/auth-api-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/auth-api-nosql/internal/infrastructure/jwt"
	"github.com/auth-api-nosql/internal/infrastructure/smtp"
	"github.com/auth-api-nosql/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo      *dynamo.UserRepo
	SessionRepo   *dynamo.SessionRepo
	ResetCodeRepo *dynamo.ResetCodeRepo
	Mailer        smtp.Mailer
	SMSSender     sns.SMSSender
	JWTProvider   *jwtinfra.Provider
}
