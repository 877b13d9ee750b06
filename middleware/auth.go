package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	tokenstore "GemChat/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextUserIDKey = "current_user_id"
	ContextJTIKey    = "current_jti"
	ContextExpKey    = "current_exp"

	// AnonymousUser identifies callers when authentication is optional.
	AnonymousUser = "anonymous"
)

var (
	ErrMissingToken   = errors.New("missing authorization header")
	ErrInvalidHeader  = errors.New("invalid authorization header")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenRevoked   = errors.New("Token has been revoked (logout)")
	ErrInvalidSubject = errors.New("invalid subject in token")
)

// Claims is what the handlers need from a verified token.
type Claims struct {
	Subject   string
	JTI       string
	ExpiresAt time.Time
}

// Auth verifies HMAC signed bearer tokens issued by the identity provider.
type Auth struct {
	secret   []byte
	required bool
	revoked  *tokenstore.Store
}

func NewAuth(secret string, required bool, revoked *tokenstore.Store) *Auth {
	return &Auth{secret: []byte(secret), required: required, revoked: revoked}
}

func (a *Auth) Required() bool { return a.required }

func (a *Auth) Revocations() *tokenstore.Store { return a.revoked }

// ParseToken validates tokenStr and extracts its claims.
func (a *Auth) ParseToken(tokenStr string) (Claims, error) {
	// an empty secret would accept tokens anyone can sign
	if len(a.secret) == 0 {
		return Claims{}, ErrInvalidToken
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		// only accept HMAC signing
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	jti, _ := claims["jti"].(string)
	if a.revoked.IsRevoked(jti) {
		return Claims{}, ErrTokenRevoked
	}

	var sub string
	switch v := claims["sub"].(type) {
	case string:
		sub = v
	case float64:
		// numeric subjects decode as float64
		sub = strconv.Itoa(int(v))
	}
	if sub == "" {
		return Claims{}, ErrInvalidSubject
	}

	out := Claims{Subject: sub, JTI: jti}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// Middleware requires a valid bearer token when auth is required. Otherwise
// a missing header is let through as the anonymous user, but a header that
// is present still has to verify.
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if a.required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": ErrMissingToken.Error()})
				return
			}
			c.Set(ContextUserIDKey, AnonymousUser)
			c.Next()
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": ErrInvalidHeader.Error()})
			return
		}
		claims, err := a.ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
			return
		}

		c.Set(ContextUserIDKey, claims.Subject)
		c.Set(ContextJTIKey, claims.JTI)
		c.Set(ContextExpKey, claims.ExpiresAt)
		c.Next()
	}
}

// CurrentUserID returns the caller set by Middleware, or AnonymousUser.
func CurrentUserID(c *gin.Context) string {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return AnonymousUser
}
