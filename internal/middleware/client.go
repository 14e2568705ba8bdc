package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jwalitptl/geo-pricing/pkg/httputil"
)

const (
	HeaderXClientID  = "X-Client-ID"
	ContextClientKey = "client_key"

	maxClientIDLength = 128
)

var errInvalidToken = errors.New("invalid token")

// ClientIdentityConfig configures how callers are told apart. Without a
// JWT secret, Authorization headers are ignored.
type ClientIdentityConfig struct {
	JWTSecret string
}

// ClientIdentity derives the key of the calling client, used for its
// region cache slot and its rate limit bucket. In order of preference:
// the subject of a valid bearer token, the X-Client-ID header, the
// client IP. A bearer token that fails verification is rejected.
func ClientIdentity(config ClientIdentityConfig) gin.HandlerFunc {
	secret := []byte(config.JWTSecret)

	return func(c *gin.Context) {
		if len(secret) > 0 {
			if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
				subject, err := verifySubject(token, secret)
				if err != nil {
					c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.NewErrorResponse("invalid token"))
					return
				}
				c.Set(ContextClientKey, "sub:"+subject)
				c.Next()
				return
			}
		}

		if id := strings.TrimSpace(c.GetHeader(HeaderXClientID)); id != "" && len(id) <= maxClientIDLength {
			c.Set(ContextClientKey, "cid:"+id)
			c.Next()
			return
		}

		c.Set(ContextClientKey, "ip:"+c.ClientIP())
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func verifySubject(tokenString string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// ClientKey returns the key set by ClientIdentity, or the client IP when
// the middleware did not run.
func ClientKey(c *gin.Context) string {
	if key := c.GetString(ContextClientKey); key != "" {
		return key
	}
	return "ip:" + c.ClientIP()
}
