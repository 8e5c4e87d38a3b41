package syncserver

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // the token hash format is fixed by existing deployments
	"encoding/hex"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/xreader/xreader/pkg/errcodes"
)

// Middleware checks bearer tokens. A token is accepted when the hex HMAC-MD5
// of it under secretKey equals tokenHash, so the server never stores the
// token itself.
type Middleware struct {
	secretKey []byte
	tokenHash string
}

func NewMiddleware(secretKey, tokenHash string) *Middleware {
	return &Middleware{
		secretKey: []byte(secretKey),
		tokenHash: strings.ToLower(strings.TrimSpace(tokenHash)),
	}
}

func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if token == "" || len(m.secretKey) == 0 || m.tokenHash == "" {
			return errcodes.Unauthorized("Missing token or server configuration")
		}

		if !hmac.Equal([]byte(HashToken(m.secretKey, token)), []byte(m.tokenHash)) {
			logger.FromEchoContext(c).Warn("invalid sync token")
			return errcodes.Unauthorized("Invalid token")
		}

		return next(c)
	}
}

// AllowUnknownFields lets clients send fields this server doesn't know about.
func AllowUnknownFields(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set("disallow_unknown_fields", false)
		return next(c)
	}
}

// HashToken returns the value to configure as the token hash for token.
func HashToken(secretKey []byte, token string) string {
	mac := hmac.New(md5.New, secretKey)
	_, _ = mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
