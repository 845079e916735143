package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/service"
)

const principalKey = "itemsync.principal"

// requireAuth extracts "Authorization: Bearer <JWT>" and stores the principal.
func (s *Server) requireAuth(c *gin.Context) {
	tok, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		writeError(c, s.log, errs.ErrUnauthorized)
		c.Abort()
		return
	}
	p, err := s.auth.Authenticate(tok)
	if err != nil {
		writeError(c, s.log, err)
		c.Abort()
		return
	}
	c.Set(principalKey, p)
	c.Next()
}

// principal returns the caller stored by requireAuth.
func principal(c *gin.Context) service.Principal {
	p, _ := c.MustGet(principalKey).(service.Principal)
	return p
}

func bearerToken(h string) (string, bool) {
	h = strings.TrimSpace(h)
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	t := strings.TrimSpace(h[7:])
	return t, t != ""
}
