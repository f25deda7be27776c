package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/session"
)

const sessionCtxKey = "session"

// sessionMiddleware resolves :sessionId into a live session.
func sessionMiddleware(sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("sessionId"))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "session id required"})
			return
		}
		sess, err := sessions.Get(id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
					"message": "Your cart session has expired. Please refresh the page.",
					"kind":    domain.KindNotFound.String(),
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": msgGeneric})
			return
		}
		c.Set(sessionCtxKey, sess)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	return c.MustGet(sessionCtxKey).(*session.Session)
}
