package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/session"
)

type openSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func openSessionHandler(sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req openSessionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
				return
			}
		}
		var sess *session.Session
		if id := strings.TrimSpace(req.SessionID); id != "" {
			sess = sessions.Open(id)
		} else {
			sess = sessions.Create()
		}
		c.JSON(http.StatusCreated, gin.H{"sessionId": sess.ID})
	}
}

func closeSessionHandler(sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sessions.Delete(c.Param("sessionId")) {
			writeError(c, domain.ErrNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func cartSnapshot(sess *session.Session) cartResponse {
	return toCartResponse(sess.ID, sess.Cart.Lines(), sess.Shipping.Selection())
}

// getCartHandler reloads the cart from the server and enriches every line.
func getCartHandler(c *gin.Context) {
	sess := sessionFrom(c)
	if err := sess.Cart.Load(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartSnapshot(sess))
}

func lineKey(c *gin.Context) domain.LineKey {
	return domain.LineKey{ProductID: c.Param("productId"), VariantID: c.Param("variantId")}
}

// writeMutationError reports a failed cart change together with the rolled-back cart.
func writeMutationError(c *gin.Context, sess *session.Session, err error) {
	status, body := errorStatus(err)
	c.JSON(status, gin.H{
		"message": body.Message,
		"kind":    body.Kind,
		"cart":    cartSnapshot(sess),
	})
}

func setQuantityHandler(c *gin.Context) {
	sess := sessionFrom(c)
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "quantity required"})
		return
	}
	if err := sess.Cart.SetQuantity(c.Request.Context(), lineKey(c), *req.Quantity); err != nil {
		if errors.Is(err, domain.ErrInvalidQuantity) || errors.Is(err, domain.ErrLineNotFound) || errors.Is(err, domain.ErrOutOfStock) {
			writeError(c, err)
			return
		}
		writeMutationError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, cartSnapshot(sess))
}

func removeLineHandler(c *gin.Context) {
	sess := sessionFrom(c)
	if err := sess.Cart.Remove(c.Request.Context(), lineKey(c)); err != nil {
		if errors.Is(err, domain.ErrLineNotFound) {
			writeError(c, err)
			return
		}
		writeMutationError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, cartSnapshot(sess))
}

func totalsHandler(c *gin.Context) {
	sess := sessionFrom(c)
	resp := cartSnapshot(sess)
	c.JSON(http.StatusOK, gin.H{"itemCount": resp.ItemCount, "shipping": resp.Shipping, "totals": resp.Totals})
}
