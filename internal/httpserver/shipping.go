package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/domain"
)

type regionRequest struct {
	Region domain.Region `json:"region" binding:"required"`
}

type classifyRequest struct {
	Address string `json:"address"`
}

func ratesHandler(rates RateSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		table, err := rates.Ensure(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, table)
	}
}

func selectRegionHandler(c *gin.Context) {
	sess := sessionFrom(c)
	var req regionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.ErrUnknownRegion)
		return
	}
	if _, err := sess.Shipping.SelectRegion(c.Request.Context(), req.Region); err != nil {
		writeError(c, err)
		return
	}
	resp := cartSnapshot(sess)
	c.JSON(http.StatusOK, gin.H{"shipping": resp.Shipping, "totals": resp.Totals})
}

func classifyHandler(c *gin.Context) {
	sess := sessionFrom(c)
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if _, err := sess.Shipping.Classify(c.Request.Context(), req.Address); err != nil {
		writeError(c, err)
		return
	}
	resp := cartSnapshot(sess)
	c.JSON(http.StatusOK, gin.H{"shipping": resp.Shipping, "totals": resp.Totals})
}
