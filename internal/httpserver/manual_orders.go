package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/domain"
	manualordersvc "storefront-checkout/internal/service/manualorder"
)

func quoteManualOrderHandler(svc ManualOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in manualordersvc.OrderInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
			return
		}
		c.JSON(http.StatusOK, svc.Quote(in))
	}
}

func createManualOrderHandler(svc ManualOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in manualordersvc.OrderInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
			return
		}
		if in.CreatedBy == "" {
			in.CreatedBy = c.GetHeader("X-Admin-User")
		}
		order, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func listManualOrdersHandler(svc ManualOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))
		orders, err := svc.List(c.Request.Context(), limit, offset)
		if err != nil {
			writeError(c, err)
			return
		}
		if orders == nil {
			orders = []domain.ManualOrder{}
		}
		c.JSON(http.StatusOK, gin.H{"results": orders, "count": len(orders), "offset": offset})
	}
}

func getManualOrderHandler(svc ManualOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
