package httpserver

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/pricing"
	manualordersvc "storefront-checkout/internal/service/manualorder"
	"storefront-checkout/internal/session"
)

// SessionStore resolves storefront sessions.
type SessionStore interface {
	Create() *session.Session
	Open(id string) *session.Session
	Get(id string) (*session.Session, error)
	Delete(id string) bool
}

// RateSource serves the shipping rate table.
type RateSource interface {
	Ensure(ctx context.Context) (domain.RateTable, error)
}

type ManualOrderService interface {
	Quote(in manualordersvc.OrderInput) pricing.ManualOrderQuote
	Create(ctx context.Context, in manualordersvc.OrderInput) (*domain.ManualOrder, error)
	Get(ctx context.Context, id string) (*domain.ManualOrder, error)
	List(ctx context.Context, limit, offset int) ([]domain.ManualOrder, error)
}

type AttemptLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]domain.CheckoutAttempt, error)
}

// Deps holds the services behind the routes. ManualOrders and Attempts are optional; their
// routes are only registered when set.
type Deps struct {
	Sessions     SessionStore
	Rates        RateSource
	ManualOrders ManualOrderService
	Attempts     AttemptLister
	CORSOrigins  []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db pinger, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, deps.Rates))

	if deps.Rates != nil {
		router.GET("/shipping/rates", ratesHandler(deps.Rates))
	}

	if deps.Sessions != nil {
		router.POST("/sessions", openSessionHandler(deps.Sessions))
		router.DELETE("/sessions/:sessionId", closeSessionHandler(deps.Sessions))

		sess := router.Group("/sessions/:sessionId", sessionMiddleware(deps.Sessions))
		sess.GET("/cart", getCartHandler)
		sess.PUT("/cart/lines/:productId/:variantId", setQuantityHandler)
		sess.DELETE("/cart/lines/:productId/:variantId", removeLineHandler)
		sess.GET("/totals", totalsHandler)
		sess.PUT("/shipping/region", selectRegionHandler)
		sess.POST("/shipping/classify", classifyHandler)
		sess.POST("/checkout/prepare", prepareCheckoutHandler)
		sess.GET("/checkout/draft", getDraftHandler)
		sess.PUT("/checkout/draft", updateDraftHandler)
		sess.POST("/checkout", submitCheckoutHandler)
	}

	admin := router.Group("/admin")
	if deps.ManualOrders != nil {
		admin.POST("/manual-orders/quote", quoteManualOrderHandler(deps.ManualOrders))
		admin.POST("/manual-orders", createManualOrderHandler(deps.ManualOrders))
		admin.GET("/manual-orders", listManualOrdersHandler(deps.ManualOrders))
		admin.GET("/manual-orders/:id", getManualOrderHandler(deps.ManualOrders))
	}
	if deps.Attempts != nil {
		admin.GET("/checkout-attempts", attemptsHandler(deps.Attempts))
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Admin-User"},
		AllowCredentials: len(origins) > 0,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
