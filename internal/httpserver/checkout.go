package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/domain"
)

func prepareCheckoutHandler(c *gin.Context) {
	sess := sessionFrom(c)
	if err := sess.Checkout.Prepare(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func draftResponse(sub *checkout.Submitter) gin.H {
	errs := sub.FieldErrors()
	return gin.H{
		"form":    sub.Draft().Form(),
		"state":   sub.State(),
		"errors":  errs,
		"summary": errs.Summary(),
	}
}

func getDraftHandler(c *gin.Context) {
	c.JSON(http.StatusOK, draftResponse(sessionFrom(c).Checkout))
}

// updateDraftHandler merges the changed fields and, with ?validate=true, re-runs validation.
func updateDraftHandler(c *gin.Context) {
	sess := sessionFrom(c)
	var patch checkout.FormPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	sess.Checkout.Draft().Apply(patch)
	if strings.EqualFold(c.Query("validate"), "true") {
		sess.Checkout.Validate()
	}
	c.JSON(http.StatusOK, draftResponse(sess.Checkout))
}

func submitCheckoutHandler(c *gin.Context) {
	sess := sessionFrom(c)
	res, err := sess.Checkout.Submit(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if res.State == checkout.StateSucceeded {
		c.JSON(http.StatusCreated, res)
		return
	}

	status := http.StatusUnprocessableEntity
	switch res.Kind {
	case domain.KindValidation, domain.KindRemoteValidation:
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindNetwork:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusBadGateway
	}
	c.JSON(status, errorBody{
		Message: res.Message,
		Kind:    res.Kind.String(),
		Errors:  res.FieldErrors,
		Summary: res.FieldErrors.Summary(),
	})
}

func attemptsHandler(attempts AttemptLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(c.Query("sessionId"))
		if sessionID == "" {
			writeError(c, domain.ValidationError{Fields: domain.FieldErrorMap{"sessionId": "Session id is required"}})
			return
		}
		list, err := attempts.ListBySession(c.Request.Context(), sessionID)
		if err != nil {
			writeError(c, err)
			return
		}
		if list == nil {
			list = []domain.CheckoutAttempt{}
		}
		c.JSON(http.StatusOK, gin.H{"results": list})
	}
}
