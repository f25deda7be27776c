package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/pricing"
)

const (
	msgCorrectFields = "Please correct the highlighted fields."
	msgUnavailable   = "We couldn't reach the store. Please check your connection and try again."
	msgGeneric       = "Something went wrong. Please try again."
)

type cartResponse struct {
	SessionID string                   `json:"sessionId"`
	Lines     []lineResponse           `json:"lines"`
	ItemCount int                      `json:"itemCount"`
	Shipping  domain.ShippingSelection `json:"shipping"`
	Totals    pricing.Totals           `json:"totals"`
}

type lineResponse struct {
	ProductID      string   `json:"productId"`
	VariantID      string   `json:"variantId"`
	Name           string   `json:"name,omitempty"`
	Slug           string   `json:"slug,omitempty"`
	ImageURL       string   `json:"imageUrl,omitempty"`
	Volume         string   `json:"volume,omitempty"`
	Quantity       int      `json:"quantity"`
	UnitPrice      float64  `json:"unitPrice"`
	OriginalPrice  *float64 `json:"originalPrice,omitempty"`
	LineTotal      float64  `json:"lineTotal"`
	StockQuantity  *int     `json:"stockQuantity,omitempty"`
	DetailsPending bool     `json:"detailsPending"`
}

func toLineResponse(l domain.CartLine) lineResponse {
	out := lineResponse{
		ProductID:      l.ProductID,
		VariantID:      l.VariantID,
		Quantity:       l.Quantity,
		UnitPrice:      pricing.Round2(pricing.EffectiveUnitPrice(l)),
		LineTotal:      pricing.Round2(pricing.LineTotal(l)),
		DetailsPending: l.DetailsPending,
	}
	if p := l.Product; p != nil {
		out.Name = p.Name
		out.Slug = p.Slug
		out.ImageURL = p.ImageURL
	}
	if v := l.Variation; v != nil {
		if v.ImageURL != "" {
			out.ImageURL = v.ImageURL
		}
		out.Volume = v.Volume
		out.StockQuantity = v.StockQuantity
	}
	if original, ok := pricing.OriginalUnitPrice(l); ok && original > pricing.EffectiveUnitPrice(l) {
		rounded := pricing.Round2(original)
		out.OriginalPrice = &rounded
	}
	return out
}

func toCartResponse(sessionID string, lines []domain.CartLine, shipping domain.ShippingSelection) cartResponse {
	out := cartResponse{
		SessionID: sessionID,
		Lines:     make([]lineResponse, 0, len(lines)),
		Shipping:  shipping,
		Totals:    pricing.Compute(lines, shipping.Charge, 0).Rounded(),
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, toLineResponse(l))
		out.ItemCount += l.Quantity
	}
	return out
}

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Message string               `json:"message"`
	Kind    string               `json:"kind"`
	Errors  domain.FieldErrorMap `json:"errors,omitempty"`
	Summary []string             `json:"summary,omitempty"`
}

// errorStatus maps an error to its HTTP status and body.
func errorStatus(err error) (int, errorBody) {
	kind := domain.KindOf(err)
	body := errorBody{Kind: kind.String(), Message: msgGeneric}

	var ve domain.ValidationError
	var re *domain.RemoteError
	switch {
	case errors.As(err, &ve):
		body.Message = msgCorrectFields
		body.Errors = ve.Fields
		body.Summary = ve.Fields.Summary()
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, domain.ErrUnknownRegion):
		body.Kind = domain.KindValidation.String()
		body.Message = msgCorrectFields
		body.Errors = domain.FieldErrorMap{"region": "Please choose a delivery area"}
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, domain.ErrInvalidQuantity):
		body.Kind = domain.KindValidation.String()
		body.Message = "Quantity cannot be negative"
		return http.StatusBadRequest, body
	case errors.Is(err, domain.ErrOutOfStock):
		body.Kind = domain.KindValidation.String()
		body.Message = "This item is out of stock"
		return http.StatusConflict, body
	case errors.Is(err, domain.ErrSubmitInProgress), errors.Is(err, domain.ErrAlreadySubmitted):
		body.Message = err.Error()
		return http.StatusConflict, body
	case errors.Is(err, domain.ErrRatesUnavailable):
		body.Message = msgUnavailable
		return http.StatusServiceUnavailable, body
	case errors.Is(err, domain.ErrLineNotFound):
		body.Message = "This item is no longer in your cart"
		return http.StatusNotFound, body
	case errors.Is(err, domain.ErrNotFound):
		body.Message = "not found"
		return http.StatusNotFound, body
	case errors.As(err, &re):
		if re.Message != "" {
			body.Message = re.Message
		}
		switch re.Kind {
		case domain.KindRemoteValidation:
			if len(re.Fields) > 0 {
				body.Errors = domain.FieldErrorMapFrom(re.Fields)
				body.Summary = body.Errors.Summary()
			}
			return http.StatusUnprocessableEntity, body
		case domain.KindNotFound:
			return http.StatusNotFound, body
		case domain.KindNetwork:
			body.Message = msgUnavailable
			return http.StatusServiceUnavailable, body
		default:
			return http.StatusBadGateway, body
		}
	case kind == domain.KindNetwork:
		body.Message = msgUnavailable
		return http.StatusServiceUnavailable, body
	}
	return http.StatusInternalServerError, body
}

func writeError(c *gin.Context, err error) {
	status, body := errorStatus(err)
	c.JSON(status, body)
}
