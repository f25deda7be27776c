package remote

import (
	"context"
	"net/http"
	"net/url"

	"storefront-checkout/internal/domain"
)

// FetchCart returns the server-side cart of the session.
func (c *Client) FetchCart(ctx context.Context, sessionID string) (domain.RemoteCart, error) {
	const op = "fetch cart"
	resp, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/cart", sessionID: sessionID})
	if err != nil {
		return domain.RemoteCart{}, err
	}
	var out domain.RemoteCart
	if err := decode(op, resp, &out); err != nil {
		return domain.RemoteCart{}, err
	}
	return out, nil
}

// UpdateLineQuantity sets the quantity of the line holding variantID.
func (c *Client) UpdateLineQuantity(ctx context.Context, sessionID, variantID string, quantity int) error {
	_, err := c.do(ctx, call{
		op:        "update line quantity",
		method:    http.MethodPatch,
		path:      "/cart/items/" + url.PathEscape(variantID),
		sessionID: sessionID,
		in:        map[string]int{"quantity": quantity},
	})
	return err
}

// RemoveLine deletes a line from the server-side cart.
func (c *Client) RemoveLine(ctx context.Context, sessionID string, key domain.LineKey) error {
	_, err := c.do(ctx, call{
		op:        "remove line",
		method:    http.MethodDelete,
		path:      "/cart/items/" + url.PathEscape(key.ProductID) + "/" + url.PathEscape(key.VariantID),
		sessionID: sessionID,
	})
	return err
}

type productDetail struct {
	Product    domain.Product     `json:"product"`
	Variations []domain.Variation `json:"variations"`
}

// FetchProduct returns the catalog record of productID with its variation list.
func (c *Client) FetchProduct(ctx context.Context, productID string) (domain.Product, error) {
	const op = "fetch product"
	resp, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/products/" + url.PathEscape(productID)})
	if err != nil {
		return domain.Product{}, err
	}
	var out productDetail
	if err := decode(op, resp, &out); err != nil {
		return domain.Product{}, err
	}
	p := out.Product
	if len(out.Variations) > 0 {
		p.Variations = out.Variations
	}
	if p.ID == "" {
		p.ID = productID
	}
	return p, nil
}

// PrepareCheckout locks the session's cart for checkout. Repeated calls are harmless.
func (c *Client) PrepareCheckout(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, call{op: "prepare checkout", method: http.MethodPost, path: "/checkout/prepare", sessionID: sessionID})
	return err
}

type checkoutResponse struct {
	Success bool                        `json:"success"`
	Message string                      `json:"message"`
	Data    domain.CheckoutConfirmation `json:"data"`
	Errors  []domain.FieldError         `json:"errors"`
}

// SubmitCheckout creates the order. A body reporting success=false is treated like an
// error response.
func (c *Client) SubmitCheckout(ctx context.Context, draft domain.OrderDraft, idempotencyKey string) (domain.CheckoutConfirmation, error) {
	const op = "submit checkout"
	header := map[string]string{}
	if idempotencyKey != "" {
		header["Idempotency-Key"] = idempotencyKey
	}
	resp, err := c.do(ctx, call{
		op:        op,
		method:    http.MethodPost,
		path:      "/checkout",
		sessionID: draft.SessionID,
		header:    header,
		in:        draft,
	})
	if err != nil {
		return domain.CheckoutConfirmation{}, err
	}
	var out checkoutResponse
	if err := decode(op, resp, &out); err != nil {
		return domain.CheckoutConfirmation{}, err
	}
	if !out.Success {
		re := &domain.RemoteError{Kind: domain.KindUnknown, Op: op, Status: resp.status, Message: genericFailure}
		if out.Message != "" {
			re.Message = out.Message
		}
		if len(out.Errors) > 0 {
			re.Kind = domain.KindRemoteValidation
			re.Fields = out.Errors
		}
		return domain.CheckoutConfirmation{}, re
	}
	return out.Data, nil
}

// FetchShippingRates performs a conditional GET of the rate table. It returns
// domain.ErrNotModified when etag still matches.
func (c *Client) FetchShippingRates(ctx context.Context, etag string) (domain.RateTable, string, error) {
	const op = "fetch shipping rates"
	header := map[string]string{}
	if etag != "" {
		header["If-None-Match"] = etag
	}
	resp, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/shipping/rates", header: header})
	if err != nil {
		return domain.RateTable{}, "", err
	}
	if resp.status == http.StatusNotModified {
		return domain.RateTable{}, etag, domain.ErrNotModified
	}
	var out domain.RateTable
	if err := decode(op, resp, &out); err != nil {
		return domain.RateTable{}, "", err
	}
	return out, resp.header.Get("ETag"), nil
}

// ClassifyAddress asks the shipping service which region a free-text address belongs to.
func (c *Client) ClassifyAddress(ctx context.Context, sessionID, address string) (domain.AddressClassification, error) {
	const op = "classify address"
	resp, err := c.do(ctx, call{
		op:        op,
		method:    http.MethodPost,
		path:      "/shipping/classify",
		sessionID: sessionID,
		in:        map[string]string{"address": address},
	})
	if err != nil {
		return domain.AddressClassification{}, err
	}
	var out domain.AddressClassification
	if err := decode(op, resp, &out); err != nil {
		return domain.AddressClassification{}, err
	}
	return out, nil
}

// ClearSession invalidates the server-side cart of the session.
func (c *Client) ClearSession(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, call{op: "clear session", method: http.MethodDelete, path: "/cart", sessionID: sessionID})
	return err
}
