package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/pricing"
	manualordersvc "storefront-checkout/internal/service/manualorder"
	"storefront-checkout/internal/session"
)

// fakeCommerce plays every collaborator endpoint for one test.
type fakeCommerce struct {
	mu        sync.Mutex
	cart      domain.RemoteCart
	fetchErr  error
	updateErr error
	removeErr error
	submitErr error
	rates     domain.RateTable
	ratesErr  error
	classify  domain.AddressClassification
	products  map[string]domain.Product
	submitted []domain.OrderDraft
	cleared   int
}

func (f *fakeCommerce) FetchCart(_ context.Context, _ string) (domain.RemoteCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart, f.fetchErr
}

func (f *fakeCommerce) UpdateLineQuantity(_ context.Context, _, _ string, _ int) error {
	return f.updateErr
}

func (f *fakeCommerce) RemoveLine(_ context.Context, _ string, _ domain.LineKey) error {
	return f.removeErr
}

func (f *fakeCommerce) Product(_ context.Context, id string) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, &domain.RemoteError{Kind: domain.KindNotFound, Op: "fetch product", Status: 404}
	}
	return p, nil
}

func (f *fakeCommerce) Ensure(_ context.Context) (domain.RateTable, error) {
	return f.rates, f.ratesErr
}

func (f *fakeCommerce) ClassifyAddress(_ context.Context, _, _ string) (domain.AddressClassification, error) {
	return f.classify, nil
}

func (f *fakeCommerce) PrepareCheckout(_ context.Context, _ string) error { return nil }

func (f *fakeCommerce) SubmitCheckout(_ context.Context, draft domain.OrderDraft, _ string) (domain.CheckoutConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, draft)
	if f.submitErr != nil {
		return domain.CheckoutConfirmation{}, f.submitErr
	}
	return domain.CheckoutConfirmation{OrderID: "ord-77"}, nil
}

func (f *fakeCommerce) ClearSession(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

type stubManualOrders struct {
	created manualordersvc.OrderInput
	err     error
}

func (s *stubManualOrders) Quote(in manualordersvc.OrderInput) pricing.ManualOrderQuote {
	return pricing.ManualOrderQuote{Total: 42}
}

func (s *stubManualOrders) Create(_ context.Context, in manualordersvc.OrderInput) (*domain.ManualOrder, error) {
	s.created = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ManualOrder{ID: "mo-1", CustomerName: in.CustomerName, Total: 42}, nil
}

func (s *stubManualOrders) Get(_ context.Context, id string) (*domain.ManualOrder, error) {
	if id != "mo-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.ManualOrder{ID: "mo-1"}, nil
}

func (s *stubManualOrders) List(_ context.Context, limit, offset int) ([]domain.ManualOrder, error) {
	return nil, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newFakeCommerce() *fakeCommerce {
	return &fakeCommerce{
		cart: domain.RemoteCart{Items: []domain.RemoteCartItem{
			{ProductID: "p1", VariantID: "v1", Quantity: 2, TotalPrice: domain.Float(240)},
			{ProductID: "p2", VariantID: "v2", Quantity: 1, ProductData: &domain.RemoteProductData{Name: "Toner", Price: domain.Float(50)}},
		}},
		rates:    domain.RateTable{Dhaka: 80, OutsideDhaka: 150},
		classify: domain.AddressClassification{Region: domain.RegionDhaka, IsDhaka: true, Charge: 70},
		products: map[string]domain.Product{
			"p1": {ID: "p1", Name: "Serum", Variations: []domain.Variation{
				{ID: "v1", Price: domain.Float(120), SalePrice: domain.Float(100), StockQuantity: domain.Int(5)},
			}},
			"p2": {ID: "p2", Name: "Toner", Variations: []domain.Variation{{ID: "v2", Price: domain.Float(50)}}},
		},
	}
}

func newTestRouter(t *testing.T, fc *fakeCommerce, manual ManualOrderService) (*gin.Engine, *session.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard, "", 0)
	deps := session.Deps{
		Cart:            fc,
		Products:        fc,
		Rates:           fc,
		Classifier:      fc,
		Orders:          fc,
		CheckoutTimeout: time.Second,
		Logger:          logger,
	}
	registry := session.NewRegistry(time.Hour, deps.Build)
	router := buildRouter(logger, stubPinger{}, Deps{
		Sessions:     registry,
		Rates:        fc,
		ManualOrders: manual,
	})
	return router, registry
}

func doJSON(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func TestHealthAndReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard, "", 0)

	router := buildRouter(logger, stubPinger{}, Deps{})
	if rec := doJSON(router, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	router = buildRouter(logger, stubPinger{err: errors.New("down")}, Deps{})
	if rec := doJSON(router, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	fc := newFakeCommerce()
	fc.ratesErr = domain.ErrRatesUnavailable
	router = buildRouter(logger, stubPinger{}, Deps{Rates: fc})
	if rec := doJSON(router, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without rates, got %d", rec.Code)
	}
}

func TestSessionMiddleware_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, newFakeCommerce(), nil)
	rec := doJSON(router, http.MethodGet, "/sessions/missing/cart", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestOpenSessionAndLoadCart(t *testing.T) {
	router, _ := newTestRouter(t, newFakeCommerce(), nil)

	rec := doJSON(router, http.MethodPost, "/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var opened struct {
		SessionID string `json:"sessionId"`
	}
	decodeBody(t, rec, &opened)
	if opened.SessionID == "" {
		t.Fatalf("expected session id")
	}

	rec = doJSON(router, http.MethodGet, "/sessions/"+opened.SessionID+"/cart", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cart cartResponse
	decodeBody(t, rec, &cart)
	if len(cart.Lines) != 2 || cart.ItemCount != 3 {
		t.Fatalf("unexpected cart %+v", cart)
	}
	first := cart.Lines[0]
	if first.Name != "Serum" || first.UnitPrice != 100 || first.OriginalPrice == nil || *first.OriginalPrice != 120 || first.DetailsPending {
		t.Fatalf("unexpected enriched line %+v", first)
	}
	if cart.Totals.Subtotal != 250 || cart.Totals.Savings != 40 || cart.Totals.Total != 210 {
		t.Fatalf("unexpected totals %+v", cart.Totals)
	}
}

func TestResumeSessionByID(t *testing.T) {
	router, registry := newTestRouter(t, newFakeCommerce(), nil)
	rec := doJSON(router, http.MethodPost, "/sessions", `{"sessionId":"cart-abc"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if _, err := registry.Get("cart-abc"); err != nil {
		t.Fatalf("expected session to be registered: %v", err)
	}
	if rec := doJSON(router, http.MethodDelete, "/sessions/cart-abc", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodDelete, "/sessions/cart-abc", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSetQuantityClampsAndRollsBack(t *testing.T) {
	fc := newFakeCommerce()
	router, registry := newTestRouter(t, fc, nil)
	sess := registry.Open("s1")
	if err := sess.Cart.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	rec := doJSON(router, http.MethodPut, "/sessions/s1/cart/lines/p1/v1", `{"quantity":9}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cart cartResponse
	decodeBody(t, rec, &cart)
	if cart.Lines[0].Quantity != 5 {
		t.Fatalf("expected quantity clamped to stock, got %d", cart.Lines[0].Quantity)
	}

	fc.updateErr = &domain.RemoteError{Kind: domain.KindNetwork, Op: "update line quantity", Err: errors.New("reset")}
	rec = doJSON(router, http.MethodPut, "/sessions/s1/cart/lines/p1/v1", `{"quantity":1}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var failed struct {
		Kind string       `json:"kind"`
		Cart cartResponse `json:"cart"`
	}
	decodeBody(t, rec, &failed)
	if failed.Kind != "network" || failed.Cart.Lines[0].Quantity != 5 {
		t.Fatalf("expected rolled back cart, got %+v", failed)
	}

	if rec := doJSON(router, http.MethodPut, "/sessions/s1/cart/lines/p1/v1", `{"quantity":-1}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodPut, "/sessions/s1/cart/lines/p1/v1", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing quantity, got %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodPut, "/sessions/s1/cart/lines/nope/v9", `{"quantity":1}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRemoveLine(t *testing.T) {
	fc := newFakeCommerce()
	router, registry := newTestRouter(t, fc, nil)
	sess := registry.Open("s1")
	sess.Cart.Load(context.Background())

	rec := doJSON(router, http.MethodDelete, "/sessions/s1/cart/lines/p2/v2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cart cartResponse
	decodeBody(t, rec, &cart)
	if len(cart.Lines) != 1 || cart.Lines[0].ProductID != "p1" {
		t.Fatalf("unexpected cart %+v", cart)
	}
}

func TestShippingSelectionReplacesComputed(t *testing.T) {
	fc := newFakeCommerce()
	router, registry := newTestRouter(t, fc, nil)
	registry.Open("s1").Cart.Load(context.Background())

	rec := doJSON(router, http.MethodPost, "/sessions/s1/shipping/classify", `{"address":"House 1, Road 2, Gulshan, Dhaka"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = doJSON(router, http.MethodPut, "/sessions/s1/shipping/region", `{"region":"outside_dhaka"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out struct {
		Shipping domain.ShippingSelection `json:"shipping"`
		Totals   pricing.Totals           `json:"totals"`
	}
	decodeBody(t, rec, &out)
	if out.Shipping.Mode != domain.ShippingModeRegion || out.Shipping.Charge != 150 || out.Totals.Total != 360 {
		t.Fatalf("unexpected selection %+v totals %+v", out.Shipping, out.Totals)
	}

	if rec := doJSON(router, http.MethodPut, "/sessions/s1/shipping/region", `{"region":"mars"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodPost, "/sessions/s1/shipping/classify", `{"address":"  "}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodGet, "/shipping/rates", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCheckoutFlow(t *testing.T) {
	fc := newFakeCommerce()
	router, registry := newTestRouter(t, fc, nil)
	sess := registry.Open("s1")
	sess.Cart.Load(context.Background())

	rec := doJSON(router, http.MethodPost, "/sessions/s1/checkout", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty form, got %d", rec.Code)
	}
	var invalid errorBody
	decodeBody(t, rec, &invalid)
	if invalid.Errors["email"] == "" || len(invalid.Summary) == 0 || len(fc.submitted) != 0 {
		t.Fatalf("unexpected validation response %+v", invalid)
	}

	draft := `{"customerName":"Rahim Uddin","email":"rahim@example.com","phone":"01712345678","shippingAddress":"House 12, Road 5, Dhanmondi, Dhaka","sameAsShipping":true}`
	rec = doJSON(router, http.MethodPut, "/sessions/s1/checkout/draft?validate=true", draft)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var drafted struct {
		Form   map[string]interface{} `json:"form"`
		Errors map[string]string      `json:"errors"`
	}
	decodeBody(t, rec, &drafted)
	if drafted.Form["billingAddress"] != "House 12, Road 5, Dhanmondi, Dhaka" || len(drafted.Errors) != 0 {
		t.Fatalf("unexpected draft %+v", drafted)
	}

	doJSON(router, http.MethodPut, "/sessions/s1/shipping/region", `{"region":"dhaka"}`)

	rec = doJSON(router, http.MethodPost, "/sessions/s1/checkout", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	sess.Checkout.Wait()
	var ok struct {
		OrderID  string `json:"orderId"`
		Redirect string `json:"redirect"`
	}
	decodeBody(t, rec, &ok)
	if ok.OrderID != "ord-77" || ok.Redirect != "/order-confirmation/ord-77" {
		t.Fatalf("unexpected success body %+v", ok)
	}
	if len(sess.Cart.Lines()) != 0 || fc.cleared != 1 {
		t.Fatalf("expected cart cleared after order")
	}
	if fc.submitted[0].Total != 290 {
		t.Fatalf("expected total 290, got %v", fc.submitted[0].Total)
	}

	if rec := doJSON(router, http.MethodPost, "/sessions/s1/checkout", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on resubmit, got %d", rec.Code)
	}
}

func TestCheckoutRemoteFieldErrors(t *testing.T) {
	fc := newFakeCommerce()
	fc.submitErr = &domain.RemoteError{
		Kind:   domain.KindRemoteValidation,
		Status: 400,
		Fields: []domain.FieldError{{Path: "phone", Message: "Phone is blocked"}},
	}
	router, registry := newTestRouter(t, fc, nil)
	sess := registry.Open("s1")
	sess.Cart.Load(context.Background())
	doJSON(router, http.MethodPut, "/sessions/s1/checkout/draft", `{"customerName":"Rahim Uddin","email":"rahim@example.com","phone":"01712345678","shippingAddress":"House 12, Road 5, Dhanmondi, Dhaka","sameAsShipping":true}`)
	doJSON(router, http.MethodPut, "/sessions/s1/shipping/region", `{"region":"dhaka"}`)

	rec := doJSON(router, http.MethodPost, "/sessions/s1/checkout", "")
	sess.Checkout.Wait()
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Kind != "remote_validation" || body.Errors["phone"] != "Phone is blocked" {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(sess.Cart.Lines()) != 2 {
		t.Fatalf("cart must be kept for retry")
	}
}

func TestManualOrderRoutes(t *testing.T) {
	manual := &stubManualOrders{}
	router, _ := newTestRouter(t, newFakeCommerce(), manual)

	rec := doJSON(router, http.MethodPost, "/admin/manual-orders/quote", `{"items":[{"productId":"p1","price":21,"quantity":2}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/manual-orders", strings.NewReader(`{"customerName":"Karim"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-User", "ops@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated || manual.created.CreatedBy != "ops@example.com" {
		t.Fatalf("expected 201 with admin user, got %d %+v", rec.Code, manual.created)
	}

	manual.err = domain.ValidationError{Fields: domain.FieldErrorMap{"items": "Add at least one item"}}
	rec = doJSON(router, http.MethodPost, "/admin/manual-orders", `{"customerName":"Karim"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	if rec := doJSON(router, http.MethodGet, "/admin/manual-orders/mo-1", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodGet, "/admin/manual-orders/other", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec = doJSON(router, http.MethodGet, "/admin/manual-orders?limit=5", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"results":[]`) {
		t.Fatalf("expected empty list, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&domain.RemoteError{Kind: domain.KindNotFound}, http.StatusNotFound},
		{&domain.RemoteError{Kind: domain.KindNetwork}, http.StatusServiceUnavailable},
		{&domain.RemoteError{Kind: domain.KindUnknown, Status: 500}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{domain.ErrRatesUnavailable, http.StatusServiceUnavailable},
		{domain.ErrSubmitInProgress, http.StatusConflict},
		{domain.ErrOutOfStock, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if status, _ := errorStatus(tc.err); status != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, status)
		}
	}
}
