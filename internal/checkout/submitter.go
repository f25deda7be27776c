// Package checkout validates the checkout form and drives order submission.
package checkout

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/pricing"
)

// State is the position of a Submitter in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Attempt outcomes written to the audit trail.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

const (
	defaultTimeout     = 15 * time.Second
	sideEffectTimeout  = 10 * time.Second
	msgCorrectFields   = "Please correct the highlighted fields."
	msgNetworkFailure  = "We couldn't reach the store. Please check your connection and try again."
	msgGenericFailure  = "Something went wrong. Please try again."
	msgEmptyCart       = "Your cart is empty"
	msgNoShipping      = "Please select a delivery area"
	msgSessionExpired  = "Your cart session has expired. Please refresh the page."
	confirmationPrefix = "/order-confirmation/"
)

// OrderService is the remote order processor.
type OrderService interface {
	PrepareCheckout(ctx context.Context, sessionID string) error
	SubmitCheckout(ctx context.Context, draft domain.OrderDraft, idempotencyKey string) (domain.CheckoutConfirmation, error)
	ClearSession(ctx context.Context, sessionID string) error
}

// Cart is the local cart being checked out.
type Cart interface {
	SessionID() string
	Lines() []domain.CartLine
	Clear()
}

// Shipping supplies the active shipping selection.
type Shipping interface {
	Selection() domain.ShippingSelection
}

// PurchaseTracker receives conversion events for completed orders.
type PurchaseTracker interface {
	TrackPurchase(ctx context.Context, orderID string, draft domain.OrderDraft) error
}

// AttemptRecorder stores the outcome of every submission.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt domain.CheckoutAttempt) error
}

// Deps wires a Submitter. Tracker and Recorder are optional.
type Deps struct {
	Orders   OrderService
	Cart     Cart
	Shipping Shipping
	Draft    *Draft
	Tracker  PurchaseTracker
	Recorder AttemptRecorder
	Timeout  time.Duration
}

// Result is the user-visible outcome of Submit.
type Result struct {
	State       State                `json:"state"`
	OrderID     string               `json:"orderId,omitempty"`
	Redirect    string               `json:"redirect,omitempty"`
	Message     string               `json:"message,omitempty"`
	Kind        domain.ErrorKind     `json:"-"`
	FieldErrors domain.FieldErrorMap `json:"fieldErrors,omitempty"`
}

// Submitter runs the Idle -> Submitting -> Succeeded/Failed cycle for one session. A failed
// submission returns to Idle with the form and cart untouched.
type Submitter struct {
	deps   Deps
	logger *log.Logger

	mu             sync.Mutex
	state          State
	fieldErrors    domain.FieldErrorMap
	idempotencyKey string
	orderID        string

	background sync.WaitGroup
}

func NewSubmitter(deps Deps, logger *log.Logger) *Submitter {
	if deps.Timeout <= 0 {
		deps.Timeout = defaultTimeout
	}
	if deps.Draft == nil {
		deps.Draft = NewDraft()
	}
	return &Submitter{deps: deps, logger: logger, state: StateIdle, fieldErrors: domain.FieldErrorMap{}}
}

// Draft returns the form being submitted.
func (s *Submitter) Draft() *Draft {
	return s.deps.Draft
}

// State returns the current lifecycle state.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FieldErrors returns the errors of the last validation pass or submission.
func (s *Submitter) FieldErrors() domain.FieldErrorMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldErrors.Clone()
}

// Prepare asks the order processor to lock the cart for checkout.
func (s *Submitter) Prepare(ctx context.Context) error {
	return s.deps.Orders.PrepareCheckout(ctx, s.deps.Cart.SessionID())
}

// Validate runs the form checks and replaces the stored error map with the result.
func (s *Submitter) Validate() domain.FieldErrorMap {
	errs := Validate(s.deps.Draft.Form())
	s.mu.Lock()
	s.fieldErrors = errs
	s.mu.Unlock()
	return errs.Clone()
}

// Submit validates the form and, when valid, creates the order. Submit refuses to run while
// another submission is in flight or after an order was created.
func (s *Submitter) Submit(ctx context.Context) (Result, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return Result{}, domain.ErrSubmitInProgress
	case StateSucceeded:
		s.mu.Unlock()
		return Result{}, domain.ErrAlreadySubmitted
	}

	form := s.deps.Draft.Form()
	lines := s.deps.Cart.Lines()
	errs := Validate(form)
	if len(lines) == 0 {
		errs[FieldCart] = msgEmptyCart
	}
	if !s.deps.Shipping.Selection().Active() {
		errs[FieldShippingRegion] = msgNoShipping
	}
	if len(errs) > 0 {
		s.fieldErrors = errs
		s.state = StateIdle
		s.mu.Unlock()
		s.record(ctx, OutcomeRejected, "", msgCorrectFields, 0)
		return Result{State: StateIdle, Message: msgCorrectFields, Kind: domain.KindValidation, FieldErrors: errs.Clone()}, nil
	}
	s.fieldErrors = domain.FieldErrorMap{}
	s.state = StateSubmitting
	if s.idempotencyKey == "" {
		s.idempotencyKey = uuid.NewString()
	}
	key := s.idempotencyKey
	s.mu.Unlock()

	order := s.buildOrder(form, lines)
	// The order may be created even if the caller goes away, so only the timeout ends the call.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deps.Timeout)
	conf, err := s.deps.Orders.SubmitCheckout(callCtx, order, key)
	cancel()
	if err == nil && conf.OrderID == "" {
		err = &domain.RemoteError{Kind: domain.KindUnknown, Op: "submit checkout", Message: msgGenericFailure}
	}
	if err != nil {
		return s.fail(ctx, order, err), nil
	}
	return s.succeed(ctx, order, conf), nil
}

func (s *Submitter) buildOrder(form Form, lines []domain.CartLine) domain.OrderDraft {
	sel := s.deps.Shipping.Selection()
	totals := pricing.Compute(lines, sel.Charge, 0).Rounded()
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: pricing.Round2(pricing.EffectiveUnitPrice(l)),
		})
	}
	method := form.PaymentMethod
	if method == "" {
		method = domain.PaymentCashOnDelivery
	}
	return domain.OrderDraft{
		SessionID:       s.deps.Cart.SessionID(),
		CustomerName:    form.CustomerName,
		Email:           form.Email,
		Phone:           form.Phone,
		ShippingAddress: form.ShippingAddress,
		BillingAddress:  form.BillingAddress,
		PaymentMethod:   method,
		Notes:           form.Notes,
		ShippingRegion:  sel.Region,
		ShippingCharge:  totals.Shipping,
		Items:           items,
		Subtotal:        totals.Subtotal,
		Savings:         totals.Savings,
		Total:           totals.Total,
	}
}

func (s *Submitter) fail(ctx context.Context, order domain.OrderDraft, err error) Result {
	res := Result{State: StateFailed, Kind: domain.KindOf(err)}
	var remoteErr *domain.RemoteError
	hasRemote := errors.As(err, &remoteErr)

	fields := domain.FieldErrorMap{}
	switch {
	case hasRemote && res.Kind == domain.KindRemoteValidation && len(remoteErr.Fields) > 0:
		fields = domain.FieldErrorMapFrom(remoteErr.Fields)
		res.Message = msgCorrectFields
	case res.Kind == domain.KindNetwork:
		res.Message = msgNetworkFailure
	case res.Kind == domain.KindNotFound:
		res.Message = msgSessionExpired
	case hasRemote && remoteErr.Message != "":
		res.Message = remoteErr.Message
	default:
		res.Message = msgGenericFailure
	}
	res.FieldErrors = fields.Clone()

	s.mu.Lock()
	s.fieldErrors = fields
	s.state = StateIdle
	// The server answered definitively; a corrected form is a new order request.
	if res.Kind != domain.KindNetwork {
		s.idempotencyKey = ""
	}
	s.mu.Unlock()

	s.logger.Printf("checkout %s: submit failed (%s): %v", order.SessionID, res.Kind, err)
	s.record(ctx, OutcomeFailed, "", err.Error(), order.Total)
	return res
}

// succeed commits the outcome and runs the post-order side effects in the background. Their
// failures are logged only.
func (s *Submitter) succeed(ctx context.Context, order domain.OrderDraft, conf domain.CheckoutConfirmation) Result {
	s.mu.Lock()
	s.state = StateSucceeded
	s.orderID = conf.OrderID
	s.fieldErrors = domain.FieldErrorMap{}
	s.mu.Unlock()

	s.deps.Cart.Clear()
	s.record(ctx, OutcomeSucceeded, conf.OrderID, "", order.Total)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		if s.deps.Tracker != nil {
			if err := s.deps.Tracker.TrackPurchase(bg, conf.OrderID, order); err != nil {
				s.logger.Printf("checkout %s: track purchase %s: %v", order.SessionID, conf.OrderID, err)
			}
		}
		if err := s.deps.Orders.ClearSession(bg, order.SessionID); err != nil {
			s.logger.Printf("checkout %s: clear session: %v", order.SessionID, err)
		}
	}()

	return Result{State: StateSucceeded, OrderID: conf.OrderID, Redirect: confirmationPrefix + conf.OrderID}
}

func (s *Submitter) record(ctx context.Context, outcome, orderID, message string, total float64) {
	if s.deps.Recorder == nil {
		return
	}
	attempt := domain.CheckoutAttempt{
		ID:        uuid.NewString(),
		SessionID: s.deps.Cart.SessionID(),
		Outcome:   outcome,
		OrderID:   orderID,
		Message:   message,
		Total:     total,
		CreatedAt: time.Now().UTC(),
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		if err := s.deps.Recorder.RecordAttempt(bg, attempt); err != nil {
			s.logger.Printf("checkout %s: record attempt: %v", attempt.SessionID, err)
		}
	}()
}

// Wait blocks until background side effects of earlier submissions have finished.
func (s *Submitter) Wait() {
	s.background.Wait()
}
