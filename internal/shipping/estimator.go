// Package shipping resolves the shipping charge of a checkout session, either from the
// static region table or from the server-side address classifier.
package shipping

import (
	"context"
	"strings"
	"sync"

	"storefront-checkout/internal/domain"
)

// RateProvider returns the region rate table, fetching it on first use.
type RateProvider interface {
	Ensure(ctx context.Context) (domain.RateTable, error)
}

// Classifier maps a free-text address to a region and charge.
type Classifier interface {
	ClassifyAddress(ctx context.Context, sessionID, address string) (domain.AddressClassification, error)
}

// Estimator holds the single active shipping selection of one session. It does not react
// to address edits: a computed charge stays until Classify is called again or a region is
// picked by hand.
type Estimator struct {
	sessionID  string
	rates      RateProvider
	classifier Classifier

	mu        sync.Mutex
	selection domain.ShippingSelection
	seq       uint64
}

func New(sessionID string, rates RateProvider, classifier Classifier) *Estimator {
	return &Estimator{sessionID: sessionID, rates: rates, classifier: classifier}
}

// SelectRegion activates the table charge for region, discarding any computed result. A
// failed rate lookup leaves the selection and any pending classification untouched.
func (e *Estimator) SelectRegion(ctx context.Context, region domain.Region) (domain.ShippingSelection, error) {
	if !region.Valid() {
		return domain.ShippingSelection{}, domain.ErrUnknownRegion
	}
	table, err := e.rates.Ensure(ctx)
	if err != nil {
		return domain.ShippingSelection{}, err
	}
	charge, _ := table.Charge(region)

	// The pick takes effect once the table resolved; classifications still in flight are
	// superseded from here on.
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	e.selection = domain.ShippingSelection{
		Mode:    domain.ShippingModeRegion,
		Region:  region,
		IsDhaka: region == domain.RegionDhaka,
		Charge:  charge,
	}
	return e.selection, nil
}

// Classify asks the collaborator to classify address and activates its result. A result
// that arrives after a newer selection was made is dropped.
func (e *Estimator) Classify(ctx context.Context, address string) (domain.ShippingSelection, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.ShippingSelection{}, domain.ValidationError{Fields: domain.FieldErrorMap{
			"shippingAddress": "Shipping address is required",
		}}
	}
	e.mu.Lock()
	e.seq++
	seq := e.seq
	e.mu.Unlock()

	res, err := e.classifier.ClassifyAddress(ctx, e.sessionID, address)
	if err != nil {
		return domain.ShippingSelection{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.seq {
		return e.selection, nil
	}
	e.selection = domain.ShippingSelection{
		Mode:    domain.ShippingModeComputed,
		Region:  res.Region,
		IsDhaka: res.IsDhaka,
		Charge:  res.Charge,
	}
	return e.selection, nil
}

// Selection returns the active selection.
func (e *Estimator) Selection() domain.ShippingSelection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection
}

// Charge returns the active charge, 0 when nothing is selected.
func (e *Estimator) Charge() float64 {
	return e.Selection().Charge
}
