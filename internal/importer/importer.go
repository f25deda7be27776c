// Package importer bulk-loads manual orders from spreadsheet exports.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront-checkout/internal/domain"
	manualordersvc "storefront-checkout/internal/service/manualorder"
)

// OrderCreator validates, prices and stores one manual order.
type OrderCreator interface {
	Create(ctx context.Context, in manualordersvc.OrderInput) (*domain.ManualOrder, error)
}

// Result summarizes an import run.
type Result struct {
	Created  []string
	Rejected map[string]domain.FieldErrorMap
}

// CSVImporter reads one order per reference. The first row of an order carries the customer
// columns; following rows with an empty order_ref add items to it.
type CSVImporter struct {
	reader    *csv.Reader
	orders    OrderCreator
	createdBy string
}

func NewCSVImporter(r io.Reader, orders OrderCreator, createdBy string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, orders: orders, createdBy: createdBy}
}

type pendingOrder struct {
	ref   string
	input manualordersvc.OrderInput
}

// Run creates every order of the file. Orders failing validation are collected in the
// result and do not stop the run; any other error aborts it.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	res := Result{Rejected: map[string]domain.FieldErrorMap{}}
	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["order_ref"]; !ok {
		return res, errors.New("missing order_ref column")
	}

	var current *pendingOrder
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row: %w", err)
		}
		line++

		ref := pick(record, index, "order_ref")
		item, hasItem, err := parseItem(record, index)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}

		if ref != "" {
			if current != nil {
				if err := i.save(ctx, current, &res); err != nil {
					return res, err
				}
			}
			current, err = parseHeader(ref, record, index)
			if err != nil {
				return res, fmt.Errorf("line %d: %w", line, err)
			}
			current.input.CreatedBy = i.createdBy
		}
		if current == nil {
			return res, fmt.Errorf("line %d: item row before any order_ref", line)
		}
		if hasItem {
			current.input.Items = append(current.input.Items, item)
		}
	}

	if current != nil {
		if err := i.save(ctx, current, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (i *CSVImporter) save(ctx context.Context, p *pendingOrder, res *Result) error {
	order, err := i.orders.Create(ctx, p.input)
	if err != nil {
		var verr domain.ValidationError
		if errors.As(err, &verr) {
			res.Rejected[p.ref] = verr.Fields
			return nil
		}
		return fmt.Errorf("create order %q: %w", p.ref, err)
	}
	res.Created = append(res.Created, order.ID)
	return nil
}

func parseHeader(ref string, record []string, index map[string]int) (*pendingOrder, error) {
	shipping, err := parseAmount(pick(record, index, "shipping_fee"))
	if err != nil {
		return nil, fmt.Errorf("shipping_fee: %w", err)
	}
	discount, err := parseAmount(pick(record, index, "discount"))
	if err != nil {
		return nil, fmt.Errorf("discount: %w", err)
	}
	return &pendingOrder{
		ref: ref,
		input: manualordersvc.OrderInput{
			CustomerName:    pick(record, index, "customer_name"),
			Email:           pick(record, index, "email"),
			Phone:           pick(record, index, "phone"),
			ShippingAddress: pick(record, index, "shipping_address"),
			PaymentMethod:   domain.PaymentMethod(pick(record, index, "payment_method")),
			Notes:           pick(record, index, "notes"),
			ShippingFee:     shipping,
			Discount:        discount,
		},
	}, nil
}

func parseItem(record []string, index map[string]int) (manualordersvc.ItemInput, bool, error) {
	productID := pick(record, index, "product_id")
	if productID == "" {
		return manualordersvc.ItemInput{}, false, nil
	}
	item := manualordersvc.ItemInput{
		ProductID: productID,
		VariantID: pick(record, index, "variant_id"),
		Name:      pick(record, index, "name"),
	}
	var err error
	if item.Price, err = parseAmount(pick(record, index, "price")); err != nil {
		return item, false, fmt.Errorf("price: %w", err)
	}
	if q := pick(record, index, "quantity"); q != "" {
		if item.Quantity, err = strconv.Atoi(q); err != nil {
			return item, false, fmt.Errorf("quantity: %w", err)
		}
	}
	if item.DiscountAmount, err = parseAmount(pick(record, index, "discount_amount")); err != nil {
		return item, false, fmt.Errorf("discount_amount: %w", err)
	}
	percent := strings.TrimSuffix(pick(record, index, "discount_percent"), "%")
	if item.DiscountPercent, err = parseAmount(percent); err != nil {
		return item, false, fmt.Errorf("discount_percent: %w", err)
	}
	return item, true, nil
}

func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
