package etl

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/raaihank/order-etl/internal/orders"
)

// ToOrderRow converts a validated record into primary-store parameters. A
// value that cannot be represented in its column is an error.
func ToOrderRow(rec Record) (*orders.OrderRow, error) {
	var (
		row  orders.OrderRow
		errs []string
	)

	intField := func(name string, dst *int64) {
		n, err := toInt(rec.Get(name))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			return
		}
		*dst = n
	}
	decField := func(name string, dst *decimal.Decimal) {
		d, err := toDecimal(rec.Get(name))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			return
		}
		*dst = d
	}

	intField(ColOrderID, &row.OrderID)
	if d, err := toDate(rec.Get(ColOrderDate)); err != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", ColOrderDate, err))
	} else {
		row.OrderDate = d
	}
	decField(ColUnitCost, &row.UnitCost)
	decField(ColPrice, &row.Price)
	intField(ColOrderQty, &row.OrderQty)
	decField(ColCostOfSales, &row.CostOfSales)
	decField(ColSales, &row.Sales)
	decField(ColProfit, &row.Profit)

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid values: %s", strings.Join(errs, "; "))
	}

	row.Channel = toNullString(rec.Get(ColChannel))
	row.PromotionName = toNullString(rec.Get(ColPromotionName))
	row.ProductName = rec.Get(ColProductName).String()
	row.Manufacturer = rec.Get(ColManufacturer).String()
	row.ProductSubCategory = toNullString(rec.Get(ColProductSubCategory))
	row.ProductCategory = toNullString(rec.Get(ColProductCategory))
	row.Region = toNullString(rec.Get(ColRegion))
	row.City = toNullString(rec.Get(ColCity))
	row.Country = rec.Get(ColCountry).String()

	return &row, nil
}

// ToRejectedRow converts any record into a rejection-store row. Numeric and
// date fields that are missing or unparseable are written as NULL so the
// rejection insert does not fail on the same bad value.
func ToRejectedRow(rec Record) *orders.RejectedRow {
	nullInt := func(name string) sql.NullInt64 {
		n, err := toInt(rec.Get(name))
		return sql.NullInt64{Int64: n, Valid: err == nil}
	}
	nullDec := func(name string) decimal.NullDecimal {
		d, err := toDecimal(rec.Get(name))
		return decimal.NullDecimal{Decimal: d, Valid: err == nil}
	}

	row := &orders.RejectedRow{
		OrderID:            nullInt(ColOrderID),
		UnitCost:           nullDec(ColUnitCost),
		Price:              nullDec(ColPrice),
		OrderQty:           nullInt(ColOrderQty),
		CostOfSales:        nullDec(ColCostOfSales),
		Sales:              nullDec(ColSales),
		Profit:             nullDec(ColProfit),
		Channel:            toNullString(rec.Get(ColChannel)),
		PromotionName:      toNullString(rec.Get(ColPromotionName)),
		ProductName:        toNullString(rec.Get(ColProductName)),
		Manufacturer:       toNullString(rec.Get(ColManufacturer)),
		ProductSubCategory: toNullString(rec.Get(ColProductSubCategory)),
		ProductCategory:    toNullString(rec.Get(ColProductCategory)),
		Region:             toNullString(rec.Get(ColRegion)),
		City:               toNullString(rec.Get(ColCity)),
		Country:            toNullString(rec.Get(ColCountry)),
	}
	if d, err := toDate(rec.Get(ColOrderDate)); err == nil {
		row.OrderDate = sql.NullTime{Time: d, Valid: true}
	}
	return row
}

func toDecimal(v Value) (decimal.Decimal, error) {
	switch v.Kind {
	case KindNumber:
		return v.Num, nil
	case KindText:
		d, err := decimal.NewFromString(strings.TrimSpace(v.Text))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%q is not a number", v.Text)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("expected a number, got %s", v.Kind)
	}
}

// toInt accepts integral numbers only; 3.0 is fine, 3.5 is not.
func toInt(v Value) (int64, error) {
	d, err := toDecimal(v)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%s is not an integer", d)
	}
	return d.IntPart(), nil
}

func toDate(v Value) (time.Time, error) {
	if v.Kind != KindDate {
		return time.Time{}, fmt.Errorf("expected a date, got %s", v.Kind)
	}
	return v.Date, nil
}

// toNullString maps missing and blank-like text ("nan", "None", ...) to NULL.
func toNullString(v Value) sql.NullString {
	if isBlank(v) {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}
