package etl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsValidRow(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		valid bool
	}{
		{"Text", Text("Germany"), true},
		{"PaddedText", Text("  Germany "), true},
		{"Number", Number(decimal.NewFromInt(0)), true},
		{"Date", Date(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)), true},
		{"Null", Null(), false},
		{"Absent", Absent(), false},
		{"Empty", Text(""), false},
		{"Whitespace", Text("   "), false},
		{"NaN", Text(" NaN "), false},
		{"None", Text("None"), false},
		{"NaT", Text("nat"), false},
		{"NoneInsideWord", Text("Nonesuch"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := orderRecord(0, 10, map[string]Value{ColCountry: tt.value})
			assert.Equal(t, tt.valid, IsValidRow(rec, RequiredColumns))
		})
	}
}

func TestIsValidRowIgnoresOptionalFields(t *testing.T) {
	rec := orderRecord(0, 10, map[string]Value{
		ColChannel:       Null(),
		ColPromotionName: Text("nan"),
		ColCity:          Absent(),
	})
	assert.True(t, IsValidRow(rec, RequiredColumns))
}

func TestIsValidRowEmptyRequiredList(t *testing.T) {
	assert.True(t, IsValidRow(Record{}, nil))
}

func TestMissingFields(t *testing.T) {
	rec := orderRecord(0, 10, map[string]Value{
		ColOrderDate: Null(),
		ColPrice:     Text("None"),
		ColCountry:   Absent(),
	})

	assert.Equal(t, []string{ColOrderDate, ColPrice, ColCountry}, MissingFields(rec, RequiredColumns))
	assert.Empty(t, MissingFields(orderRecord(0, 10, nil), RequiredColumns))
}
