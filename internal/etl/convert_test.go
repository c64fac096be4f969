package etl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToOrderRow(t *testing.T) {
	t.Run("WellFormed", func(t *testing.T) {
		rec := Normalize([]Record{orderRecord(0, 10, map[string]Value{ColChannel: Text("nan")})})[0]

		row, err := ToOrderRow(rec)
		require.NoError(t, err)

		assert.Equal(t, int64(10), row.OrderID)
		assert.True(t, row.OrderDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
		assert.True(t, row.UnitCost.Equal(decimal.RequireFromString("12.34567891")))
		assert.True(t, row.Price.Equal(decimal.RequireFromString("19.99")))
		assert.Equal(t, int64(3), row.OrderQty)
		assert.Equal(t, "Contoso Lamp", row.ProductName)
		assert.Equal(t, "Germany", row.Country)
		assert.False(t, row.Channel.Valid)
		assert.True(t, row.City.Valid)
		assert.Equal(t, "Berlin", row.City.String)
	})

	t.Run("NumericText", func(t *testing.T) {
		rec := Normalize([]Record{orderRecord(0, 10, map[string]Value{
			ColOrderID: Text(" 42 "),
			ColPrice:   Text("7.5"),
		})})[0]

		row, err := ToOrderRow(rec)
		require.NoError(t, err)
		assert.Equal(t, int64(42), row.OrderID)
		assert.True(t, row.Price.Equal(decimal.RequireFromString("7.5")))
	})

	t.Run("FractionalQuantity", func(t *testing.T) {
		rec := Normalize([]Record{orderRecord(0, 10, map[string]Value{
			ColOrderQty: Number(decimal.RequireFromString("3.5")),
		})})[0]

		_, err := ToOrderRow(rec)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ColOrderQty)
	})

	t.Run("CollectsEveryBadField", func(t *testing.T) {
		rec := Normalize([]Record{orderRecord(0, 10, map[string]Value{
			ColUnitCost: Text("twelve"),
			ColSales:    Text("n/a"),
		})})[0]

		_, err := ToOrderRow(rec)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ColUnitCost)
		assert.Contains(t, err.Error(), ColSales)
	})

	t.Run("NumericProductName", func(t *testing.T) {
		rec := Normalize([]Record{orderRecord(0, 10, map[string]Value{
			ColProductName: Number(decimal.NewFromInt(1234)),
		})})[0]

		row, err := ToOrderRow(rec)
		require.NoError(t, err)
		assert.Equal(t, "1234", row.ProductName)
	})
}

func TestToRejectedRow(t *testing.T) {
	t.Run("KeepsParseableValues", func(t *testing.T) {
		rec := Normalize([]Record{orderRecord(0, 10, map[string]Value{ColCountry: Absent()})})[0]

		row := ToRejectedRow(rec)
		assert.True(t, row.OrderID.Valid)
		assert.Equal(t, int64(10), row.OrderID.Int64)
		assert.True(t, row.OrderDate.Valid)
		assert.True(t, row.Profit.Valid)
		assert.False(t, row.Country.Valid)
		assert.Equal(t, "Contoso Lamp", row.ProductName.String)
	})

	t.Run("UnparseableValuesBecomeNull", func(t *testing.T) {
		rec := Normalize([]Record{orderRecord(0, 10, map[string]Value{
			ColOrderID:   Text("abc"),
			ColOrderDate: Text("someday"),
			ColPrice:     Text("free"),
			ColOrderQty:  Number(decimal.RequireFromString("1.25")),
		})})[0]

		row := ToRejectedRow(rec)
		assert.False(t, row.OrderID.Valid)
		assert.False(t, row.OrderDate.Valid)
		assert.False(t, row.Price.Valid)
		assert.False(t, row.OrderQty.Valid)
		assert.True(t, row.Sales.Valid)
	})

	t.Run("EmptyRecord", func(t *testing.T) {
		row := ToRejectedRow(Record{})
		assert.False(t, row.OrderID.Valid)
		assert.False(t, row.ProductName.Valid)
		assert.False(t, row.Country.Valid)
	})
}
