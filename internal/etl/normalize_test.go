package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("ParsesOrderDate", func(t *testing.T) {
		out := Normalize([]Record{orderRecord(0, 10, nil)})
		require.Len(t, out, 1)

		v := out[0].Get(ColOrderDate)
		require.Equal(t, KindDate, v.Kind)
		assert.True(t, v.Date.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("AcceptsSingleDigitMonthAndDay", func(t *testing.T) {
		out := Normalize([]Record{orderRecord(0, 10, map[string]Value{ColOrderDate: Text(" 3/7/2023 ")})})
		v := out[0].Get(ColOrderDate)
		require.Equal(t, KindDate, v.Kind)
		assert.Equal(t, "2023-03-07", v.String())
	})

	t.Run("UnparseableDateBecomesNull", func(t *testing.T) {
		for _, raw := range []string{"2024-01-15", "13/45/2024", "yesterday", "nan"} {
			out := Normalize([]Record{orderRecord(0, 10, map[string]Value{ColOrderDate: Text(raw)})})
			assert.Equal(t, KindNull, out[0].Get(ColOrderDate).Kind, raw)
		}
	})

	t.Run("NumericDateBecomesNull", func(t *testing.T) {
		rec := orderRecord(0, 10, nil)
		rec.Set(ColOrderDate, Number(rec.Get(ColOrderID).Num))
		out := Normalize([]Record{rec})
		assert.Equal(t, KindNull, out[0].Get(ColOrderDate).Kind)
	})

	t.Run("AbsentDateStaysAbsent", func(t *testing.T) {
		out := Normalize([]Record{orderRecord(0, 10, map[string]Value{ColOrderDate: Absent()})})
		assert.Equal(t, KindAbsent, out[0].Get(ColOrderDate).Kind)
	})

	t.Run("TrimsFieldNames", func(t *testing.T) {
		rec := Record{Index: 4, Fields: []Field{
			{Name: " OrderID ", Value: Text("10")},
			{Name: "OrderDate\t", Value: Text("01/15/2024")},
		}}
		out := Normalize([]Record{rec})

		assert.Equal(t, 4, out[0].Index)
		assert.Equal(t, "10", out[0].Get(ColOrderID).Text)
		assert.Equal(t, KindDate, out[0].Get(ColOrderDate).Kind)
	})

	t.Run("DoesNotModifyInput", func(t *testing.T) {
		in := []Record{orderRecord(0, 10, nil)}
		Normalize(in)
		assert.Equal(t, KindText, in[0].Get(ColOrderDate).Kind)
	})

	t.Run("EmptyDataset", func(t *testing.T) {
		assert.Empty(t, Normalize(nil))
	})
}
