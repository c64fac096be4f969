package etl

import (
	"strings"
	"time"
)

// orderDateLayout is MM/DD/YYYY. Single-digit month and day are accepted too.
const orderDateLayout = "1/2/2006"

// Normalize returns a copy of the dataset with trimmed field names and the
// order date converted to a calendar date. Dates that cannot be parsed become
// the no-value marker; Normalize never fails.
func Normalize(records []Record) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		fields := make([]Field, len(rec.Fields))
		for j, f := range rec.Fields {
			fields[j] = Field{Name: strings.TrimSpace(f.Name), Value: f.Value}
		}

		norm := Record{Index: rec.Index, Fields: fields}
		if v := norm.Get(ColOrderDate); v.Kind != KindAbsent {
			norm.Set(ColOrderDate, parseOrderDate(v))
		}
		out[i] = norm
	}
	return out
}

func parseOrderDate(v Value) Value {
	switch v.Kind {
	case KindDate, KindNull, KindAbsent:
		return v
	case KindText:
		t, err := time.Parse(orderDateLayout, strings.TrimSpace(v.Text))
		if err != nil {
			return Null()
		}
		return Date(t)
	default:
		return Null()
	}
}
