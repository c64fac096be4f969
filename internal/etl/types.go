package etl

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source column names, as they appear in the dataset header after trimming.
const (
	ColOrderID            = "OrderID"
	ColOrderDate          = "OrderDate"
	ColUnitCost           = "UnitCost"
	ColPrice              = "Price"
	ColOrderQty           = "OrderQty"
	ColCostOfSales        = "CostOfSales"
	ColSales              = "Sales"
	ColProfit             = "Profit"
	ColChannel            = "Channel"
	ColPromotionName      = "PromotionName"
	ColProductName        = "ProductName"
	ColManufacturer       = "Manufacturer"
	ColProductSubCategory = "ProductSubCategory"
	ColProductCategory    = "ProductCategory"
	ColRegion             = "Region"
	ColCity               = "City"
	ColCountry            = "Country"
)

// Columns lists every order attribute in table order.
var Columns = []string{
	ColOrderID, ColOrderDate, ColUnitCost, ColPrice, ColOrderQty,
	ColCostOfSales, ColSales, ColProfit, ColChannel, ColPromotionName,
	ColProductName, ColManufacturer, ColProductSubCategory, ColProductCategory,
	ColRegion, ColCity, ColCountry,
}

// RequiredColumns must be present and non-blank for a record to be loaded.
var RequiredColumns = []string{
	ColOrderID, ColOrderDate, ColUnitCost, ColPrice, ColOrderQty,
	ColCostOfSales, ColSales, ColProfit, ColProductName,
	ColManufacturer, ColCountry,
}

// ValueKind tags the content of a Value.
type ValueKind int

const (
	// KindAbsent means the field does not exist in the record at all.
	KindAbsent ValueKind = iota
	// KindNull is the no-value marker: the field exists but holds nothing usable.
	KindNull
	KindNumber
	KindDate
	KindText
)

func (k ValueKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Value is a single field value. Only the member matching Kind is meaningful.
type Value struct {
	Kind ValueKind
	Num  decimal.Decimal
	Date time.Time
	Text string
}

// Absent returns the value used for fields missing from a record.
func Absent() Value { return Value{Kind: KindAbsent} }

// Null returns the no-value marker.
func Null() Value { return Value{Kind: KindNull} }

// Number wraps an exact decimal.
func Number(d decimal.Decimal) Value { return Value{Kind: KindNumber, Num: d} }

// Date wraps a calendar date; the time of day is dropped.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{Kind: KindDate, Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Text wraps a string as-is.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// IsMissing reports whether the value is absent or the no-value marker.
func (v Value) IsMissing() bool {
	return v.Kind == KindAbsent || v.Kind == KindNull
}

// String renders the value the way it is written to audit lines.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return v.Num.String()
	case KindDate:
		return v.Date.Format("2006-01-02")
	case KindText:
		return v.Text
	case KindNull:
		return "<null>"
	default:
		return "<absent>"
	}
}

// Field is one named value in a record.
type Field struct {
	Name  string
	Value Value
}

// Record is one row of the dataset. Index is the zero-based row position in
// the source and is what audit lines refer to.
type Record struct {
	Index  int
	Fields []Field
}

// Get returns the value of the named field, or Absent if the record has no
// such field.
func (r Record) Get(name string) Value {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return Absent()
}

// Set replaces the named field's value, appending the field if needed.
func (r *Record) Set(name string, v Value) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = v
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: v})
}

// OutcomeKind classifies what happened to a record.
type OutcomeKind string

const (
	OutcomeInserted        OutcomeKind = "inserted"
	OutcomeDuplicate       OutcomeKind = "duplicate"
	OutcomeError           OutcomeKind = "error"
	OutcomeTimeout         OutcomeKind = "timeout"
	OutcomeRejectedMissing OutcomeKind = "rejected-missing"
)

// Outcome is the single classification assigned to a record, with the details
// its side effects need.
type Outcome struct {
	Kind    OutcomeKind
	Row     int
	OrderID string
	Missing []string
	Err     error
}

// Rejected reports whether the record belongs in the rejection store.
func (o Outcome) Rejected() bool {
	return o.Kind != OutcomeInserted
}

// RunSummary holds the per-run outcome counters.
//
// Errors counts storage errors, timeouts and missing-field rejections
// together; Missing and Timeouts break those out.
type RunSummary struct {
	Total              int64         `json:"total"`
	Inserted           int64         `json:"inserted"`
	Duplicates         int64         `json:"duplicates"`
	Errors             int64         `json:"errors"`
	Missing            int64         `json:"missing"`
	Timeouts           int64         `json:"timeouts"`
	RejectSinkFailures int64         `json:"reject_sink_failures"`
	Duration           time.Duration `json:"duration"`
}

// Count increments the counters for one processed record.
func (s *RunSummary) Count(kind OutcomeKind) {
	s.Total++
	switch kind {
	case OutcomeInserted:
		s.Inserted++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeRejectedMissing:
		s.Errors++
		s.Missing++
	case OutcomeTimeout:
		s.Errors++
		s.Timeouts++
	default:
		s.Errors++
	}
}

// StorageErrors returns the error count excluding missing-field rejections.
func (s *RunSummary) StorageErrors() int64 {
	return s.Errors - s.Missing
}

// Config contains ETL pipeline configuration
type Config struct {
	StatementTimeout time.Duration `yaml:"statement_timeout" mapstructure:"statement_timeout"`     // 30s
	CommitEvery      int           `yaml:"commit_every" mapstructure:"commit_every"`               // 0 = single commit
	MaxRowsPerSecond float64       `yaml:"max_rows_per_second" mapstructure:"max_rows_per_second"` // 0 = unlimited
	ProgressReport   int           `yaml:"progress_report" mapstructure:"progress_report"`         // 1000
}

// ProcessingStats tracks real-time processing statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsTotal   int64     `json:"records_total"`
	RecordsDone    int64     `json:"records_done"`
	Inserted       int64     `json:"inserted"`
	Rejected       int64     `json:"rejected"`
	Commits        int64     `json:"commits"`
	ProcessingRate float64   `json:"processing_rate"` // records per second
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".parquet":
		return FormatParquet
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	default:
		return FormatCSV // Default to CSV
	}
}
