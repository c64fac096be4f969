package etl

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/segmentio/parquet-go"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LoadFile reads a whole dataset into records, picking the reader from the
// file extension.
func LoadFile(filePath string) ([]Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	switch format := DetectFileFormat(filePath); format {
	case FormatCSV:
		records, err := ReadCSV(file)
		if err != nil {
			return nil, fmt.Errorf("CSV processing failed: %w", err)
		}
		return records, nil
	case FormatJSON:
		records, err := ReadJSON(file)
		if err != nil {
			return nil, fmt.Errorf("JSON processing failed: %w", err)
		}
		return records, nil
	case FormatParquet:
		records, err := ReadParquet(file)
		if err != nil {
			return nil, fmt.Errorf("Parquet processing failed: %w", err)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("unsupported file format: %s", format)
	}
}

// ReadCSV reads a headed CSV dataset. A leading byte order mark is dropped
// and UTF-16 input is decoded. Empty cells become the no-value marker and
// cells that parse as numbers become numbers; everything else stays text.
func ReadCSV(r io.Reader) ([]Record, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var records []Record
	for index := 0; ; index++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", index, err)
		}

		rec := Record{Index: index, Fields: make([]Field, len(header))}
		for i, name := range header {
			v := Null()
			if i < len(row) {
				v = cellValue(row[i])
			}
			rec.Fields[i] = Field{Name: name, Value: v}
		}
		records = append(records, rec)
	}
	return records, nil
}

func cellValue(cell string) Value {
	if cell == "" {
		return Null()
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(cell)); err == nil {
		return Number(d)
	}
	return Text(cell)
}

// ReadJSON reads a JSON dataset in any of three layouts: an array of
// objects, one object per line, or a column-oriented object mapping each
// column to {"<row>": value}.
func ReadJSON(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("dataset is empty")
	}

	if trimmed[0] == '[' {
		var rows []map[string]interface{}
		if err := decodeJSON(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode JSON array: %w", err)
		}
		return objectRecords(rows), nil
	}

	var rows []map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	for {
		var row map[string]interface{}
		err := decoder.Decode(&row)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode JSON record %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}

	if len(rows) == 1 && isColumnar(rows[0]) {
		return columnarRecords(rows[0])
	}
	return objectRecords(rows), nil
}

func decodeJSON(data []byte, v interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(v)
}

func objectRecords(rows []map[string]interface{}) []Record {
	records := make([]Record, len(rows))
	for i, row := range rows {
		rec := Record{Index: i}
		for _, name := range orderedKeys(row) {
			rec.Fields = append(rec.Fields, Field{Name: name, Value: jsonValue(row[name])})
		}
		records[i] = rec
	}
	return records
}

// isColumnar reports whether every value of obj is itself an object, which
// is how a column-oriented export looks. A row object always has scalars.
func isColumnar(obj map[string]interface{}) bool {
	if len(obj) == 0 {
		return false
	}
	for _, v := range obj {
		if _, ok := v.(map[string]interface{}); !ok {
			return false
		}
	}
	return true
}

func columnarRecords(obj map[string]interface{}) ([]Record, error) {
	byRow := map[int]map[string]interface{}{}
	for column, cells := range obj {
		for key, v := range cells.(map[string]interface{}) {
			index, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("column %q: row key %q is not an index", column, key)
			}
			if byRow[index] == nil {
				byRow[index] = map[string]interface{}{}
			}
			byRow[index][column] = v
		}
	}

	indexes := make([]int, 0, len(byRow))
	for index := range byRow {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	columns := orderedKeys(obj)
	records := make([]Record, 0, len(indexes))
	for _, index := range indexes {
		row := byRow[index]
		rec := Record{Index: index}
		for _, name := range columns {
			v, ok := row[name]
			if !ok {
				rec.Fields = append(rec.Fields, Field{Name: name, Value: Null()})
				continue
			}
			rec.Fields = append(rec.Fields, Field{Name: name, Value: jsonValue(v)})
		}
		records = append(records, rec)
	}
	return records, nil
}

// orderedKeys returns the known order columns first, in table order, then
// any other keys sorted.
func orderedKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	seen := make(map[string]bool, len(obj))
	for _, name := range Columns {
		if _, ok := obj[name]; ok {
			keys = append(keys, name)
			seen[name] = true
		}
	}

	var rest []string
	for name := range obj {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func jsonValue(v interface{}) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return Text(x.String())
		}
		return Number(d)
	case string:
		if x == "" {
			return Null()
		}
		return Text(x)
	case bool:
		return Text(strconv.FormatBool(x))
	default:
		raw, _ := json.Marshal(x)
		return Text(string(raw))
	}
}

// parquetOrder is the row layout read from Parquet datasets. Every column is
// optional so missing values survive as the no-value marker.
type parquetOrder struct {
	OrderID            *int64   `parquet:"OrderID,optional"`
	OrderDate          *string  `parquet:"OrderDate,optional"`
	UnitCost           *float64 `parquet:"UnitCost,optional"`
	Price              *float64 `parquet:"Price,optional"`
	OrderQty           *int64   `parquet:"OrderQty,optional"`
	CostOfSales        *float64 `parquet:"CostOfSales,optional"`
	Sales              *float64 `parquet:"Sales,optional"`
	Profit             *float64 `parquet:"Profit,optional"`
	Channel            *string  `parquet:"Channel,optional"`
	PromotionName      *string  `parquet:"PromotionName,optional"`
	ProductName        *string  `parquet:"ProductName,optional"`
	Manufacturer       *string  `parquet:"Manufacturer,optional"`
	ProductSubCategory *string  `parquet:"ProductSubCategory,optional"`
	ProductCategory    *string  `parquet:"ProductCategory,optional"`
	Region             *string  `parquet:"Region,optional"`
	City               *string  `parquet:"City,optional"`
	Country            *string  `parquet:"Country,optional"`
}

// ReadParquet reads a Parquet dataset.
func ReadParquet(input io.ReaderAt) ([]Record, error) {
	reader := parquet.NewReader(input)
	defer reader.Close()

	var records []Record
	for index := 0; ; index++ {
		var row parquetOrder
		err := reader.Read(&row)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read Parquet row %d: %w", index, err)
		}
		records = append(records, row.record(index))
	}
	return records, nil
}

func (o *parquetOrder) record(index int) Record {
	intValue := func(p *int64) Value {
		if p == nil {
			return Null()
		}
		return Number(decimal.NewFromInt(*p))
	}
	floatValue := func(p *float64) Value {
		if p == nil {
			return Null()
		}
		return Number(decimal.NewFromFloat(*p))
	}
	textValue := func(p *string) Value {
		if p == nil || *p == "" {
			return Null()
		}
		return Text(*p)
	}

	return Record{Index: index, Fields: []Field{
		{ColOrderID, intValue(o.OrderID)},
		{ColOrderDate, textValue(o.OrderDate)},
		{ColUnitCost, floatValue(o.UnitCost)},
		{ColPrice, floatValue(o.Price)},
		{ColOrderQty, intValue(o.OrderQty)},
		{ColCostOfSales, floatValue(o.CostOfSales)},
		{ColSales, floatValue(o.Sales)},
		{ColProfit, floatValue(o.Profit)},
		{ColChannel, textValue(o.Channel)},
		{ColPromotionName, textValue(o.PromotionName)},
		{ColProductName, textValue(o.ProductName)},
		{ColManufacturer, textValue(o.Manufacturer)},
		{ColProductSubCategory, textValue(o.ProductSubCategory)},
		{ColProductCategory, textValue(o.ProductCategory)},
		{ColRegion, textValue(o.Region)},
		{ColCity, textValue(o.City)},
		{ColCountry, textValue(o.Country)},
	}}
}
