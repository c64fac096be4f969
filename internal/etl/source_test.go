package etl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvHeader = "OrderID,OrderDate,UnitCost,Price,OrderQty,CostOfSales,Sales,Profit,Channel,PromotionName,ProductName,Manufacturer,ProductSubCategory,ProductCategory,Region,City,Country\n"

func TestReadCSV(t *testing.T) {
	t.Run("StripsByteOrderMark", func(t *testing.T) {
		data := "\xef\xbb\xbf" + csvHeader +
			"10,01/15/2024,12.5,19.99,3,37.5,59.97,22.47,Online,,Contoso Lamp,\"Contoso, Ltd\",Lamps,Home,Europe,Berlin,Germany\n"

		records, err := ReadCSV(strings.NewReader(data))
		require.NoError(t, err)
		require.Len(t, records, 1)

		rec := records[0]
		assert.Equal(t, 0, rec.Index)
		assert.Equal(t, ColOrderID, rec.Fields[0].Name)
		assert.Equal(t, KindNumber, rec.Get(ColOrderID).Kind)
		assert.Equal(t, "10", rec.Get(ColOrderID).String())
		assert.Equal(t, KindText, rec.Get(ColOrderDate).Kind)
		assert.Equal(t, KindNull, rec.Get(ColPromotionName).Kind)
		assert.Equal(t, "Contoso, Ltd", rec.Get(ColManufacturer).Text)
		assert.True(t, IsValidRow(Normalize(records)[0], RequiredColumns))
	})

	t.Run("ShortRowsPadWithNull", func(t *testing.T) {
		records, err := ReadCSV(strings.NewReader(csvHeader + "11,01/15/2024,1,2,3\n"))
		require.NoError(t, err)
		require.Len(t, records, 1)

		assert.Len(t, records[0].Fields, len(Columns))
		assert.Equal(t, KindNull, records[0].Get(ColCountry).Kind)
		assert.Equal(t, []string{ColCostOfSales, ColSales, ColProfit, ColProductName, ColManufacturer, ColCountry},
			MissingFields(records[0], RequiredColumns))
	})

	t.Run("RowIndexes", func(t *testing.T) {
		records, err := ReadCSV(strings.NewReader("OrderID\n1\n2\n3\n"))
		require.NoError(t, err)
		require.Len(t, records, 3)
		for i, rec := range records {
			assert.Equal(t, i, rec.Index)
		}
	})

	t.Run("HeaderOnly", func(t *testing.T) {
		records, err := ReadCSV(strings.NewReader(csvHeader))
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "Array",
			data: `[{"OrderID": 10, "OrderDate": "01/15/2024", "Price": 19.99, "Country": "Germany"},
			        {"OrderID": 11, "OrderDate": null, "Price": 5, "Country": ""}]`,
		},
		{
			name: "NewlineDelimited",
			data: `{"OrderID": 10, "OrderDate": "01/15/2024", "Price": 19.99, "Country": "Germany"}
{"OrderID": 11, "OrderDate": null, "Price": 5, "Country": ""}`,
		},
		{
			name: "Columnar",
			data: `{"OrderID": {"0": 10, "1": 11},
			        "OrderDate": {"0": "01/15/2024", "1": null},
			        "Price": {"0": 19.99, "1": 5},
			        "Country": {"0": "Germany", "1": ""}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ReadJSON(strings.NewReader(tt.data))
			require.NoError(t, err)
			require.Len(t, records, 2)

			first, second := records[0], records[1]
			assert.Equal(t, 0, first.Index)
			assert.Equal(t, 1, second.Index)

			assert.Equal(t, []string{ColOrderID, ColOrderDate, ColPrice, ColCountry},
				[]string{first.Fields[0].Name, first.Fields[1].Name, first.Fields[2].Name, first.Fields[3].Name})
			assert.Equal(t, "19.99", first.Get(ColPrice).String())
			assert.Equal(t, "Germany", first.Get(ColCountry).Text)

			assert.Equal(t, KindNull, second.Get(ColOrderDate).Kind)
			assert.Equal(t, KindNull, second.Get(ColCountry).Kind)
			assert.Equal(t, KindAbsent, second.Get(ColSales).Kind)
		})
	}
}

func TestReadJSONErrors(t *testing.T) {
	_, err := ReadJSON(strings.NewReader("  "))
	assert.Error(t, err)

	_, err = ReadJSON(strings.NewReader(`[{"OrderID": 1},`))
	assert.Error(t, err)

	_, err = ReadJSON(strings.NewReader(`{"OrderID": {"first": 1}}`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("CSV", func(t *testing.T) {
		path := filepath.Join(dir, "Dataset.csv")
		require.NoError(t, os.WriteFile(path, []byte(csvHeader+"10,01/15/2024\n"), 0o644))

		records, err := LoadFile(path)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "Dataset.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"OrderID": 10}]`), 0o644))

		records, err := LoadFile(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "10", records[0].Get(ColOrderID).String())
	})

	t.Run("Parquet", func(t *testing.T) {
		path := filepath.Join(dir, "Dataset.parquet")
		id, qty := int64(10), int64(3)
		date, country, empty := "01/15/2024", "Germany", ""
		price := 19.99
		require.NoError(t, parquet.WriteFile(path, []parquetOrder{
			{OrderID: &id, OrderDate: &date, Price: &price, OrderQty: &qty, Country: &country},
			{OrderID: &id, City: &empty},
		}))

		records, err := LoadFile(path)
		require.NoError(t, err)
		require.Len(t, records, 2)

		first := Normalize(records)[0]
		assert.Equal(t, "10", first.Get(ColOrderID).String())
		assert.Equal(t, "2024-01-15", first.Get(ColOrderDate).String())
		assert.Equal(t, "19.99", first.Get(ColPrice).String())
		assert.Equal(t, KindNull, first.Get(ColUnitCost).Kind)

		assert.Equal(t, 1, records[1].Index)
		assert.Equal(t, KindNull, records[1].Get(ColCity).Kind)
		assert.Equal(t, KindNull, records[1].Get(ColCountry).Kind)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.csv"))
		assert.Error(t, err)
	})
}

func TestDetectFileFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFileFormat("Dataset.csv"))
	assert.Equal(t, FormatCSV, DetectFileFormat("Dataset"))
	assert.Equal(t, FormatJSON, DetectFileFormat("Dataset.JSON"))
	assert.Equal(t, FormatJSON, DetectFileFormat("orders.ndjson"))
	assert.Equal(t, FormatParquet, DetectFileFormat("orders.parquet"))
}
