package orders

import (
	"strings"
)

const (
	// OrdersTable is the primary store; orderid is its uniqueness key.
	OrdersTable = "orderhistory"
	// RejectedTable receives every record that did not reach OrdersTable.
	RejectedTable = "orderhistory_rejected"
)

var columnNames = []string{
	"orderid", "orderdate", "unitcost", "price", "orderqty",
	"costofsales", "sales", "profit", "channel", "promotionname",
	"productname", "manufacturer", "productsubcategory", "productcategory",
	"region", "city", "country",
}

const createOrdersTable = `
	CREATE TABLE IF NOT EXISTS orderhistory (
		orderid INT PRIMARY KEY NOT NULL,
		orderdate DATE NOT NULL,
		unitcost DECIMAL(18,8) NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		orderqty INT NOT NULL,
		costofsales DECIMAL(18,8) NOT NULL,
		sales DECIMAL(14,2) NOT NULL,
		profit DECIMAL(18,8) NOT NULL,
		channel VARCHAR(150),
		promotionname VARCHAR(150),
		productname VARCHAR(150) NOT NULL,
		manufacturer VARCHAR(150) NOT NULL,
		productsubcategory VARCHAR(150),
		productcategory VARCHAR(150),
		region VARCHAR(150),
		city VARCHAR(150),
		country VARCHAR(150) NOT NULL
	)`

const createRejectedTable = `
	CREATE TABLE IF NOT EXISTS orderhistory_rejected (
		orderid INT,
		orderdate DATE,
		unitcost DECIMAL(18,8),
		price DECIMAL(12,2),
		orderqty INT,
		costofsales DECIMAL(18,8),
		sales DECIMAL(14,2),
		profit DECIMAL(18,8),
		channel VARCHAR(150),
		promotionname VARCHAR(150),
		productname VARCHAR(150),
		manufacturer VARCHAR(150),
		productsubcategory VARCHAR(150),
		productcategory VARCHAR(150),
		region VARCHAR(150),
		city VARCHAR(150),
		country VARCHAR(150)
	)`

// GroupColumns are the columns --summary-by may group on, keyed by their
// source name.
var GroupColumns = map[string]string{
	"Channel":            "channel",
	"PromotionName":      "promotionname",
	"ProductCategory":    "productcategory",
	"ProductSubCategory": "productsubcategory",
	"Manufacturer":       "manufacturer",
	"Region":             "region",
	"City":               "city",
	"Country":            "country",
}

// insertStatement builds a 17-column insert using ? placeholders; callers
// rebind it for their driver.
func insertStatement(table, suffix string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columnNames)), ", ")
	q := "INSERT INTO " + table + " (" + strings.Join(columnNames, ", ") + ") VALUES (" + placeholders + ")"
	if suffix != "" {
		q += " " + suffix
	}
	return q
}
