package orders

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// OrderRow is a well-formed order as stored in the primary table.
type OrderRow struct {
	OrderID            int64           `db:"orderid" json:"order_id"`
	OrderDate          time.Time       `db:"orderdate" json:"order_date"`
	UnitCost           decimal.Decimal `db:"unitcost" json:"unit_cost"`
	Price              decimal.Decimal `db:"price" json:"price"`
	OrderQty           int64           `db:"orderqty" json:"order_qty"`
	CostOfSales        decimal.Decimal `db:"costofsales" json:"cost_of_sales"`
	Sales              decimal.Decimal `db:"sales" json:"sales"`
	Profit             decimal.Decimal `db:"profit" json:"profit"`
	Channel            sql.NullString  `db:"channel" json:"channel"`
	PromotionName      sql.NullString  `db:"promotionname" json:"promotion_name"`
	ProductName        string          `db:"productname" json:"product_name"`
	Manufacturer       string          `db:"manufacturer" json:"manufacturer"`
	ProductSubCategory sql.NullString  `db:"productsubcategory" json:"product_subcategory"`
	ProductCategory    sql.NullString  `db:"productcategory" json:"product_category"`
	Region             sql.NullString  `db:"region" json:"region"`
	City               sql.NullString  `db:"city" json:"city"`
	Country            string          `db:"country" json:"country"`
}

func (r *OrderRow) args() []interface{} {
	return []interface{}{
		r.OrderID, r.OrderDate, r.UnitCost, r.Price, r.OrderQty,
		r.CostOfSales, r.Sales, r.Profit, r.Channel, r.PromotionName,
		r.ProductName, r.Manufacturer, r.ProductSubCategory, r.ProductCategory,
		r.Region, r.City, r.Country,
	}
}

// RejectedRow is an order that did not reach the primary table. Every column
// is nullable so partially unparseable input can still be recorded.
type RejectedRow struct {
	OrderID            sql.NullInt64       `db:"orderid" json:"order_id"`
	OrderDate          sql.NullTime        `db:"orderdate" json:"order_date"`
	UnitCost           decimal.NullDecimal `db:"unitcost" json:"unit_cost"`
	Price              decimal.NullDecimal `db:"price" json:"price"`
	OrderQty           sql.NullInt64       `db:"orderqty" json:"order_qty"`
	CostOfSales        decimal.NullDecimal `db:"costofsales" json:"cost_of_sales"`
	Sales              decimal.NullDecimal `db:"sales" json:"sales"`
	Profit             decimal.NullDecimal `db:"profit" json:"profit"`
	Channel            sql.NullString      `db:"channel" json:"channel"`
	PromotionName      sql.NullString      `db:"promotionname" json:"promotion_name"`
	ProductName        sql.NullString      `db:"productname" json:"product_name"`
	Manufacturer       sql.NullString      `db:"manufacturer" json:"manufacturer"`
	ProductSubCategory sql.NullString      `db:"productsubcategory" json:"product_subcategory"`
	ProductCategory    sql.NullString      `db:"productcategory" json:"product_category"`
	Region             sql.NullString      `db:"region" json:"region"`
	City               sql.NullString      `db:"city" json:"city"`
	Country            sql.NullString      `db:"country" json:"country"`
}

func (r *RejectedRow) args() []interface{} {
	return []interface{}{
		r.OrderID, r.OrderDate, r.UnitCost, r.Price, r.OrderQty,
		r.CostOfSales, r.Sales, r.Profit, r.Channel, r.PromotionName,
		r.ProductName, r.Manufacturer, r.ProductSubCategory, r.ProductCategory,
		r.Region, r.City, r.Country,
	}
}

// Stats represents table statistics
type Stats struct {
	Orders   int64 `json:"orders"`
	Rejected int64 `json:"rejected"`
}

// GroupTotal is the total profit of one group of orders.
type GroupTotal struct {
	Group  string          `db:"grp" json:"group"`
	Orders int64           `db:"orders" json:"orders"`
	Profit decimal.Decimal `db:"profit" json:"profit"`
}
