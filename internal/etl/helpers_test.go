package etl

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/raaihank/order-etl/internal/orders"
)

// orderRecord builds a well-formed record as the CSV reader would produce it,
// before normalization. Fields in overrides replace the defaults; an Absent
// override drops the field.
func orderRecord(index int, id int64, overrides map[string]Value) Record {
	defaults := map[string]Value{
		ColOrderID:            Number(decimal.NewFromInt(id)),
		ColOrderDate:          Text("01/15/2024"),
		ColUnitCost:           Number(decimal.RequireFromString("12.34567891")),
		ColPrice:              Number(decimal.RequireFromString("19.99")),
		ColOrderQty:           Number(decimal.NewFromInt(3)),
		ColCostOfSales:        Number(decimal.RequireFromString("37.03703673")),
		ColSales:              Number(decimal.RequireFromString("59.97")),
		ColProfit:             Number(decimal.RequireFromString("22.93296327")),
		ColChannel:            Text("Online"),
		ColPromotionName:      Text("No Discount"),
		ColProductName:        Text("Contoso Lamp"),
		ColManufacturer:       Text("Contoso, Ltd"),
		ColProductSubCategory: Text("Lamps"),
		ColProductCategory:    Text("Home Appliances"),
		ColRegion:             Text("Europe"),
		ColCity:               Text("Berlin"),
		ColCountry:            Text("Germany"),
	}

	rec := Record{Index: index}
	for _, name := range Columns {
		v := defaults[name]
		if o, ok := overrides[name]; ok {
			v = o
		}
		if v.Kind == KindAbsent {
			continue
		}
		rec.Fields = append(rec.Fields, Field{Name: name, Value: v})
	}
	return rec
}

// recordingAuditor keeps audit calls in memory.
type recordingAuditor struct {
	missing    map[int][]string
	duplicates map[int]string
	errors     map[int]string
}

func newRecordingAuditor() *recordingAuditor {
	return &recordingAuditor{
		missing:    map[int][]string{},
		duplicates: map[int]string{},
		errors:     map[int]string{},
	}
}

func (a *recordingAuditor) Missing(row int, fields []string) { a.missing[row] = fields }

func (a *recordingAuditor) Duplicate(row int, orderID string) { a.duplicates[row] = orderID }

func (a *recordingAuditor) Error(row int, orderID string, reason string) {
	a.errors[row] = orderID + ": " + reason
}

// fakeSession is an in-memory Session. insertOrder decides the primary
// insert result; by default every order id is inserted once.
type fakeSession struct {
	mu             sync.Mutex
	insertOrder    func(ctx context.Context, row *orders.OrderRow) (int64, error)
	rejectErr      error
	seen           map[int64]bool
	orderCalls     int
	inserted       []*orders.OrderRow
	rejected       []*orders.RejectedRow
	commits        int
	rollbacks      int
	committedOrder int
}

func newFakeSession() *fakeSession {
	return &fakeSession{seen: map[int64]bool{}}
}

func (s *fakeSession) InsertOrder(ctx context.Context, row *orders.OrderRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orderCalls++
	if s.insertOrder != nil {
		n, err := s.insertOrder(ctx, row)
		if err == nil && n > 0 {
			s.inserted = append(s.inserted, row)
		}
		return n, err
	}
	if s.seen[row.OrderID] {
		return 0, nil
	}
	s.seen[row.OrderID] = true
	s.inserted = append(s.inserted, row)
	return 1, nil
}

func (s *fakeSession) InsertRejected(ctx context.Context, row *orders.RejectedRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rejectErr != nil {
		return s.rejectErr
	}
	s.rejected = append(s.rejected, row)
	return nil
}

func (s *fakeSession) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
	s.committedOrder = len(s.inserted)
	return nil
}

func (s *fakeSession) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollbacks++
	return nil
}

// fakeOpener hands out the same session on every Begin.
type fakeOpener struct {
	session *fakeSession
	begins  int
	err     error
}

func (o *fakeOpener) Begin(ctx context.Context) (Session, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.begins++
	return o.session, nil
}
