package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store handles order storage operations with PostgreSQL
type Store struct {
	db             *sqlx.DB
	driver         string
	logger         *zap.Logger
	insertOrder    string
	insertRejected string
}

// Config contains database configuration
type Config struct {
	Driver          string        `yaml:"driver" mapstructure:"driver"` // postgres or sqlite3
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// NewStore connects to the database and verifies the connection.
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	driver := config.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := sqlx.Connect(driver, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	store := NewStoreFromDB(db, logger)

	if err := store.ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Order store initialized successfully",
		zap.String("driver", driver),
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return store, nil
}

// NewStoreFromDB wraps an already open database handle.
func NewStoreFromDB(db *sqlx.DB, logger *zap.Logger) *Store {
	return &Store{
		db:             db,
		driver:         db.DriverName(),
		logger:         logger,
		insertOrder:    db.Rebind(insertStatement(OrdersTable, "ON CONFLICT (orderid) DO NOTHING")),
		insertRejected: db.Rebind(insertStatement(RejectedTable, "")),
	}
}

func (s *Store) ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// EnsureSchema creates the primary and rejection tables. With reset set, both
// tables are dropped first.
func (s *Store) EnsureSchema(ctx context.Context, reset bool) error {
	var stmts []string
	if reset {
		stmts = append(stmts,
			"DROP TABLE IF EXISTS "+OrdersTable,
			"DROP TABLE IF EXISTS "+RejectedTable)
	}
	stmts = append(stmts, createOrdersTable, createRejectedTable)

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	s.logger.Info("Schema ready", zap.Bool("reset", reset))
	return nil
}

// Begin opens the transactional session a run writes through. On PostgreSQL
// statementTimeout is enforced by the server through SET LOCAL, so a
// statement that runs too long fails with SQLSTATE 57014 and the session
// stays usable. Other drivers run statements without a limit.
func (s *Store) Begin(ctx context.Context, statementTimeout time.Duration) (*Session, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	sess := &Session{
		tx:             tx,
		logger:         s.logger,
		insertOrder:    s.insertOrder,
		insertRejected: s.insertRejected,
	}

	if statementTimeout > 0 {
		if s.driver != "postgres" {
			s.logger.Debug("Statement timeout not enforced for driver",
				zap.String("driver", s.driver),
				zap.Duration("statement_timeout", statementTimeout))
			return sess, nil
		}

		ms := statementTimeout.Milliseconds()
		if ms < 1 {
			ms = 1
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", ms)); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to set statement timeout: %w", err)
		}
		sess.backstop = statementTimeout + backstopGrace
	}

	return sess, nil
}

// GetOrder reads one order from the primary table.
func (s *Store) GetOrder(ctx context.Context, orderID int64) (*OrderRow, error) {
	var row OrderRow
	query := s.db.Rebind("SELECT " + strings.Join(columnNames, ", ") + " FROM " + OrdersTable + " WHERE orderid = ?")
	if err := s.db.GetContext(ctx, &row, query, orderID); err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", orderID, err)
	}
	return &row, nil
}

// ListRejected returns every row of the rejection table.
func (s *Store) ListRejected(ctx context.Context) ([]RejectedRow, error) {
	var rows []RejectedRow
	query := "SELECT " + strings.Join(columnNames, ", ") + " FROM " + RejectedTable
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list rejected orders: %w", err)
	}
	return rows, nil
}

// GetStats returns row counts of both tables
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.GetContext(ctx, &stats.Orders, "SELECT COUNT(*) FROM "+OrdersTable); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.Rejected, "SELECT COUNT(*) FROM "+RejectedTable); err != nil {
		return nil, fmt.Errorf("failed to count rejected orders: %w", err)
	}

	return stats, nil
}

// ProfitBy totals profit per distinct value of the given source column, most
// profitable group first.
func (s *Store) ProfitBy(ctx context.Context, column string) ([]GroupTotal, error) {
	dbColumn, ok := GroupColumns[column]
	if !ok {
		return nil, fmt.Errorf("cannot group by %q", column)
	}

	query := fmt.Sprintf(`
		SELECT
			COALESCE(%[1]s, '(none)') AS grp,
			COUNT(*) AS orders,
			SUM(profit) AS profit
		FROM %[2]s
		GROUP BY COALESCE(%[1]s, '(none)')
		ORDER BY profit DESC, grp`, dbColumn, OrdersTable)

	var totals []GroupTotal
	if err := s.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("failed to group orders by %s: %w", column, err)
	}
	return totals, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(url string) string {
	userStart := 0
	if scheme := strings.Index(url, "://"); scheme >= 0 {
		userStart = scheme + 3
	}

	at := strings.LastIndex(url, "@")
	if at < userStart {
		return url
	}

	colon := strings.Index(url[userStart:at], ":")
	if colon < 0 {
		return url
	}
	return url[:userStart+colon+1] + "***" + url[at:]
}
