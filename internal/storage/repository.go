package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bountytracker/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// SQLiteRepository stores sales, their bounty months and payments in three
// tables. It implements store.SaleStore.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const selectSales = `SELECT id, imei, store_location, category, customer_name, customer_pin,
	email, activation_date, status, notes, base_commission_cents, created_at
	FROM sales`

func (r *SQLiteRepository) ListSales(ctx context.Context) ([]core.Sale, error) {
	rows, err := r.db.QueryContext(ctx, selectSales+` ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	sales, err := scanSales(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadTracking(ctx, sales, ""); err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *SQLiteRepository) GetSale(ctx context.Context, id string) (core.Sale, error) {
	rows, err := r.db.QueryContext(ctx, selectSales+` WHERE id = ?`, id)
	if err != nil {
		return core.Sale{}, fmt.Errorf("get sale %s: %w", id, err)
	}
	sales, err := scanSales(rows)
	if err != nil {
		return core.Sale{}, err
	}
	if len(sales) == 0 {
		return core.Sale{}, core.ErrSaleNotFound
	}
	if err := r.loadTracking(ctx, sales, id); err != nil {
		return core.Sale{}, err
	}
	return sales[0], nil
}

func (r *SQLiteRepository) CreateSale(ctx context.Context, s core.Sale) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO sales (id, imei, store_location, category,
			customer_name, customer_pin, email, activation_date, status, notes,
			base_commission_cents, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.IMEI, string(s.StoreLocation), string(s.Category), s.CustomerName, s.CustomerPin,
			s.Email, s.ActivationDate, string(s.Status), s.Notes, centsOrNil(s.BaseCommission),
			s.CreatedAt.UTC().Format(timeLayout))
		if err != nil {
			return translate(err)
		}
		return insertTracking(ctx, tx, s)
	})
	if err != nil {
		return fmt.Errorf("create sale %s: %w", s.ID, err)
	}

	slog.DebugContext(ctx, "Sale saved to SQLite", "sale_id", s.ID, "imei", s.IMEI, "months", len(s.BountyTracking))
	return nil
}

func (r *SQLiteRepository) UpdateSale(ctx context.Context, s core.Sale) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE sales SET imei = ?, store_location = ?, category = ?,
			customer_name = ?, customer_pin = ?, email = ?, activation_date = ?, status = ?,
			notes = ?, base_commission_cents = ? WHERE id = ?`,
			s.IMEI, string(s.StoreLocation), string(s.Category), s.CustomerName, s.CustomerPin,
			s.Email, s.ActivationDate, string(s.Status), s.Notes, centsOrNil(s.BaseCommission), s.ID)
		if err != nil {
			return translate(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.ErrSaleNotFound
		}
		if err := deleteTracking(ctx, tx, s.ID); err != nil {
			return err
		}
		return insertTracking(ctx, tx, s)
	})
	if err != nil {
		return fmt.Errorf("update sale %s: %w", s.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSale(ctx context.Context, id string) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteTracking(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.ErrSaleNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete sale %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func insertTracking(ctx context.Context, tx *sql.Tx, s core.Sale) error {
	for _, m := range s.BountyTracking {
		_, err := tx.ExecContext(ctx, `INSERT INTO bounty_months
			(sale_id, month_number, paid, date_paid, date_checked, notes) VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID, m.MonthNumber, m.Paid, timeOrNil(m.DatePaid), timeOrNil(m.DateChecked), m.Notes)
		if err != nil {
			return fmt.Errorf("insert month %d: %w", m.MonthNumber, translate(err))
		}
		for i, p := range m.Payments {
			_, err := tx.ExecContext(ctx, `INSERT INTO payments
				(sale_id, month_number, position, type, amount_cents) VALUES (?, ?, ?, ?, ?)`,
				s.ID, m.MonthNumber, i, p.Type, p.Amount.Cents)
			if err != nil {
				return fmt.Errorf("insert payment %d of month %d: %w", i, m.MonthNumber, err)
			}
		}
	}
	return nil
}

func deleteTracking(ctx context.Context, tx *sql.Tx, saleID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE sale_id = ?`, saleID); err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bounty_months WHERE sale_id = ?`, saleID); err != nil {
		return fmt.Errorf("delete bounty months: %w", err)
	}
	return nil
}

// loadTracking fills BountyTracking for sales. When saleID is set only that
// sale's rows are read.
func (r *SQLiteRepository) loadTracking(ctx context.Context, sales []core.Sale, saleID string) error {
	if len(sales) == 0 {
		return nil
	}
	where, args := "", []any{}
	if saleID != "" {
		where, args = " WHERE sale_id = ?", []any{saleID}
	}

	type key struct {
		sale  string
		month int
	}
	months := map[string][]core.BountyMonth{}
	index := map[key]int{}

	rows, err := r.db.QueryContext(ctx, `SELECT sale_id, month_number, paid, date_paid, date_checked, notes
		FROM bounty_months`+where+` ORDER BY sale_id, month_number`, args...)
	if err != nil {
		return fmt.Errorf("list bounty months: %w", err)
	}
	for rows.Next() {
		var (
			id            string
			m             core.BountyMonth
			paid, checked sql.NullString
		)
		if err := rows.Scan(&id, &m.MonthNumber, &m.Paid, &paid, &checked, &m.Notes); err != nil {
			rows.Close()
			return fmt.Errorf("scan bounty month: %w", err)
		}
		if m.DatePaid, err = parseTime(paid); err != nil {
			rows.Close()
			return err
		}
		if m.DateChecked, err = parseTime(checked); err != nil {
			rows.Close()
			return err
		}
		m.Payments = []core.Payment{}
		index[key{id, m.MonthNumber}] = len(months[id])
		months[id] = append(months[id], m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate bounty months: %w", err)
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx, `SELECT sale_id, month_number, type, amount_cents
		FROM payments`+where+` ORDER BY sale_id, month_number, position`, args...)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id    string
			month int
			p     core.Payment
		)
		if err := rows.Scan(&id, &month, &p.Type, &p.Amount.Cents); err != nil {
			return fmt.Errorf("scan payment: %w", err)
		}
		i, ok := index[key{id, month}]
		if !ok {
			continue
		}
		months[id][i].Payments = append(months[id][i].Payments, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate payments: %w", err)
	}

	for i := range sales {
		sales[i].BountyTracking = months[sales[i].ID]
		if sales[i].BountyTracking == nil {
			sales[i].BountyTracking = []core.BountyMonth{}
		}
	}
	return nil
}

func scanSales(rows *sql.Rows) ([]core.Sale, error) {
	defer rows.Close()
	var out []core.Sale
	for rows.Next() {
		var (
			s         core.Sale
			base      sql.NullInt64
			createdAt string
		)
		err := rows.Scan(&s.ID, &s.IMEI, &s.StoreLocation, &s.Category, &s.CustomerName, &s.CustomerPin,
			&s.Email, &s.ActivationDate, &s.Status, &s.Notes, &base, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		if base.Valid {
			s.BaseCommission = &core.Money{Cents: base.Int64}
		}
		if s.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of sale %s: %w", s.ID, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	if out == nil {
		out = []core.Sale{}
	}
	return out, nil
}

// translate maps SQLite constraint failures onto domain errors.
func translate(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", core.ErrDuplicateIdentifier, err)
	}
	return err
}

func centsOrNil(m *core.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse stored time %q: %w", ns.String, err)
	}
	return &t, nil
}
