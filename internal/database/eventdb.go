package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/deliverycal/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "deliverycal.db"

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// EventDB stores the current delivery event set.
type EventDB struct {
	db     *sql.DB
	dbPath string
	loc    *time.Location
}

// Options configures EventDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool

	// Location is the zone loaded window dates are placed in.
	// Nil means time.Local.
	Location *time.Location
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the EventDB in dbDir.
func Open(dbDir string, opts Options) (*EventDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	edb := &EventDB{db: db, dbPath: dbPath, loc: loc}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := edb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return edb, nil
}

// Path returns the database file path.
func (edb *EventDB) Path() string {
	return edb.dbPath
}

// Close closes the database connection.
func (edb *EventDB) Close() error {
	return edb.db.Close()
}

func (edb *EventDB) createTables() error {
	schema := `
	-- One row per event of the last completed run
	CREATE TABLE IF NOT EXISTS events (
		retailer TEXT NOT NULL,
		order_id TEXT NOT NULL,
		item_name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		start_time TEXT,
		end_time TEXT,
		precision TEXT NOT NULL,
		order_url TEXT,
		raw_text TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (retailer, order_id, item_name)
	);
	`
	_, err := edb.db.ExecContext(context.Background(), schema)
	return err
}

// LoadEvents returns the stored events ordered by key.
func (edb *EventDB) LoadEvents(ctx context.Context) ([]model.DeliveryEvent, error) {
	query := `
	SELECT retailer, order_id, item_name, start_date, end_date, start_time, end_time,
	       precision, order_url, raw_text
	FROM events
	ORDER BY retailer, order_id, item_name
	`
	rows, err := edb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.DeliveryEvent
	for rows.Next() {
		var (
			e                  model.DeliveryEvent
			retailer, prec     string
			startDate, endDate string
			startTime, endTime sql.NullString
			orderURL           sql.NullString
		)
		if err := rows.Scan(&retailer, &e.OrderID, &e.ItemName, &startDate, &endDate,
			&startTime, &endTime, &prec, &orderURL, &e.RawDateText); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Retailer = model.Retailer(retailer)
		e.OrderURL = orderURL.String
		e.Window.Precision = model.Precision(prec)
		if e.Window.StartDate, err = time.ParseInLocation(dateLayout, startDate, edb.loc); err != nil {
			return nil, fmt.Errorf("invalid start date for %s: %w", e.Key(), err)
		}
		if e.Window.EndDate, err = time.ParseInLocation(dateLayout, endDate, edb.loc); err != nil {
			return nil, fmt.Errorf("invalid end date for %s: %w", e.Key(), err)
		}
		if e.Window.StartTime, err = parseClock(startTime); err != nil {
			return nil, fmt.Errorf("invalid start time for %s: %w", e.Key(), err)
		}
		if e.Window.EndTime, err = parseClock(endTime); err != nil {
			return nil, fmt.Errorf("invalid end time for %s: %w", e.Key(), err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// ReplaceEvents replaces the stored set with events in one transaction.
func (edb *EventDB) ReplaceEvents(ctx context.Context, events []model.DeliveryEvent, at time.Time) (err error) {
	tx, err := edb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, rbErr)
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO events (retailer, order_id, item_name, start_date, end_date, start_time, end_time,
	                    precision, order_url, raw_text, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		w := e.Window
		if _, err = stmt.ExecContext(ctx,
			string(e.Retailer), e.OrderID, e.ItemName,
			w.StartDate.Format(dateLayout), w.EndDate.Format(dateLayout),
			formatClock(w.StartTime), formatClock(w.EndTime),
			string(w.Precision), nullString(e.OrderURL), e.RawDateText, at.UTC(),
		); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", e.Key(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

// CountEvents returns the number of stored events.
func (edb *EventDB) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := edb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

func formatClock(c *model.Clock) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func parseClock(s sql.NullString) (*model.Clock, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(clockLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &model.Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
