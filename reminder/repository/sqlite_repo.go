package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/az-remind/reminder/codec"
	"github.com/AzielCF/az-remind/reminder/domain"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx, letting every query run
// either directly or inside a transaction-bound repository clone.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteRepository persists reminders and their contacts side-table over a
// single shared handle opened in WAL mode with immediate transactions.
type SQLiteRepository struct {
	db *sql.DB
	q  dbtx

	// Lock-contention retry tuning; tests shrink the delay.
	MaxRetries     int
	RetryBaseDelay time.Duration
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:             db,
		q:              db,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
	}
}

// inTx reports whether this repository is bound to an open transaction.
func (r *SQLiteRepository) inTx() bool {
	_, ok := r.q.(*sql.Tx)
	return ok
}

const reminderColumns = `id, type, message, subject, date, schedule_frequency, days, to_mail, attachments, memo, telegram_username, latitude, longitude, radius, location_name, priority, status, created_at, updated_at`

// Init bootstraps the schema. Additive column migrations are detected by
// inspecting the existing columns, so running Init on every startup is safe.
func (r *SQLiteRepository) Init(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reminders (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			schedule_frequency TEXT NOT NULL DEFAULT '',
			days TEXT NOT NULL DEFAULT '[]',
			to_mail TEXT NOT NULL DEFAULT '[]',
			attachments TEXT NOT NULL DEFAULT '[]',
			memo TEXT NOT NULL DEFAULT '[]',
			telegram_username TEXT NOT NULL DEFAULT '',
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0,
			radius REAL NOT NULL DEFAULT 0,
			location_name TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			notification_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			number TEXT NOT NULL DEFAULT '',
			record_id TEXT NOT NULL DEFAULT '',
			thumbnail_path TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (notification_id) REFERENCES reminders(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_notification ON contacts(notification_id);`,
	}
	for _, query := range queries {
		if _, err := r.q.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}

	// Incremental migrations
	migrations := []struct {
		column string
		ddl    string
	}{
		{"priority", `ALTER TABLE reminders ADD COLUMN priority INTEGER NOT NULL DEFAULT 0;`},
		{"status", `ALTER TABLE reminders ADD COLUMN status TEXT NOT NULL DEFAULT 'pending';`},
	}
	for _, m := range migrations {
		exists, err := r.hasColumn(ctx, "reminders", m.column)
		if err != nil {
			return fmt.Errorf("failed to inspect reminders schema: %w", err)
		}
		if exists {
			continue
		}
		logrus.Infof("[STORE] applying migration: reminders.%s", m.column)
		if _, err := r.q.ExecContext(ctx, m.ddl); err != nil {
			// Tolerate a concurrent Init racing the same migration.
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("failed to migrate reminders.%s: %w", m.column, err)
		}
	}

	if _, err := r.q.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_reminders_status_date ON reminders(status, date);`); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) hasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := r.q.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// ExecuteWithRetry runs op, retrying with linearly increasing backoff when
// the database reports lock contention. Any other failure propagates
// immediately; after exhausting retries the last observed error propagates.
func (r *SQLiteRepository) ExecuteWithRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !isLockError(lastErr) {
			return lastErr
		}
		if attempt == r.MaxRetries {
			break
		}
		delay := time.Duration(attempt) * r.RetryBaseDelay
		logrus.Warnf("[STORE] database locked, retrying in %s (attempt %d/%d)", delay, attempt, r.MaxRetries)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("store operation failed after %d attempts: %w", r.MaxRetries, lastErr)
}

// ExecuteTransaction runs fn against a transaction-bound repository clone.
// It commits when fn returns nil and rolls back (then re-propagates) on any
// error, so no partial writes are observably committed. Nested calls reuse
// the enclosing transaction.
func (r *SQLiteRepository) ExecuteTransaction(ctx context.Context, fn func(repo domain.IReminderRepository) error) error {
	if r.inTx() {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txRepo := &SQLiteRepository{db: r.db, q: tx, MaxRetries: r.MaxRetries, RetryBaseDelay: r.RetryBaseDelay}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logrus.WithError(rbErr).Error("[STORE] transaction rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// run wraps a single operation in the retry policy unless already inside a
// transaction, where the enclosing caller owns retries.
func (r *SQLiteRepository) run(ctx context.Context, op func(ctx context.Context) error) error {
	if r.inTx() {
		return op(ctx)
	}
	return r.ExecuteWithRetry(ctx, op)
}

// runTx wraps a mutation in retry + immediate transaction.
func (r *SQLiteRepository) runTx(ctx context.Context, op func(tx *SQLiteRepository) error) error {
	if r.inTx() {
		return op(r)
	}
	return r.ExecuteWithRetry(ctx, func(ctx context.Context) error {
		return r.ExecuteTransaction(ctx, func(repo domain.IReminderRepository) error {
			return op(repo.(*SQLiteRepository))
		})
	})
}

// Reminder CRUD

func (r *SQLiteRepository) Insert(ctx context.Context, rec domain.ReminderRecord) error {
	form, err := codec.Prepare(rec)
	if err != nil {
		return err
	}
	return r.runTx(ctx, func(tx *SQLiteRepository) error {
		return tx.insertForm(ctx, form)
	})
}

func (r *SQLiteRepository) insertForm(ctx context.Context, form codec.StorageForm) error {
	query := `INSERT INTO reminders (` + reminderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		form.ID, form.Type, form.Message, form.Subject, form.Date, form.Frequency,
		form.Days, form.ToMail, form.Attachments, form.Memo, form.TelegramUsername,
		form.Latitude, form.Longitude, form.Radius, form.LocationName,
		form.Priority, form.Status, form.CreatedAt, form.UpdatedAt)
	if err != nil {
		if isDuplicateError(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateID, form.ID)
		}
		return err
	}
	return r.replaceContacts(ctx, form.ID, form.Contacts, false)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (domain.ReminderRecord, error) {
	var rec domain.ReminderRecord
	err := r.run(ctx, func(ctx context.Context) error {
		var err error
		rec, err = r.getByID(ctx, id)
		return err
	})
	return rec, err
}

func (r *SQLiteRepository) getByID(ctx context.Context, id string) (domain.ReminderRecord, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = ?`
	form, err := scanForm(r.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.ReminderRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ReminderRecord{}, err
	}
	if form.Contacts, err = r.loadContacts(ctx, id); err != nil {
		return domain.ReminderRecord{}, err
	}
	return codec.Decode(form), nil
}

// Update replaces the stored row for rec.ID in place; exactly one row exists
// per id at all times.
func (r *SQLiteRepository) Update(ctx context.Context, rec domain.ReminderRecord) error {
	form, err := codec.Prepare(rec)
	if err != nil {
		return err
	}
	return r.runTx(ctx, func(tx *SQLiteRepository) error {
		query := `UPDATE reminders SET type=?, message=?, subject=?, date=?, schedule_frequency=?, days=?, to_mail=?, attachments=?, memo=?, telegram_username=?, latitude=?, longitude=?, radius=?, location_name=?, priority=?, status=?, updated_at=? WHERE id=?`
		res, err := tx.q.ExecContext(ctx, query,
			form.Type, form.Message, form.Subject, form.Date, form.Frequency,
			form.Days, form.ToMail, form.Attachments, form.Memo, form.TelegramUsername,
			form.Latitude, form.Longitude, form.Radius, form.LocationName,
			form.Priority, form.Status, form.UpdatedAt, form.ID)
		if err != nil {
			return err
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return domain.ErrNotFound
		}
		return tx.replaceContacts(ctx, form.ID, form.Contacts, true)
	})
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	return r.runTx(ctx, func(tx *SQLiteRepository) error {
		res, err := tx.q.ExecContext(ctx,
			`UPDATE reminders SET status=?, updated_at=? WHERE id=?`,
			string(status), time.Now().UTC(), id)
		if err != nil {
			return err
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *SQLiteRepository) UpdateDate(ctx context.Context, id string, date time.Time) error {
	return r.runTx(ctx, func(tx *SQLiteRepository) error {
		res, err := tx.q.ExecContext(ctx,
			`UPDATE reminders SET date=?, updated_at=? WHERE id=?`,
			codec.FormatDate(date), time.Now().UTC(), id)
		if err != nil {
			return err
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return r.runTx(ctx, func(tx *SQLiteRepository) error {
		res, err := tx.q.ExecContext(ctx, `DELETE FROM reminders WHERE id=?`, id)
		if err != nil {
			return err
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *SQLiteRepository) List(ctx context.Context) ([]domain.ReminderRecord, error) {
	return r.list(ctx, `SELECT `+reminderColumns+` FROM reminders ORDER BY date ASC`)
}

// ListDue returns every pending reminder whose date is at or before asOf,
// earliest-due first. The ordering is load-bearing for schedulers that
// process one reminder at a time.
func (r *SQLiteRepository) ListDue(ctx context.Context, asOf time.Time) ([]domain.ReminderRecord, error) {
	return r.list(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE status = ? AND date <= ? ORDER BY date ASC`,
		string(domain.StatusPending), codec.FormatDate(asOf))
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]domain.ReminderRecord, error) {
	var records []domain.ReminderRecord
	err := r.run(ctx, func(ctx context.Context) error {
		rows, err := r.q.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		var forms []codec.StorageForm
		for rows.Next() {
			form, err := scanForm(rows)
			if err != nil {
				return err
			}
			forms = append(forms, form)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		records = records[:0]
		for _, form := range forms {
			if form.Contacts, err = r.loadContacts(ctx, form.ID); err != nil {
				return err
			}
			records = append(records, codec.Decode(form))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *SQLiteRepository) NextPendingAt(ctx context.Context) (time.Time, error) {
	var next time.Time
	err := r.run(ctx, func(ctx context.Context) error {
		var raw string
		err := r.q.QueryRowContext(ctx,
			`SELECT date FROM reminders WHERE status = ? ORDER BY date ASC LIMIT 1`,
			string(domain.StatusPending)).Scan(&raw)
		if err == sql.ErrNoRows {
			next = time.Time{}
			return nil
		}
		if err != nil {
			return err
		}
		next = codec.ParseDate(raw)
		return nil
	})
	return next, err
}

// Contacts side-table

func (r *SQLiteRepository) replaceContacts(ctx context.Context, reminderID string, contacts []domain.Contact, clear bool) error {
	if clear {
		if _, err := r.q.ExecContext(ctx, `DELETE FROM contacts WHERE notification_id = ?`, reminderID); err != nil {
			return err
		}
	}
	for _, c := range contacts {
		_, err := r.q.ExecContext(ctx,
			`INSERT INTO contacts (notification_id, name, number, record_id, thumbnail_path) VALUES (?, ?, ?, ?, ?)`,
			reminderID, c.Name, c.Number, c.RecordID, c.ThumbnailPath)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) loadContacts(ctx context.Context, reminderID string) ([]domain.Contact, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT record_id, name, number, thumbnail_path FROM contacts WHERE notification_id = ? ORDER BY id ASC`,
		reminderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.RecordID, &c.Name, &c.Number, &c.ThumbnailPath); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (codec.StorageForm, error) {
	var f codec.StorageForm
	err := row.Scan(
		&f.ID, &f.Type, &f.Message, &f.Subject, &f.Date, &f.Frequency,
		&f.Days, &f.ToMail, &f.Attachments, &f.Memo, &f.TelegramUsername,
		&f.Latitude, &f.Longitude, &f.Radius, &f.LocationName,
		&f.Priority, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// Error classification

func isLockError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

func isDuplicateError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrConstraint &&
		(se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique)
}
