package control

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for control persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a control by its numeric identifier.
	// Returns ErrControlNotFound if the control does not exist.
	GetByID(ctx context.Context, id int) (*Control, error)

	// List retrieves all controls ordered by ID.
	List(ctx context.Context) ([]Control, error)

	// Create inserts a new control. A zero ID is assigned by the
	// database and written back to the struct.
	// Returns ErrControlExists if the ID is already taken.
	Create(ctx context.Context, c *Control) error

	// Update modifies an existing control's definition and value.
	// Returns ErrControlNotFound if the control does not exist.
	Update(ctx context.Context, c *Control) error

	// Delete removes a control by ID.
	// Returns ErrControlNotFound if the control does not exist.
	Delete(ctx context.Context, id int) error

	// UpdateValue updates only the value column. This is the hot path
	// for panel and MQTT driven changes.
	UpdateValue(ctx context.Context, id int, value float64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const controlColumns = `id, type, label, value, min, max, created_at, updated_at`

// GetByID retrieves a control by its numeric identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int) (*Control, error) {
	query := `SELECT ` + controlColumns + ` FROM controls WHERE id = ?`

	c, err := scanControl(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrControlNotFound
		}
		return nil, fmt.Errorf("querying control by id: %w", err)
	}
	return c, nil
}

// List retrieves all controls ordered by ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Control, error) {
	query := `SELECT ` + controlColumns + ` FROM controls ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying controls: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read errors surface via rows.Err()

	var controls []Control
	for rows.Next() {
		c, err := scanControl(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning control: %w", err)
		}
		controls = append(controls, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating controls: %w", err)
	}
	return controls, nil
}

// Create inserts a new control.
func (r *SQLiteRepository) Create(ctx context.Context, c *Control) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if c.ID == 0 {
		// Let SQLite assign the next rowid.
		query := `
			INSERT INTO controls (type, label, value, min, max, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
		res, err := r.db.ExecContext(ctx, query,
			string(c.Type), c.Label, c.Value, c.Min, c.Max,
			c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("inserting control: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading assigned control id: %w", err)
		}
		c.ID = int(id)
		return nil
	}

	query := `
		INSERT INTO controls (id, type, label, value, min, max, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, string(c.Type), c.Label, c.Value, c.Min, c.Max,
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrControlExists
		}
		return fmt.Errorf("inserting control: %w", err)
	}
	return nil
}

// Update modifies an existing control's definition and value.
func (r *SQLiteRepository) Update(ctx context.Context, c *Control) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE controls
		SET type = ?, label = ?, value = ?, min = ?, max = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(c.Type), c.Label, c.Value, c.Min, c.Max,
		c.UpdatedAt.Format(time.RFC3339), c.ID)
	if err != nil {
		return fmt.Errorf("updating control: %w", err)
	}
	return requireRow(res, "updating")
}

// Delete removes a control by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM controls WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting control: %w", err)
	}
	return requireRow(res, "deleting")
}

// UpdateValue updates only the value column.
func (r *SQLiteRepository) UpdateValue(ctx context.Context, id int, value float64) error {
	query := `UPDATE controls SET value = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		value, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating control value: %w", err)
	}
	return requireRow(res, "updating value of")
}

// requireRow converts a zero-rows-affected result into ErrControlNotFound.
func requireRow(res sql.Result, verb string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s control: %w", verb, err)
	}
	if n == 0 {
		return ErrControlNotFound
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning code.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanControl reads one control row.
func scanControl(scanner rowScanner) (*Control, error) {
	var (
		c                    Control
		typ                  string
		createdAt, updatedAt string
	)

	err := scanner.Scan(&c.ID, &typ, &c.Label, &c.Value, &c.Min, &c.Max, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.Type = Type(typ)
	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &c, nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
