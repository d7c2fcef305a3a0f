package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"invoicepilot/internal/model"

	_ "github.com/lib/pq"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, google_id, email, name, access_token, refresh_token, token_expiry, last_invoice_sync, sheet_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (google_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.GoogleID, user.Email, user.Name,
		user.AccessToken, user.RefreshToken, user.TokenExpiry,
		user.LastInvoiceSync, user.SheetID,
		user.CreatedAt, user.UpdatedAt)
	return err
}

const userColumns = `id, google_id, email, name, access_token, refresh_token, token_expiry, last_invoice_sync, sheet_id, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var sheetID sql.NullString
	err := row.Scan(
		&user.ID, &user.GoogleID, &user.Email, &user.Name,
		&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
		&user.LastInvoiceSync, &sheetID,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	user.SheetID = sheetID.String
	return user, nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE google_id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, googleID))
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresUserRepository) FindAllWithRefreshToken(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE refresh_token IS NOT NULL AND refresh_token <> '' ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		var sheetID sql.NullString
		err := rows.Scan(
			&user.ID, &user.GoogleID, &user.Email, &user.Name,
			&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
			&user.LastInvoiceSync, &sheetID,
			&user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return nil, err
		}
		user.SheetID = sheetID.String
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET google_id=$1, email=$2, name=$3, access_token=$4,
		refresh_token=$5, token_expiry=$6, sheet_id=$7, updated_at=NOW() WHERE id=$8`
	_, err := r.db.ExecContext(ctx, query,
		user.GoogleID, user.Email, user.Name,
		user.AccessToken, user.RefreshToken, user.TokenExpiry,
		user.SheetID, user.ID)
	return err
}

func (r *PostgresUserRepository) UpdateLastInvoiceSync(ctx context.Context, id string, t time.Time) error {
	query := `UPDATE users SET last_invoice_sync=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.db.ExecContext(ctx, query, t, id)
	return err
}

func (r *PostgresUserRepository) UpdateSheetID(ctx context.Context, id, sheetID string) error {
	query := `UPDATE users SET sheet_id=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.db.ExecContext(ctx, query, sheetID, id)
	return err
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// Postgres Invoice repository implementation
type PostgresInvoiceRepository struct {
	db *sql.DB
}

func NewPostgresInvoiceRepository(db *sql.DB) *PostgresInvoiceRepository {
	return &PostgresInvoiceRepository{db: db}
}

func (r *PostgresInvoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	parties, err := json.Marshal(invoice.Parties)
	if err != nil {
		return fmt.Errorf("failed to marshal parties: %w", err)
	}
	amounts, err := json.Marshal(invoice.Amounts)
	if err != nil {
		return fmt.Errorf("failed to marshal amounts: %w", err)
	}
	items, err := json.Marshal(invoice.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	query := `
		INSERT INTO invoices (id, user_id, invoice_number, invoice_date, due_date, currency,
			supplier_name, parties, amounts, items, source, original_filename, processed_at, raw_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = r.db.ExecContext(ctx, query,
		invoice.ID, invoice.UserID, invoice.Metadata.Number, invoice.Metadata.Date,
		invoice.Metadata.DueDate, invoice.Metadata.Currency,
		invoice.Parties.Supplier.Name, parties, amounts, items,
		invoice.Source, invoice.OriginalFilename, invoice.ProcessedAt, invoice.RawText,
		invoice.CreatedAt)
	return err
}

func (r *PostgresInvoiceRepository) ExistsByNumberAndSupplier(ctx context.Context, userID, number, supplierName string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM invoices WHERE user_id = $1 AND invoice_number = $2 AND supplier_name = $3)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, number, supplierName).Scan(&exists)
	return exists, err
}

const invoiceColumns = `id, user_id, invoice_number, invoice_date, due_date, currency, parties, amounts, items, source, original_filename, processed_at, raw_text, created_at`

func scanInvoice(scan func(dest ...any) error) (*model.Invoice, error) {
	invoice := &model.Invoice{}
	var parties, amounts, items []byte
	err := scan(
		&invoice.ID, &invoice.UserID, &invoice.Metadata.Number, &invoice.Metadata.Date,
		&invoice.Metadata.DueDate, &invoice.Metadata.Currency,
		&parties, &amounts, &items,
		&invoice.Source, &invoice.OriginalFilename, &invoice.ProcessedAt, &invoice.RawText,
		&invoice.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(parties, &invoice.Parties); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parties: %w", err)
	}
	if err := json.Unmarshal(amounts, &invoice.Amounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal amounts: %w", err)
	}
	if err := json.Unmarshal(items, &invoice.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	return invoice, nil
}

func (r *PostgresInvoiceRepository) FindByID(ctx context.Context, userID, id string) (*model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND user_id = $2`
	row := r.db.QueryRowContext(ctx, query, id, userID)
	invoice, err := scanInvoice(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("invoice not found")
		}
		return nil, err
	}
	return invoice, nil
}

func (r *PostgresInvoiceRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = $1 ORDER BY invoice_date DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*model.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *PostgresInvoiceRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM invoices WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, id, userID)
	return err
}

// InitializeDatabase creates the necessary tables
func InitializeDatabase(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			google_id VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			access_token TEXT,
			refresh_token TEXT,
			token_expiry TIMESTAMP,
			last_invoice_sync TIMESTAMP,
			sheet_id VARCHAR(255),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			invoice_number VARCHAR(255) NOT NULL,
			invoice_date VARCHAR(32),
			due_date VARCHAR(32),
			currency VARCHAR(16),
			supplier_name TEXT NOT NULL,
			parties JSONB NOT NULL,
			amounts JSONB NOT NULL,
			items JSONB NOT NULL,
			source VARCHAR(32) NOT NULL,
			original_filename TEXT,
			processed_at TIMESTAMP NOT NULL,
			raw_text TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS invoices_dedup_idx
			ON invoices (user_id, invoice_number, supplier_name)`,
	}

	for _, table := range tables {
		_, err := db.Exec(table)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}
