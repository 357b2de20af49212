package companies

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fakturio/fakturio/internal/shared"
)

// Repository defines the remote data service surface this package
// depends on. The two procedures are opaque: access checks and the
// durable preference update happen inside them.
type Repository interface {
	ListUserCompanies(ctx context.Context, userID uuid.UUID) ([]DirectoryRow, error)
	GetCompany(ctx context.Context, id uuid.UUID) (Company, error)
	SetActiveCompany(ctx context.Context, userID, companyID uuid.UUID) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const directoryColumns = `company_id, company_name, logo_url, street, house_number, zip_code, city,
	iban, qr_iban, bank_name, uid_number, vat_number, vat_registered, created_at,
	invoice_intro_text, invoice_footer_text, quote_intro_text, quote_footer_text, is_active`

// ListUserCompanies invokes get_user_companies, which returns complete
// company rows for every membership of the user, bypassing row filters.
func (r *PGRepository) ListUserCompanies(ctx context.Context, userID uuid.UUID) ([]DirectoryRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+directoryColumns+` FROM get_user_companies($1)`, userID)
	if err != nil {
		return nil, fmt.Errorf("companies: get_user_companies: %w", err)
	}
	defer rows.Close()

	var directory []DirectoryRow
	for rows.Next() {
		row, err := scanDirectoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("companies: scan directory row: %w", err)
		}
		directory = append(directory, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("companies: get_user_companies rows: %w", err)
	}
	return directory, nil
}

// GetCompany fetches one company by primary key. Under row-level
// security a missing row and a denied row are indistinguishable, so
// both surface as ErrNotFound.
func (r *PGRepository) GetCompany(ctx context.Context, id uuid.UUID) (Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, logo_url, street, house_number, zip_code, city,
		iban, qr_iban, bank_name, uid_number, vat_number, vat_registered, created_at,
		invoice_intro_text, invoice_footer_text, quote_intro_text, quote_footer_text
		FROM companies WHERE id = $1`, id)
	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, shared.ErrNotFound
		}
		return Company{}, fmt.Errorf("companies: get company %s: %w", id, err)
	}
	return company, nil
}

// SetActiveCompany invokes set_active_company, which validates access
// and updates the user's durable company preference server-side. No
// return payload is consumed.
func (r *PGRepository) SetActiveCompany(ctx context.Context, userID, companyID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `SELECT set_active_company($1, $2)`, userID, companyID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// raise_exception and insufficient_privilege both mean the
			// procedure rejected the caller for this company.
			if pgErr.Code == "P0001" || pgErr.Code == "42501" {
				return shared.ErrAccessDenied
			}
		}
		return fmt.Errorf("companies: set_active_company: %w", err)
	}
	return nil
}

func scanDirectoryRow(rows pgx.Rows) (DirectoryRow, error) {
	var (
		row       DirectoryRow
		logoURL   pgtype.Text
		street    pgtype.Text
		houseNo   pgtype.Text
		zipCode   pgtype.Text
		city      pgtype.Text
		iban      pgtype.Text
		qrIBAN    pgtype.Text
		bankName  pgtype.Text
		uidNumber pgtype.Text
		vatNumber pgtype.Text
		invIntro  pgtype.Text
		invFooter pgtype.Text
		qIntro    pgtype.Text
		qFooter   pgtype.Text
		createdAt pgtype.Timestamptz
	)
	err := rows.Scan(
		&row.ID, &row.Name, &logoURL, &street, &houseNo, &zipCode, &city,
		&iban, &qrIBAN, &bankName, &uidNumber, &vatNumber, &row.VATRegistered, &createdAt,
		&invIntro, &invFooter, &qIntro, &qFooter, &row.MembershipActive,
	)
	if err != nil {
		return DirectoryRow{}, err
	}
	applyOptionalText(&row.Company, logoURL, street, houseNo, zipCode, city,
		iban, qrIBAN, bankName, uidNumber, vatNumber, invIntro, invFooter, qIntro, qFooter)
	if createdAt.Valid {
		row.CreatedAt = createdAt.Time
	}
	return row, nil
}

func scanCompany(row pgx.Row) (Company, error) {
	var (
		c         Company
		logoURL   pgtype.Text
		street    pgtype.Text
		houseNo   pgtype.Text
		zipCode   pgtype.Text
		city      pgtype.Text
		iban      pgtype.Text
		qrIBAN    pgtype.Text
		bankName  pgtype.Text
		uidNumber pgtype.Text
		vatNumber pgtype.Text
		invIntro  pgtype.Text
		invFooter pgtype.Text
		qIntro    pgtype.Text
		qFooter   pgtype.Text
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(
		&c.ID, &c.Name, &logoURL, &street, &houseNo, &zipCode, &city,
		&iban, &qrIBAN, &bankName, &uidNumber, &vatNumber, &c.VATRegistered, &createdAt,
		&invIntro, &invFooter, &qIntro, &qFooter,
	)
	if err != nil {
		return Company{}, err
	}
	applyOptionalText(&c, logoURL, street, houseNo, zipCode, city,
		iban, qrIBAN, bankName, uidNumber, vatNumber, invIntro, invFooter, qIntro, qFooter)
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	return c, nil
}

// applyOptionalText maps nullable columns in declaration order; NULL
// stays the zero value so optional fields default to absent.
func applyOptionalText(c *Company, fields ...pgtype.Text) {
	targets := []*string{
		&c.LogoURL, &c.Street, &c.HouseNumber, &c.ZipCode, &c.City,
		&c.IBAN, &c.QRIBAN, &c.BankName, &c.UIDNumber, &c.VATNumber,
		&c.InvoiceIntroText, &c.InvoiceFooterText, &c.QuoteIntroText, &c.QuoteFooterText,
	}
	for i, field := range fields {
		if field.Valid {
			*targets[i] = field.String
		}
	}
}

var _ Repository = (*PGRepository)(nil)
