package companies

import (
	"time"

	"github.com/google/uuid"
)

// Company is an organization a user can operate within. Owned by the
// data service; read-only here except through SetActiveCompany.
type Company struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	LogoURL           string    `json:"logo_url,omitempty"`
	Street            string    `json:"street,omitempty"`
	HouseNumber       string    `json:"house_number,omitempty"`
	ZipCode           string    `json:"zip_code,omitempty"`
	City              string    `json:"city,omitempty"`
	IBAN              string    `json:"iban,omitempty"`
	QRIBAN            string    `json:"qr_iban,omitempty"`
	BankName          string    `json:"bank_name,omitempty"`
	UIDNumber         string    `json:"uid_number,omitempty"`
	VATNumber         string    `json:"vat_number,omitempty"`
	VATRegistered     bool      `json:"vat_registered"`
	InvoiceIntroText  string    `json:"invoice_intro_text,omitempty"`
	InvoiceFooterText string    `json:"invoice_footer_text,omitempty"`
	QuoteIntroText    string    `json:"quote_intro_text,omitempty"`
	QuoteFooterText   string    `json:"quote_footer_text,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// DirectoryRow is one row of the user's company directory as returned by
// the get_user_companies procedure: the full company record plus the
// membership's server-side active flag.
type DirectoryRow struct {
	Company
	MembershipActive bool
}
