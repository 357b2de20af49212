package companies

// StateResponse is the company-selection surface exposed to the
// frontend: the directory, the selected company, and transient flags.
type StateResponse struct {
	Companies       []Company `json:"companies"`
	SelectedCompany *Company  `json:"selected_company"`
	IsLoading       bool      `json:"is_loading"`
	Error           string    `json:"error,omitempty"`
}

// SwitchCompanyRequest asks to make another company active.
type SwitchCompanyRequest struct {
	CompanyID string `json:"company_id" validate:"required,uuid"`
}
