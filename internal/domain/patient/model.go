package patient

import "time"

// Patient maps to a patient record owned by one clinic.
type Patient struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Gender           string    `json:"gender,omitempty"`
	DateOfBirth      string    `json:"date_of_birth,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	DocumentType     string    `json:"document_type,omitempty"`
	DocumentNumber   string    `json:"document_number,omitempty"`
	IdentityVerified bool      `json:"identity_verified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FullName returns the display name used in queue views.
func (p *Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
