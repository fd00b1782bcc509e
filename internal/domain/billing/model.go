package billing

import "time"

// Bill statuses.
const (
	StatusIssued        = "issued"
	StatusPartiallyPaid = "partially_paid"
	StatusPaid          = "paid"
)

// LineItem is one charge on a bill. Amounts are integer cents.
type LineItem struct {
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Bill is an invoice issued to a patient. TotalCents is derived from the
// line items at creation and never accepted from the client.
type Bill struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	PatientID      string     `json:"patient_id"`
	ConsultationID string     `json:"consultation_id,omitempty"`
	Items          []LineItem `json:"items"`
	TotalCents     int64      `json:"total_cents"`
	PaidCents      int64      `json:"paid_cents"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Payment records money received against a bill. ReceiptNumber is a natural
// key within the tenant: the same receipt can never be recorded twice.
type Payment struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	BillID        string    `json:"bill_id"`
	AmountCents   int64     `json:"amount_cents"`
	Method        string    `json:"method,omitempty"`
	ReceiptNumber string    `json:"receipt_number,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Outstanding returns the unpaid balance.
func (b *Bill) Outstanding() int64 {
	return b.TotalCents - b.PaidCents
}
