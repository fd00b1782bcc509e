package sync

import (
	"encoding/json"
	"time"

	"github.com/clinicore/clinicore/internal/domain/billing"
	"github.com/clinicore/clinicore/internal/domain/consultation"
	"github.com/clinicore/clinicore/internal/domain/vitals"
)

// ActionType identifies which kind of offline action a batch item carries.
type ActionType string

const (
	ActionCreatePatient      ActionType = "CREATE_PATIENT"
	ActionRecordVitals       ActionType = "RECORD_VITALS"
	ActionCreateConsultation ActionType = "CREATE_CONSULTATION"
	ActionCreateBill         ActionType = "CREATE_BILL"
	ActionRecordPayment      ActionType = "RECORD_PAYMENT"
)

// ValidActionType reports whether t names a supported action.
func ValidActionType(t ActionType) bool {
	switch t {
	case ActionCreatePatient, ActionRecordVitals, ActionCreateConsultation,
		ActionCreateBill, ActionRecordPayment:
		return true
	}
	return false
}

// Action is one offline-captured operation submitted for reconciliation.
// ClientID is the device-generated identifier for the new record; it doubles
// as the idempotency key for the action, so resubmitting a batch replays
// stored outcomes instead of executing twice.
type Action struct {
	ClientID  string          `json:"client_id"`
	Type      ActionType      `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// BatchRequest is the body of a sync upload. LastSyncTimestamp is the
// watermark the device persisted from its previous sync; the response's
// watermark never regresses below it.
type BatchRequest struct {
	DeviceID          string    `json:"device_id,omitempty"`
	LastSyncTimestamp time.Time `json:"last_sync_timestamp,omitempty"`
	Actions           []Action  `json:"actions"`
}

// ActionResult is the per-action outcome. Results are returned in the order
// the actions were processed, which is timestamp order, not submission order.
// A resubmitted batch gets results identical to the first response; replay is
// signaled only by the X-Idempotency-Replayed response header, never inside
// the results themselves.
type ActionResult struct {
	ClientID  string           `json:"client_id"`
	Type      ActionType       `json:"type"`
	Success   bool             `json:"success"`
	ServerID  string           `json:"server_id,omitempty"`
	ErrorKind ErrorKind        `json:"error_kind,omitempty"`
	Error     string           `json:"error,omitempty"`
	Analysis  *vitals.Analysis `json:"analysis,omitempty"`
}

// BatchResponse summarizes a processed batch. NextSyncTimestamp is the
// watermark the client should persist: it starts at the request's
// LastSyncTimestamp, never regresses below it, and only advances past
// actions that were durably resolved, so transiently failed work is
// re-offered on the next sync.
type BatchResponse struct {
	Results           []ActionResult `json:"results"`
	Processed         int            `json:"processed"`
	Succeeded         int            `json:"succeeded"`
	Failed            int            `json:"failed"`
	NextSyncTimestamp time.Time      `json:"next_sync_timestamp"`
}

// Typed payloads decoded from Action.Data. Reference fields may carry either
// a server identifier or the client_id of an earlier action in the same
// batch; the reconciler resolves client references through its mapping
// before dispatch.

type PatientPayload struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Gender         string `json:"gender,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	DocumentType   string `json:"document_type,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
}

type VitalsPayload struct {
	PatientID      string    `json:"patient_id"`
	Systolic       *float64  `json:"systolic,omitempty"`
	Diastolic      *float64  `json:"diastolic,omitempty"`
	TemperatureC   *float64  `json:"temperature_c,omitempty"`
	PulseBPM       *float64  `json:"pulse_bpm,omitempty"`
	RespirationRPM *float64  `json:"respiration_rpm,omitempty"`
	SpO2Percent    *float64  `json:"spo2_percent,omitempty"`
	GlucoseMGDL    *float64  `json:"glucose_mgdl,omitempty"`
	WeightKG       *float64  `json:"weight_kg,omitempty"`
	HeightCM       *float64  `json:"height_cm,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

type ConsultationPayload struct {
	PatientID      string                      `json:"patient_id"`
	PractitionerID string                      `json:"practitioner_id,omitempty"`
	Symptoms       string                      `json:"symptoms,omitempty"`
	Diagnosis      string                      `json:"diagnosis,omitempty"`
	Notes          string                      `json:"notes,omitempty"`
	Prescriptions  []consultation.Prescription `json:"prescriptions,omitempty"`
	StartedAt      time.Time                   `json:"started_at"`
}

type BillPayload struct {
	PatientID      string             `json:"patient_id"`
	ConsultationID string             `json:"consultation_id,omitempty"`
	Items          []billing.LineItem `json:"items"`
}

type PaymentPayload struct {
	BillID        string `json:"bill_id"`
	AmountCents   int64  `json:"amount_cents"`
	Method        string `json:"method,omitempty"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
}
