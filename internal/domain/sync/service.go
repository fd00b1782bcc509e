package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinicore/internal/domain/billing"
	"github.com/clinicore/clinicore/internal/domain/consultation"
	"github.com/clinicore/clinicore/internal/domain/patient"
	"github.com/clinicore/clinicore/internal/domain/vitals"
	"github.com/clinicore/clinicore/internal/platform/idempotency"
)

// Reconciler processes offline action batches. Each action executes through
// the idempotency ledger keyed by its client_id, so a batch resubmitted after
// a lost response replays the stored outcomes instead of duplicating work.
type Reconciler struct {
	patients *patient.Service
	vitals   *vitals.Service
	consults *consultation.Service
	bills    *billing.Service
	ledger   *idempotency.Ledger
}

func NewReconciler(
	patients *patient.Service,
	vitalsSvc *vitals.Service,
	consults *consultation.Service,
	bills *billing.Service,
	ledger *idempotency.Ledger,
) *Reconciler {
	return &Reconciler{
		patients: patients,
		vitals:   vitalsSvc,
		consults: consults,
		bills:    bills,
		ledger:   ledger,
	}
}

// idMapping resolves client_id references to server identifiers within one
// batch. References to records created by earlier actions in the same batch
// arrive as client_ids; once the creating action resolves, later actions see
// the server id.
type idMapping map[string]string

func (m idMapping) resolve(ref string) string {
	if serverID, ok := m[ref]; ok {
		return serverID
	}
	return ref
}

// ProcessBatch reconciles actions in timestamp order with per-action
// isolation: a failed action is reported in its result and never aborts the
// rest of the batch. The returned watermark is floored at the request's
// LastSyncTimestamp and advances only past the prefix of actions that
// reached a durable outcome, so transiently failed work stays ahead of the
// client's sync cursor and the cursor itself never moves backwards.
func (r *Reconciler) ProcessBatch(ctx context.Context, tenantID string, req *BatchRequest) (*BatchResponse, error) {
	actions := make([]Action, len(req.Actions))
	copy(actions, req.Actions)
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Timestamp.Before(actions[j].Timestamp)
	})

	resp := &BatchResponse{
		Results:           make([]ActionResult, 0, len(actions)),
		NextSyncTimestamp: req.LastSyncTimestamp,
	}
	mapping := make(idMapping)
	watermarkOpen := true

	for _, action := range actions {
		result := r.processAction(ctx, tenantID, action, mapping)
		if result.Success && result.ServerID != "" {
			mapping[action.ClientID] = result.ServerID
		}

		resp.Results = append(resp.Results, result)
		resp.Processed++
		if result.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}

		durable := result.Success || !result.ErrorKind.Retryable()
		if watermarkOpen && durable {
			if action.Timestamp.After(resp.NextSyncTimestamp) {
				resp.NextSyncTimestamp = action.Timestamp
			}
		} else {
			watermarkOpen = false
		}
	}

	log.Info().
		Str("tenant_id", tenantID).
		Str("device_id", req.DeviceID).
		Int("processed", resp.Processed).
		Int("succeeded", resp.Succeeded).
		Int("failed", resp.Failed).
		Msg("sync batch reconciled")

	return resp, nil
}

// processAction runs one action through the ledger. Deterministic failures
// are marshaled into the cached outcome so they replay identically; transient
// failures are returned as errors so the ledger records nothing and a retry
// can succeed.
func (r *Reconciler) processAction(ctx context.Context, tenantID string, action Action, mapping idMapping) ActionResult {
	if action.ClientID == "" {
		return ActionResult{
			Type:      action.Type,
			Success:   false,
			ErrorKind: KindValidation,
			Error:     "client_id is required",
		}
	}

	raw, _, err := r.ledger.Execute(ctx, tenantID, action.ClientID, func(ctx context.Context) (json.RawMessage, error) {
		result := r.dispatch(ctx, tenantID, action, mapping)
		if result.ErrorKind.Retryable() {
			return nil, fmt.Errorf("%s: %s", result.ErrorKind, result.Error)
		}
		return json.Marshal(result)
	})
	if err != nil {
		return ActionResult{
			ClientID:  action.ClientID,
			Type:      action.Type,
			Success:   false,
			ErrorKind: classify(err),
			Error:     err.Error(),
		}
	}

	var result ActionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ActionResult{
			ClientID:  action.ClientID,
			Type:      action.Type,
			Success:   false,
			ErrorKind: KindInternal,
			Error:     "corrupt stored outcome",
		}
	}
	return result
}

func (r *Reconciler) dispatch(ctx context.Context, tenantID string, action Action, mapping idMapping) ActionResult {
	result := ActionResult{ClientID: action.ClientID, Type: action.Type}

	fail := func(err error) ActionResult {
		result.Success = false
		result.ErrorKind = classify(err)
		result.Error = err.Error()
		return result
	}

	if !ValidActionType(action.Type) {
		result.ErrorKind = KindValidation
		result.Error = fmt.Sprintf("unknown action type: %s", action.Type)
		return result
	}

	switch action.Type {
	case ActionCreatePatient:
		var p PatientPayload
		if err := json.Unmarshal(action.Data, &p); err != nil {
			return fail(fmt.Errorf("decode patient payload: %w", err))
		}
		rec := &patient.Patient{
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			Gender:         p.Gender,
			DateOfBirth:    p.DateOfBirth,
			Phone:          p.Phone,
			Address:        p.Address,
			DocumentType:   p.DocumentType,
			DocumentNumber: p.DocumentNumber,
		}
		if err := r.patients.Register(ctx, tenantID, rec); err != nil {
			return fail(err)
		}
		result.ServerID = rec.ID

	case ActionRecordVitals:
		var v VitalsPayload
		if err := json.Unmarshal(action.Data, &v); err != nil {
			return fail(fmt.Errorf("decode vitals payload: %w", err))
		}
		reading := &vitals.Reading{
			PatientID:      mapping.resolve(v.PatientID),
			Systolic:       v.Systolic,
			Diastolic:      v.Diastolic,
			TemperatureC:   v.TemperatureC,
			PulseBPM:       v.PulseBPM,
			RespirationRPM: v.RespirationRPM,
			SpO2Percent:    v.SpO2Percent,
			GlucoseMGDL:    v.GlucoseMGDL,
			WeightKG:       v.WeightKG,
			HeightCM:       v.HeightCM,
			RecordedAt:     v.RecordedAt,
		}
		if err := r.vitals.Record(ctx, tenantID, reading); err != nil {
			return fail(err)
		}
		result.ServerID = reading.ID
		result.Analysis = reading.Analysis

	case ActionCreateConsultation:
		var c ConsultationPayload
		if err := json.Unmarshal(action.Data, &c); err != nil {
			return fail(fmt.Errorf("decode consultation payload: %w", err))
		}
		rec := &consultation.Consultation{
			PatientID:      mapping.resolve(c.PatientID),
			PractitionerID: c.PractitionerID,
			Symptoms:       c.Symptoms,
			Diagnosis:      c.Diagnosis,
			Notes:          c.Notes,
			Prescriptions:  c.Prescriptions,
			StartedAt:      c.StartedAt,
		}
		if err := r.consults.Create(ctx, tenantID, rec); err != nil {
			return fail(err)
		}
		result.ServerID = rec.ID

	case ActionCreateBill:
		var b BillPayload
		if err := json.Unmarshal(action.Data, &b); err != nil {
			return fail(fmt.Errorf("decode bill payload: %w", err))
		}
		rec := &billing.Bill{
			PatientID:      mapping.resolve(b.PatientID),
			ConsultationID: mapping.resolve(b.ConsultationID),
			Items:          b.Items,
		}
		if err := r.bills.CreateBill(ctx, tenantID, rec); err != nil {
			return fail(err)
		}
		result.ServerID = rec.ID

	case ActionRecordPayment:
		var p PaymentPayload
		if err := json.Unmarshal(action.Data, &p); err != nil {
			return fail(fmt.Errorf("decode payment payload: %w", err))
		}
		rec := &billing.Payment{
			BillID:        mapping.resolve(p.BillID),
			AmountCents:   p.AmountCents,
			Method:        p.Method,
			ReceiptNumber: p.ReceiptNumber,
		}
		if _, err := r.bills.RecordPayment(ctx, tenantID, rec); err != nil {
			return fail(err)
		}
		result.ServerID = rec.ID
	}

	result.Success = true
	return result
}
