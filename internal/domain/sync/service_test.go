package sync

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/clinicore/clinicore/internal/domain/billing"
	"github.com/clinicore/clinicore/internal/domain/consultation"
	"github.com/clinicore/clinicore/internal/domain/patient"
	"github.com/clinicore/clinicore/internal/domain/vitals"
	"github.com/clinicore/clinicore/internal/platform/idempotency"
	"github.com/clinicore/clinicore/internal/platform/oracle"
	"github.com/clinicore/clinicore/internal/platform/store"
)

type fixture struct {
	reconciler *Reconciler
	store      store.Store
	patients   *patient.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	guard := store.NewGuard(st)

	patients := patient.NewService(patient.NewRepo(st))
	vitalsSvc := vitals.NewService(vitals.NewRepo(st), guard)
	consults := consultation.NewService(consultation.NewRepo(st), guard)
	bills := billing.NewService(billing.NewRepo(st), guard)
	ledger := idempotency.NewLedger(idempotency.NewStoreRecords(st), time.Hour)

	return &fixture{
		reconciler: NewReconciler(patients, vitalsSvc, consults, bills, ledger),
		store:      st,
		patients:   patients,
	}
}

func seedPatient(t *testing.T, f *fixture, tenantID, id string) {
	t.Helper()
	p := &patient.Patient{ID: id, FirstName: "Ada", LastName: "Okiro"}
	if err := f.patients.Register(context.Background(), tenantID, p); err != nil {
		t.Fatalf("seed patient: %v", err)
	}
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b
}

func f64(v float64) *float64 { return &v }

func ts(minute int) time.Time {
	return time.Date(2025, 3, 1, 9, minute, 0, 0, time.UTC)
}

func TestProcessBatchHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := &BatchRequest{
		DeviceID: "tablet-7",
		Actions: []Action{
			{
				ClientID:  "c-pat-1",
				Type:      ActionCreatePatient,
				Timestamp: ts(0),
				Data:      mustJSON(t, PatientPayload{FirstName: "Grace", LastName: "Mwangi"}),
			},
			{
				ClientID:  "c-vit-1",
				Type:      ActionRecordVitals,
				Timestamp: ts(1),
				Data: mustJSON(t, VitalsPayload{
					PatientID: "c-pat-1",
					Systolic:  f64(185),
					Diastolic: f64(122),
				}),
			},
			{
				ClientID:  "c-con-1",
				Type:      ActionCreateConsultation,
				Timestamp: ts(2),
				Data: mustJSON(t, ConsultationPayload{
					PatientID: "c-pat-1",
					Diagnosis: "hypertension",
				}),
			},
		},
	}

	resp, err := f.reconciler.ProcessBatch(ctx, "clinic-a", req)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if resp.Succeeded != 3 || resp.Failed != 0 {
		t.Fatalf("succeeded=%d failed=%d, want 3/0: %+v", resp.Succeeded, resp.Failed, resp.Results)
	}

	// The patient action resolves the client id; subsequent actions must
	// reference the server id it produced.
	patientServerID := resp.Results[0].ServerID
	if patientServerID == "" {
		t.Fatal("patient action returned no server id")
	}
	if _, err := f.patients.GetPatient(ctx, "clinic-a", patientServerID); err != nil {
		t.Fatalf("created patient not readable: %v", err)
	}

	vitalsResult := resp.Results[1]
	if vitalsResult.Analysis == nil || !vitalsResult.Analysis.HasCritical() {
		t.Errorf("vitals result missing critical analysis: %+v", vitalsResult)
	}

	if !resp.NextSyncTimestamp.Equal(ts(2)) {
		t.Errorf("watermark %v, want %v", resp.NextSyncTimestamp, ts(2))
	}
}

func TestProcessBatchOrdersByTimestamp(t *testing.T) {
	f := newFixture(t)

	// Submitted out of order: vitals first, then the patient creation it
	// depends on, with an earlier timestamp.
	req := &BatchRequest{
		Actions: []Action{
			{
				ClientID:  "c-vit-1",
				Type:      ActionRecordVitals,
				Timestamp: ts(5),
				Data:      mustJSON(t, VitalsPayload{PatientID: "c-pat-1", PulseBPM: f64(72)}),
			},
			{
				ClientID:  "c-pat-1",
				Type:      ActionCreatePatient,
				Timestamp: ts(1),
				Data:      mustJSON(t, PatientPayload{FirstName: "Grace"}),
			},
		},
	}

	resp, err := f.reconciler.ProcessBatch(context.Background(), "clinic-a", req)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if resp.Results[0].ClientID != "c-pat-1" {
		t.Errorf("first processed action %s, want c-pat-1", resp.Results[0].ClientID)
	}
	if resp.Succeeded != 2 {
		t.Errorf("succeeded=%d, want 2: %+v", resp.Succeeded, resp.Results)
	}
}

func TestProcessBatchReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := &BatchRequest{
		Actions: []Action{{
			ClientID:  "c-pat-1",
			Type:      ActionCreatePatient,
			Timestamp: ts(0),
			Data:      mustJSON(t, PatientPayload{FirstName: "Grace"}),
		}},
	}

	first, err := f.reconciler.ProcessBatch(ctx, "clinic-a", req)
	if err != nil {
		t.Fatalf("first ProcessBatch: %v", err)
	}
	second, err := f.reconciler.ProcessBatch(ctx, "clinic-a", req)
	if err != nil {
		t.Fatalf("second ProcessBatch: %v", err)
	}

	// Resubmission replays the stored outcome: the results are identical,
	// server id included.
	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Errorf("resubmitted batch results differ:\nfirst:  %+v\nsecond: %+v",
			first.Results, second.Results)
	}

	// Exactly one patient exists.
	patients, err := f.patients.ListPatients(ctx, "clinic-a")
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if len(patients) != 1 {
		t.Errorf("expected 1 patient after replay, got %d", len(patients))
	}
}

func TestProcessBatchFailureIsolation(t *testing.T) {
	f := newFixture(t)
	seedPatient(t, f, "clinic-a", "p1")

	req := &BatchRequest{
		Actions: []Action{
			{
				ClientID:  "c-vit-bad",
				Type:      ActionRecordVitals,
				Timestamp: ts(0),
				Data:      mustJSON(t, VitalsPayload{PatientID: "ghost", PulseBPM: f64(70)}),
			},
			{
				ClientID:  "c-vit-good",
				Type:      ActionRecordVitals,
				Timestamp: ts(1),
				Data:      mustJSON(t, VitalsPayload{PatientID: "p1", PulseBPM: f64(70)}),
			},
		},
	}

	resp, err := f.reconciler.ProcessBatch(context.Background(), "clinic-a", req)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if resp.Succeeded != 1 || resp.Failed != 1 {
		t.Fatalf("succeeded=%d failed=%d, want 1/1", resp.Succeeded, resp.Failed)
	}
	bad := resp.Results[0]
	if bad.Success || bad.ErrorKind != KindNotFound {
		t.Errorf("bad action: %+v, want not_found failure", bad)
	}
	good := resp.Results[1]
	if !good.Success {
		t.Errorf("good action failed: %+v", good)
	}
	// Deterministic failures are durable; the watermark passes them.
	if !resp.NextSyncTimestamp.Equal(ts(1)) {
		t.Errorf("watermark %v, want %v", resp.NextSyncTimestamp, ts(1))
	}
}

func TestProcessBatchDeterministicFailureReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := &BatchRequest{
		Actions: []Action{{
			ClientID:  "c-vit-bad",
			Type:      ActionRecordVitals,
			Timestamp: ts(0),
			Data:      mustJSON(t, VitalsPayload{PatientID: "ghost", PulseBPM: f64(70)}),
		}},
	}

	first, _ := f.reconciler.ProcessBatch(ctx, "clinic-a", req)
	second, _ := f.reconciler.ProcessBatch(ctx, "clinic-a", req)

	if second.Results[0].Success {
		t.Error("replayed failure reported success")
	}
	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Errorf("stored failure outcome changed on replay:\nfirst:  %+v\nsecond: %+v",
			first.Results, second.Results)
	}
}

func TestProcessBatchCrossTenantReferenceFails(t *testing.T) {
	f := newFixture(t)
	seedPatient(t, f, "clinic-a", "p1")

	req := &BatchRequest{
		Actions: []Action{{
			ClientID:  "c-vit-1",
			Type:      ActionRecordVitals,
			Timestamp: ts(0),
			Data:      mustJSON(t, VitalsPayload{PatientID: "p1", PulseBPM: f64(70)}),
		}},
	}

	resp, err := f.reconciler.ProcessBatch(context.Background(), "clinic-b", req)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	r := resp.Results[0]
	if r.Success || r.ErrorKind != KindNotFound {
		t.Errorf("cross-tenant reference must fail as not_found, got %+v", r)
	}
}

func TestProcessBatchDuplicateReceiptConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedPatient(t, f, "clinic-a", "p1")

	billReq := &BatchRequest{
		Actions: []Action{{
			ClientID:  "c-bill-1",
			Type:      ActionCreateBill,
			Timestamp: ts(0),
			Data: mustJSON(t, BillPayload{
				PatientID: "p1",
				Items:     []billing.LineItem{{Description: "Consultation", Quantity: 1, UnitPriceCents: 5000}},
			}),
		}},
	}
	billResp, err := f.reconciler.ProcessBatch(ctx, "clinic-a", billReq)
	if err != nil {
		t.Fatalf("bill batch: %v", err)
	}
	billID := billResp.Results[0].ServerID

	payReq := &BatchRequest{
		Actions: []Action{
			{
				ClientID:  "c-pay-1",
				Type:      ActionRecordPayment,
				Timestamp: ts(1),
				Data: mustJSON(t, PaymentPayload{
					BillID: billID, AmountCents: 2000, ReceiptNumber: "R-100",
				}),
			},
			{
				// Different client id, same receipt: a true duplicate, not
				// a replay.
				ClientID:  "c-pay-2",
				Type:      ActionRecordPayment,
				Timestamp: ts(2),
				Data: mustJSON(t, PaymentPayload{
					BillID: billID, AmountCents: 2000, ReceiptNumber: "R-100",
				}),
			},
		},
	}
	payResp, err := f.reconciler.ProcessBatch(ctx, "clinic-a", payReq)
	if err != nil {
		t.Fatalf("payment batch: %v", err)
	}
	if !payResp.Results[0].Success {
		t.Fatalf("first payment failed: %+v", payResp.Results[0])
	}
	dup := payResp.Results[1]
	if dup.Success || dup.ErrorKind != KindConflict {
		t.Errorf("duplicate receipt must fail as conflict, got %+v", dup)
	}
}

// unavailableVerifier simulates the identity oracle timing out.
type unavailableVerifier struct{}

func (unavailableVerifier) Verify(ctx context.Context, documentType, documentNumber string) (*oracle.DemographicData, error) {
	return nil, oracle.ErrUnavailable
}

func TestProcessBatchTransientFailureRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.patients.SetVerifier(unavailableVerifier{})

	req := &BatchRequest{
		Actions: []Action{
			{
				ClientID:  "c-pat-1",
				Type:      ActionCreatePatient,
				Timestamp: ts(0),
				Data:      mustJSON(t, PatientPayload{FirstName: "Grace", DocumentType: "national_id", DocumentNumber: "12345678"}),
			},
			{
				ClientID:  "c-pat-2",
				Type:      ActionCreatePatient,
				Timestamp: ts(1),
				Data:      mustJSON(t, PatientPayload{FirstName: "Joy"}),
			},
		},
	}

	resp, err := f.reconciler.ProcessBatch(ctx, "clinic-a", req)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	first := resp.Results[0]
	if first.Success || first.ErrorKind != KindDependencyTimeout {
		t.Fatalf("oracle outage must classify as dependency_timeout, got %+v", first)
	}
	if !resp.Results[1].Success {
		t.Errorf("independent action must still succeed: %+v", resp.Results[1])
	}
	// The watermark must not pass a retryable failure, even though a later
	// action succeeded.
	if !resp.NextSyncTimestamp.IsZero() {
		t.Errorf("watermark advanced past a retryable failure: %v", resp.NextSyncTimestamp)
	}

	// Once the oracle recovers, the same client id executes for real.
	f.patients.SetVerifier(nil)
	retry, err := f.reconciler.ProcessBatch(ctx, "clinic-a", &BatchRequest{Actions: req.Actions[:1]})
	if err != nil {
		t.Fatalf("retry ProcessBatch: %v", err)
	}
	got := retry.Results[0]
	if !got.Success {
		t.Errorf("retry after oracle recovery failed: %+v", got)
	}
	// The transient failure left no ledger record, so the retry executed for
	// real and produced a server id.
	if got.ServerID == "" {
		t.Error("retry produced no server id")
	}
	if _, err := f.patients.GetPatient(ctx, "clinic-a", got.ServerID); err != nil {
		t.Errorf("patient created on retry not readable: %v", err)
	}
}

func TestProcessBatchWatermarkNeverRegresses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The device already synced up to 10:00; a straggling action captured at
	// 09:00 must not pull the cursor backwards.
	lastSync := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	resp, err := f.reconciler.ProcessBatch(ctx, "clinic-a", &BatchRequest{
		LastSyncTimestamp: lastSync,
		Actions: []Action{{
			ClientID:  "c-pat-1",
			Type:      ActionCreatePatient,
			Timestamp: ts(0),
			Data:      mustJSON(t, PatientPayload{FirstName: "Grace"}),
		}},
	})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if !resp.NextSyncTimestamp.Equal(lastSync) {
		t.Errorf("watermark %v, want floor %v", resp.NextSyncTimestamp, lastSync)
	}

	// An action beyond the floor still advances it.
	later := lastSync.Add(30 * time.Minute)
	resp, err = f.reconciler.ProcessBatch(ctx, "clinic-a", &BatchRequest{
		LastSyncTimestamp: lastSync,
		Actions: []Action{{
			ClientID:  "c-pat-2",
			Type:      ActionCreatePatient,
			Timestamp: later,
			Data:      mustJSON(t, PatientPayload{FirstName: "Joy"}),
		}},
	})
	if err != nil {
		t.Fatalf("second ProcessBatch: %v", err)
	}
	if !resp.NextSyncTimestamp.Equal(later) {
		t.Errorf("watermark %v, want %v", resp.NextSyncTimestamp, later)
	}
}

func TestProcessBatchUnknownActionType(t *testing.T) {
	f := newFixture(t)

	resp, err := f.reconciler.ProcessBatch(context.Background(), "clinic-a", &BatchRequest{
		Actions: []Action{{
			ClientID:  "c-x",
			Type:      "DELETE_EVERYTHING",
			Timestamp: ts(0),
			Data:      json.RawMessage(`{}`),
		}},
	})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	r := resp.Results[0]
	if r.Success || r.ErrorKind != KindValidation {
		t.Errorf("unknown type must fail validation, got %+v", r)
	}
}

func TestProcessBatchMissingClientID(t *testing.T) {
	f := newFixture(t)

	resp, err := f.reconciler.ProcessBatch(context.Background(), "clinic-a", &BatchRequest{
		Actions: []Action{{
			Type:      ActionCreatePatient,
			Timestamp: ts(0),
			Data:      mustJSON(t, PatientPayload{FirstName: "Grace"}),
		}},
	})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	r := resp.Results[0]
	if r.Success || r.ErrorKind != KindValidation {
		t.Errorf("missing client_id must fail validation, got %+v", r)
	}
}
