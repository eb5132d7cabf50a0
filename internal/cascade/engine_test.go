package cascade

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TallerDrive/TallerDrive/internal/common/config"
	"github.com/TallerDrive/TallerDrive/internal/common/logger"
	"github.com/TallerDrive/TallerDrive/internal/model"
	"github.com/TallerDrive/TallerDrive/internal/query"
	"github.com/TallerDrive/TallerDrive/internal/remote"
	"github.com/TallerDrive/TallerDrive/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(nil, logger.Nop())
	ctx := context.Background()
	st.Dispatch(ctx, store.SetClients([]model.Client{{ID: "c1", Name: "Ana"}, {ID: "c2", Name: "Beto"}}))
	st.Dispatch(ctx, store.SetVehicles([]model.Vehicle{
		{ID: "v1", ClientID: "c1", Brand: "Toyota", Model: "Hilux", Plate: "HAA1234"},
		{ID: "v2", ClientID: "c2"},
	}))
	st.Dispatch(ctx, store.SetWorkOrders([]model.WorkOrder{
		{ID: "w1", VehicleID: "v1", ClientID: "c1", Status: model.WorkOrderInProgress,
			Description: "cambio de frenos", LaborCost: 40000, PartsCost: 60000, TotalCost: 100000},
		{ID: "w2", VehicleID: "v2", ClientID: "c2", Status: model.WorkOrderPending},
		{ID: "w3", VehicleID: "v2", ClientID: "c2", Status: model.WorkOrderCancelled},
	}))
	st.Dispatch(ctx, store.SetAppointments([]model.Appointment{
		{ID: "a1", ClientID: "c1", VehicleID: "v1"},
		{ID: "a2", ClientID: "c2", VehicleID: "v2"},
	}))
	return st
}

func newTestClient(handler http.Handler) (*remote.Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	rc := remote.New(srv.URL, config.RemoteConfig{TimeoutSeconds: 2}, logger.Nop())
	return rc, srv
}

func TestDeleteClientWithRelations(t *testing.T) {
	st := seededStore(t)
	engine := New(st, nil, nil, logger.Nop())
	ctx := context.Background()

	before := st.Snapshot().Version
	if err := engine.DeleteClientWithRelations(ctx, "c1"); err != nil {
		t.Fatalf("DeleteClientWithRelations: %v", err)
	}

	snap := st.Snapshot()
	if snap.ClientByID("c1") != nil {
		t.Fatalf("client not deleted")
	}
	if snap.VehicleByID("v1") != nil {
		t.Fatalf("vehicle not cascaded")
	}
	if snap.WorkOrderByID("w1") != nil {
		t.Fatalf("work order not cascaded")
	}
	for _, a := range snap.Appointments {
		if a.ID == "a1" {
			t.Fatalf("appointment not cascaded")
		}
	}
	// 无关实体不受影响
	if snap.ClientByID("c2") == nil || snap.VehicleByID("v2") == nil || snap.WorkOrderByID("w2") == nil {
		t.Fatalf("unrelated entities touched")
	}
	// 一条 diff + 一次统计刷新，各自恰好一次版本变更
	if snap.Version != before+2 {
		t.Fatalf("expected 2 version bumps (diff + stats), got %d", snap.Version-before)
	}
}

func TestDeleteClientMissingIsObservableNoOp(t *testing.T) {
	st := seededStore(t)
	engine := New(st, nil, nil, logger.Nop())

	before := st.Snapshot()
	err := engine.DeleteClientWithRelations(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if st.Snapshot() != before {
		t.Fatalf("expected state untouched on missing id")
	}
}

func TestDeleteVehicleWithRelations(t *testing.T) {
	st := seededStore(t)
	engine := New(st, nil, nil, logger.Nop())

	if err := engine.DeleteVehicleWithRelations(context.Background(), "v1"); err != nil {
		t.Fatalf("DeleteVehicleWithRelations: %v", err)
	}
	snap := st.Snapshot()
	if snap.VehicleByID("v1") != nil || snap.WorkOrderByID("w1") != nil {
		t.Fatalf("vehicle cascade incomplete")
	}
	if snap.ClientByID("c1") == nil {
		t.Fatalf("owner must survive vehicle delete")
	}
}

func TestCompleteWorkOrderWithInvoice(t *testing.T) {
	st := seededStore(t)
	engine := New(st, nil, nil, logger.Nop())

	inv, err := engine.CompleteWorkOrderWithInvoice(context.Background(), "w1")
	if err != nil {
		t.Fatalf("CompleteWorkOrderWithInvoice: %v", err)
	}
	if inv.Subtotal != 100000 || inv.Tax != 15000 || inv.Total != 115000 {
		t.Fatalf("unexpected invoice amounts: %+v", inv)
	}
	if inv.ClientID != "c1" || inv.WorkOrderID != "w1" || inv.Status != model.InvoicePending {
		t.Fatalf("unexpected invoice fields: %+v", inv)
	}
	if len(inv.Items) != 1 || inv.Items[0].Amount != 100000 {
		t.Fatalf("unexpected invoice items: %+v", inv.Items)
	}

	snap := st.Snapshot()
	wo := snap.WorkOrderByID("w1")
	if wo == nil || wo.Status != model.WorkOrderCompleted {
		t.Fatalf("work order not completed: %+v", wo)
	}
	if wo.PaymentStatus != model.PaymentPending {
		t.Fatalf("expected payment pending after completion")
	}
	if wo.ActualCompletionDate == nil {
		t.Fatalf("expected completion date stamped")
	}
	if snap.InvoiceByID(inv.ID) == nil {
		t.Fatalf("invoice not stored")
	}
	if got := query.PendingDebt(snap, "c1"); got != 115000 {
		t.Fatalf("expected pending debt 115000, got %d", got)
	}
}

func TestCompleteWorkOrderRejectsInvalidTransition(t *testing.T) {
	st := seededStore(t)
	engine := New(st, nil, nil, logger.Nop())
	ctx := context.Background()

	// w3 已取消，终态不能完工
	if _, err := engine.CompleteWorkOrderWithInvoice(ctx, "w3"); err == nil {
		t.Fatalf("expected cancelled order completion to fail")
	}
	if _, err := engine.CompleteWorkOrderWithInvoice(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(st.Snapshot().Invoices) != 0 {
		t.Fatalf("no invoice may be issued on failure")
	}
}

func TestCompletePendingWorkOrderDirectly(t *testing.T) {
	st := seededStore(t)
	engine := New(st, nil, nil, logger.Nop())

	// pending 直接完工（小修当场交车），同样开票
	inv, err := engine.CompleteWorkOrderWithInvoice(context.Background(), "w2")
	if err != nil {
		t.Fatalf("CompleteWorkOrderWithInvoice: %v", err)
	}
	if inv.WorkOrderID != "w2" {
		t.Fatalf("unexpected invoice: %+v", inv)
	}
	wo := st.Snapshot().WorkOrderByID("w2")
	if wo == nil || wo.Status != model.WorkOrderCompleted {
		t.Fatalf("pending order must complete directly, got %+v", wo)
	}
}

func TestRepeatedCompletionIssuesSingleInvoice(t *testing.T) {
	st := seededStore(t)
	engine := New(st, nil, nil, logger.Nop())
	ctx := context.Background()

	first, err := engine.CompleteWorkOrderWithInvoice(ctx, "w1")
	if err != nil {
		t.Fatalf("first completion: %v", err)
	}
	after := st.Snapshot()

	// 重复完工请求必须被拒，既不开第二张票，也不动 Store
	if _, err := engine.CompleteWorkOrderWithInvoice(ctx, "w1"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	snap := st.Snapshot()
	if snap != after {
		t.Fatalf("repeated completion must not touch the store")
	}
	if len(snap.Invoices) != 1 || snap.Invoices[0].ID != first.ID {
		t.Fatalf("expected exactly the original invoice, got %d invoices", len(snap.Invoices))
	}
	if got := query.PendingDebt(snap, "c1"); got != 115000 {
		t.Fatalf("pending debt must not double, got %d", got)
	}
}

func TestCreateClientRemoteFirst(t *testing.T) {
	rc, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/clients" {
			http.NotFound(w, r)
			return
		}
		var in model.Client
		_ = json.NewDecoder(r.Body).Decode(&in)
		in.ID = "c9"
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": in})
	}))
	defer srv.Close()

	st := store.New(nil, logger.Nop())
	engine := New(st, rc, nil, logger.Nop())

	created, err := engine.CreateClientWithLog(context.Background(), model.Client{Name: "Carla"}, "portal-pass")
	if err != nil {
		t.Fatalf("CreateClientWithLog: %v", err)
	}
	if created.ID != "c9" {
		t.Fatalf("expected remote-assigned id, got %q", created.ID)
	}
	if created.CredentialHash == "" || created.CredentialSalt == "" {
		t.Fatalf("expected credential hashed before send")
	}
	if st.Snapshot().ClientByID("c9") == nil {
		t.Fatalf("created client not in store")
	}
}

func TestCreateClientRemoteFailureLeavesStoreUntouched(t *testing.T) {
	rc, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	st := store.New(nil, logger.Nop())
	engine := New(st, rc, nil, logger.Nop())
	before := st.Snapshot()

	_, err := engine.CreateClientWithLog(context.Background(), model.Client{Name: "Carla"}, "")
	var transportErr *remote.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if st.Snapshot() != before {
		t.Fatalf("store must stay untouched on remote failure")
	}
}

func TestCreateVehicleRequiresLiveOwner(t *testing.T) {
	rc, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("remote must not be called for orphan vehicle")
	}))
	defer srv.Close()

	st := store.New(nil, logger.Nop())
	engine := New(st, rc, nil, logger.Nop())

	_, err := engine.CreateVehicleWithLog(context.Background(), model.Vehicle{ClientID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
