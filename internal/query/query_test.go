package query

import (
	"testing"
	"time"

	"github.com/TallerDrive/TallerDrive/internal/model"
	"github.com/TallerDrive/TallerDrive/internal/store"
)

func fixtureState() *store.State {
	s := store.NewState()
	s = store.Reduce(s, store.SetClients([]model.Client{{ID: "c1"}, {ID: "c2"}}))
	s = store.Reduce(s, store.SetVehicles([]model.Vehicle{
		{ID: "v1", ClientID: "c1"},
		{ID: "v2", ClientID: "c1"},
		{ID: "v3", ClientID: "c2"},
	}))
	s = store.Reduce(s, store.SetWorkOrders([]model.WorkOrder{
		{ID: "w1", VehicleID: "v1", ClientID: "c1", Status: model.WorkOrderPending},
		{ID: "w2", VehicleID: "v2", ClientID: "c1", Status: model.WorkOrderCompleted},
		{ID: "w3", VehicleID: "v3", ClientID: "c2", Status: model.WorkOrderInProgress},
	}))
	s = store.Reduce(s, store.SetInvoices([]model.Invoice{
		{ID: "i1", ClientID: "c1", Total: 10000, Status: model.InvoicePaid},    // 100.00 已付
		{ID: "i2", ClientID: "c1", Total: 5000, Status: model.InvoicePending},  // 50.00 待付
		{ID: "i3", ClientID: "c1", Total: 7000, Status: model.InvoiceCancelled},
		{ID: "i4", ClientID: "c2", Total: 9000, Status: model.InvoicePaid},
	}))
	return s
}

func TestRelationFilters(t *testing.T) {
	s := fixtureState()

	if got := VehiclesOf(s, "c1"); len(got) != 2 {
		t.Fatalf("expected 2 vehicles for c1, got %d", len(got))
	}
	if got := WorkOrdersOfClient(s, "c1"); len(got) != 2 {
		t.Fatalf("expected 2 work orders for c1, got %d", len(got))
	}
	if got := WorkOrdersOfVehicle(s, "v3"); len(got) != 1 || got[0].ID != "w3" {
		t.Fatalf("unexpected work orders for v3: %+v", got)
	}
	if got := VehiclesOf(s, "nope"); got != nil {
		t.Fatalf("expected nil for unknown client, got %+v", got)
	}
}

func TestQueriesArePureOnSameSnapshot(t *testing.T) {
	s := fixtureState()
	a := FinancialStatusOf(s, "c1")
	b := FinancialStatusOf(s, "c1")
	if a != b {
		t.Fatalf("expected identical results on same snapshot: %+v vs %+v", a, b)
	}
}

func TestFinancialStatusOf(t *testing.T) {
	s := fixtureState()
	fs := FinancialStatusOf(s, "c1")

	if fs.TotalSpent != 10000 {
		t.Fatalf("expected total spent 10000, got %d", fs.TotalSpent)
	}
	if fs.PendingDebt != 5000 {
		t.Fatalf("expected pending debt 5000, got %d", fs.PendingDebt)
	}
	if !fs.HasOutstandingBalance {
		t.Fatalf("expected outstanding balance flag set")
	}
	if fs.InvoiceCount != 3 || fs.WorkOrderCount != 2 {
		t.Fatalf("unexpected counts: %+v", fs)
	}

	// 无欠款客户
	fs2 := FinancialStatusOf(s, "c2")
	if fs2.PendingDebt != 0 || fs2.HasOutstandingBalance {
		t.Fatalf("expected no outstanding balance for c2: %+v", fs2)
	}
}

func TestComputeDashboardStats(t *testing.T) {
	s := fixtureState()
	now := time.Now()
	stats := ComputeDashboardStats(s, now)

	if stats.TotalClients != 2 || stats.TotalVehicles != 3 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.PendingWorkOrders != 2 { // pending + in-progress
		t.Fatalf("expected 2 pending work orders, got %d", stats.PendingWorkOrders)
	}
	if stats.CompletedWorkOrders != 1 {
		t.Fatalf("expected 1 completed work order, got %d", stats.CompletedWorkOrders)
	}
	if stats.Revenue != 19000 {
		t.Fatalf("expected revenue 19000, got %d", stats.Revenue)
	}
	if stats.PendingInvoices != 1 || stats.OutstandingDebt != 5000 {
		t.Fatalf("unexpected pending invoice stats: %+v", stats)
	}
	if !stats.RefreshedAt.Equal(now) {
		t.Fatalf("expected refreshedAt stamped")
	}
}
