package store

import (
	"testing"
	"time"

	"github.com/TallerDrive/TallerDrive/internal/model"
)

func TestReduceUnknownMessageIsNoOp(t *testing.T) {
	s := NewState()
	next := Reduce(s, Message{Kind: Kind("BOGUS")})
	if next != s {
		t.Fatalf("expected same state reference for unknown message")
	}
	next = Reduce(s, Message{Kind: KindAddClient}) // payload 缺失
	if next != s {
		t.Fatalf("expected same state reference for invalid payload")
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := Reduce(NewState(), SetClients([]model.Client{{ID: "c1", Name: "Ana"}}))
	next := Reduce(s, UpdateClient(model.Client{ID: "c1", Name: "Ana Maria"}))

	if next == s {
		t.Fatalf("expected new state after update")
	}
	if s.Clients[0].Name != "Ana" {
		t.Fatalf("previous snapshot mutated: %q", s.Clients[0].Name)
	}
	if next.Clients[0].Name != "Ana Maria" {
		t.Fatalf("update not applied: %q", next.Clients[0].Name)
	}
	if next.Version != s.Version+1 {
		t.Fatalf("expected version bump, got %d -> %d", s.Version, next.Version)
	}
}

func TestReduceAddUpdateDelete(t *testing.T) {
	s := Reduce(NewState(), AddClient(model.Client{ID: "c1"}))
	s = Reduce(s, AddClient(model.Client{ID: "c2"}))
	if len(s.Clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(s.Clients))
	}

	// UPDATE_ 只替换 id 匹配的那一个
	s = Reduce(s, UpdateClient(model.Client{ID: "c2", Name: "Beto"}))
	if s.Clients[0].Name != "" || s.Clients[1].Name != "Beto" {
		t.Fatalf("update touched wrong entity")
	}

	s = Reduce(s, DeleteClient("c1"))
	if len(s.Clients) != 1 || s.Clients[0].ID != "c2" {
		t.Fatalf("delete removed wrong entity")
	}
}

func TestReduceDeleteMissingIDIsNoOp(t *testing.T) {
	s := Reduce(NewState(), AddClient(model.Client{ID: "c1"}))
	// 未命中的删除是严格 no-op：同一引用，不涨版本
	if next := Reduce(s, DeleteClient("ghost")); next != s {
		t.Fatalf("expected same state reference for missing client delete")
	}
	if next := Reduce(s, DeleteVehicle("ghost")); next != s {
		t.Fatalf("expected same state reference for missing vehicle delete")
	}
	if next := Reduce(s, DeleteWorkOrder("ghost")); next != s {
		t.Fatalf("expected same state reference for missing work order delete")
	}
}

func TestAddThenLookupReturnsEqualRecord(t *testing.T) {
	c := model.Client{ID: "c1", Name: "Ana", Phone: "9999-0000", Email: "ana@example.com"}
	s := Reduce(NewState(), AddClient(c))

	got := s.ClientByID("c1")
	if got == nil {
		t.Fatalf("expected client found after add")
	}
	if *got != c {
		t.Fatalf("expected value-equal record, got %+v", *got)
	}
}

func TestReduceLoginLogout(t *testing.T) {
	sess := model.Session{User: model.User{ID: "u1"}, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	s := Reduce(NewState(), Login(sess))
	if s.Session == nil || s.Session.User.ID != "u1" {
		t.Fatalf("expected session set")
	}
	s = Reduce(s, Logout())
	if s.Session != nil {
		t.Fatalf("expected session cleared")
	}
}

func TestReduceApplyTransactionAtomic(t *testing.T) {
	s := NewState()
	s = Reduce(s, SetClients([]model.Client{{ID: "c1"}, {ID: "c2"}}))
	s = Reduce(s, SetVehicles([]model.Vehicle{{ID: "v1", ClientID: "c1"}, {ID: "v2", ClientID: "c2"}}))
	s = Reduce(s, SetWorkOrders([]model.WorkOrder{
		{ID: "w1", VehicleID: "v1", ClientID: "c1"},
		{ID: "w2", VehicleID: "v2", ClientID: "c2"},
	}))
	s = Reduce(s, SetAppointments([]model.Appointment{{ID: "a1", ClientID: "c1", VehicleID: "v1"}}))

	next := Reduce(s, ApplyTransaction(Transaction{
		RemoveClientIDs:      []string{"c1"},
		RemoveVehicleIDs:     []string{"v1"},
		RemoveWorkOrderIDs:   []string{"w1"},
		RemoveAppointmentIDs: []string{"a1"},
		PutWorkOrders:        []model.WorkOrder{{ID: "w2", VehicleID: "v2", ClientID: "c2", Status: model.WorkOrderCompleted}},
		AddInvoices:          []model.Invoice{{ID: "i1", WorkOrderID: "w2"}},
	}))

	if next.Version != s.Version+1 {
		t.Fatalf("expected exactly one version bump for the whole diff")
	}
	if len(next.Clients) != 1 || next.Clients[0].ID != "c2" {
		t.Fatalf("client not removed")
	}
	if len(next.Vehicles) != 1 || next.Vehicles[0].ID != "v2" {
		t.Fatalf("vehicle not removed")
	}
	if len(next.WorkOrders) != 1 || next.WorkOrders[0].Status != model.WorkOrderCompleted {
		t.Fatalf("work order diff not applied")
	}
	if len(next.Appointments) != 0 {
		t.Fatalf("appointment not removed")
	}
	if len(next.Invoices) != 1 || next.Invoices[0].ID != "i1" {
		t.Fatalf("invoice not added")
	}
	// 旧快照保持原样
	if len(s.Clients) != 2 || len(s.Invoices) != 0 {
		t.Fatalf("previous snapshot mutated by transaction")
	}
}

func TestReduceEmptyTransactionIsNoOp(t *testing.T) {
	s := NewState()
	if next := Reduce(s, ApplyTransaction(Transaction{})); next != s {
		t.Fatalf("expected empty transaction to be a strict no-op")
	}
}
