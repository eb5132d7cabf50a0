package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/TallerDrive/TallerDrive/internal/model"
	"github.com/TallerDrive/TallerDrive/internal/query"
)

// clientPayload 创建/更新客户的请求体。credential 仅在创建客户门户凭据时出现，
// 网关侧加盐哈希后下发，明文不进 Store 也不进缓存。
type clientPayload struct {
	model.Client
	Credential string `json:"credential,omitempty"`
}

func (g *Gateway) handleClients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.writeOK(w, http.StatusOK, g.store.Snapshot().Clients)
	case http.MethodPost:
		var in clientPayload
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			g.writeBadRequest(w, "malformed request body")
			return
		}
		created, err := g.engine.CreateClientWithLog(r.Context(), in.Client, in.Credential)
		if err != nil {
			g.writeErr(w, err)
			return
		}
		g.writeOK(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w)
	}
}

// handleClientByID 处理 /api/clients/{id} 及其子资源：
//
//	PUT    /api/clients/{id}
//	DELETE /api/clients/{id}                    级联删除
//	GET    /api/clients/{id}/profile            关联全集
//	GET    /api/clients/{id}/financial-status   财务汇总
func (g *Gateway) handleClientByID(w http.ResponseWriter, r *http.Request) {
	id, sub := splitResourcePath(r.URL.Path, "/api/clients/")
	if id == "" {
		g.writeBadRequest(w, "client id required")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodPut:
		var in clientPayload
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			g.writeBadRequest(w, "malformed request body")
			return
		}
		in.ID = id
		updated, err := g.engine.UpdateClientWithLog(r.Context(), in.Client)
		if err != nil {
			g.writeErr(w, err)
			return
		}
		g.writeOK(w, http.StatusOK, updated)

	case sub == "" && r.Method == http.MethodDelete:
		if err := g.engine.DeleteClientWithRelations(r.Context(), id); err != nil {
			g.writeErr(w, err)
			return
		}
		g.writeOK(w, http.StatusOK, nil)

	case sub == "profile" && r.Method == http.MethodGet:
		snap := g.store.Snapshot()
		client := snap.ClientByID(id)
		if client == nil {
			g.writeErr(w, notFoundErr("client", id))
			return
		}
		g.writeOK(w, http.StatusOK, map[string]any{
			"client":       client,
			"vehicles":     query.VehiclesOf(snap, id),
			"workOrders":   query.WorkOrdersOfClient(snap, id),
			"appointments": query.AppointmentsOfClient(snap, id),
			"invoices":     query.InvoicesOf(snap, id),
			"quotations":   query.QuotationsOf(snap, id),
			"reminders":    query.RemindersOf(snap, id),
		})

	case sub == "financial-status" && r.Method == http.MethodGet:
		snap := g.store.Snapshot()
		if snap.ClientByID(id) == nil {
			g.writeErr(w, notFoundErr("client", id))
			return
		}
		g.writeOK(w, http.StatusOK, query.FinancialStatusOf(snap, id))

	default:
		methodNotAllowed(w)
	}
}

func (g *Gateway) handleVehicles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.writeOK(w, http.StatusOK, g.store.Snapshot().Vehicles)
	case http.MethodPost:
		var in model.Vehicle
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			g.writeBadRequest(w, "malformed request body")
			return
		}
		created, err := g.engine.CreateVehicleWithLog(r.Context(), in)
		if err != nil {
			g.writeErr(w, err)
			return
		}
		g.writeOK(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w)
	}
}

// handleVehicleByID 处理 /api/vehicles/{id}：
//
//	DELETE /api/vehicles/{id}              级联删除
//	GET    /api/vehicles/{id}/work-orders
func (g *Gateway) handleVehicleByID(w http.ResponseWriter, r *http.Request) {
	id, sub := splitResourcePath(r.URL.Path, "/api/vehicles/")
	if id == "" {
		g.writeBadRequest(w, "vehicle id required")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodDelete:
		if err := g.engine.DeleteVehicleWithRelations(r.Context(), id); err != nil {
			g.writeErr(w, err)
			return
		}
		g.writeOK(w, http.StatusOK, nil)

	case sub == "work-orders" && r.Method == http.MethodGet:
		snap := g.store.Snapshot()
		if snap.VehicleByID(id) == nil {
			g.writeErr(w, notFoundErr("vehicle", id))
			return
		}
		g.writeOK(w, http.StatusOK, query.WorkOrdersOfVehicle(snap, id))

	default:
		methodNotAllowed(w)
	}
}

// handleWorkOrderByID 处理 /api/work-orders/{id}/complete：完工 + 开票。
func (g *Gateway) handleWorkOrderByID(w http.ResponseWriter, r *http.Request) {
	id, sub := splitResourcePath(r.URL.Path, "/api/work-orders/")
	if id == "" {
		g.writeBadRequest(w, "work order id required")
		return
	}

	switch {
	case sub == "complete" && r.Method == http.MethodPost:
		invoice, err := g.engine.CompleteWorkOrderWithInvoice(r.Context(), id)
		if err != nil {
			g.writeErr(w, err)
			return
		}
		g.writeOK(w, http.StatusOK, invoice)
	default:
		methodNotAllowed(w)
	}
}

// splitResourcePath 把 "/api/clients/{id}/sub" 拆成 (id, sub)。
func splitResourcePath(path, prefix string) (id, sub string) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		sub = parts[1]
	}
	return id, sub
}
