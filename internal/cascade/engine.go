package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TallerDrive/TallerDrive/internal/audit"
	"github.com/TallerDrive/TallerDrive/internal/common/logger"
	"github.com/TallerDrive/TallerDrive/internal/model"
	"github.com/TallerDrive/TallerDrive/internal/query"
	"github.com/TallerDrive/TallerDrive/internal/remote"
	"github.com/TallerDrive/TallerDrive/internal/store"
	"github.com/google/uuid"
)

// ErrNotFound 复合操作引用的实体已不存在。
// 不静默吞掉：调用方拿到可判定的错误，同时 Store 保持原样。
var ErrNotFound = errors.New("referenced entity not found")

// ErrAlreadyCompleted 工单已经完工。重复的完工请求不再流转、不再开票。
var ErrAlreadyCompleted = errors.New("work order already completed")

// Engine 级联变更引擎：每个复合操作都是对 Store 的一次"逻辑事务"。
// 实现方式：在同一个旧快照上把整套 diff 算好，
// 再以单条 APPLY_TRANSACTION 消息一次性应用——读侧永远看不到部分删除的中间态。
type Engine struct {
	store  *store.Store
	remote *remote.Client
	audit  *audit.Emitter
	log    logger.Logger
}

// New 创建引擎。remote / audit 可为 nil（测试或离线场景）。
func New(st *store.Store, rc *remote.Client, em *audit.Emitter, log logger.Logger) *Engine {
	return &Engine{store: st, remote: rc, audit: em, log: log}
}

// DeleteClientWithRelations 删除客户及其全部关联：
// 名下每辆车（连同车辆的工单/预约）、客户直接关联的工单，最后是客户本身。
func (e *Engine) DeleteClientWithRelations(ctx context.Context, clientID string) error {
	if e == nil || e.store == nil {
		return fmt.Errorf("engine not initialized")
	}
	snap := e.store.Snapshot()
	client := snap.ClientByID(clientID)
	if client == nil {
		e.warnf("delete client: %s not found, nothing to do", clientID)
		return fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}

	txn := store.Transaction{RemoveClientIDs: []string{clientID}}

	removeWorkOrder := make(map[string]struct{})
	removeAppointment := make(map[string]struct{})
	for _, v := range query.VehiclesOf(snap, clientID) {
		txn.RemoveVehicleIDs = append(txn.RemoveVehicleIDs, v.ID)
		// 车辆级联：车下的工单与预约一并带走
		for _, w := range query.WorkOrdersOfVehicle(snap, v.ID) {
			if _, ok := removeWorkOrder[w.ID]; !ok {
				removeWorkOrder[w.ID] = struct{}{}
				txn.RemoveWorkOrderIDs = append(txn.RemoveWorkOrderIDs, w.ID)
			}
		}
		for _, a := range query.AppointmentsOfVehicle(snap, v.ID) {
			if _, ok := removeAppointment[a.ID]; !ok {
				removeAppointment[a.ID] = struct{}{}
				txn.RemoveAppointmentIDs = append(txn.RemoveAppointmentIDs, a.ID)
			}
		}
	}
	// 客户直接关联的工单/预约（可能挂在别的车上或没有车）
	for _, w := range query.WorkOrdersOfClient(snap, clientID) {
		if _, ok := removeWorkOrder[w.ID]; !ok {
			removeWorkOrder[w.ID] = struct{}{}
			txn.RemoveWorkOrderIDs = append(txn.RemoveWorkOrderIDs, w.ID)
		}
	}
	for _, a := range query.AppointmentsOfClient(snap, clientID) {
		if _, ok := removeAppointment[a.ID]; !ok {
			removeAppointment[a.ID] = struct{}{}
			txn.RemoveAppointmentIDs = append(txn.RemoveAppointmentIDs, a.ID)
		}
	}

	e.store.Dispatch(ctx, store.ApplyTransaction(txn))

	e.emit(ctx, audit.Entry{
		Action:      "delete",
		Entity:      "client",
		EntityID:    clientID,
		Description: fmt.Sprintf("Deleted client %q with all related records", client.Name),
		Details: map[string]any{
			"clientName":          client.Name,
			"vehiclesDeleted":     len(txn.RemoveVehicleIDs),
			"workOrdersDeleted":   len(txn.RemoveWorkOrderIDs),
			"appointmentsDeleted": len(txn.RemoveAppointmentIDs),
		},
		Severity: audit.SeverityHigh,
	})
	e.RefreshStats(ctx)
	return nil
}

// DeleteVehicleWithRelations 删除车辆及其工单/预约。
func (e *Engine) DeleteVehicleWithRelations(ctx context.Context, vehicleID string) error {
	if e == nil || e.store == nil {
		return fmt.Errorf("engine not initialized")
	}
	snap := e.store.Snapshot()
	vehicle := snap.VehicleByID(vehicleID)
	if vehicle == nil {
		e.warnf("delete vehicle: %s not found, nothing to do", vehicleID)
		return fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}

	txn := store.Transaction{RemoveVehicleIDs: []string{vehicleID}}
	for _, w := range query.WorkOrdersOfVehicle(snap, vehicleID) {
		txn.RemoveWorkOrderIDs = append(txn.RemoveWorkOrderIDs, w.ID)
	}
	for _, a := range query.AppointmentsOfVehicle(snap, vehicleID) {
		txn.RemoveAppointmentIDs = append(txn.RemoveAppointmentIDs, a.ID)
	}

	e.store.Dispatch(ctx, store.ApplyTransaction(txn))

	e.emit(ctx, audit.Entry{
		Action:      "delete",
		Entity:      "vehicle",
		EntityID:    vehicleID,
		Description: fmt.Sprintf("Deleted vehicle %s %s (%s) with related records", vehicle.Brand, vehicle.Model, vehicle.Plate),
		Details: map[string]any{
			"workOrdersDeleted":   len(txn.RemoveWorkOrderIDs),
			"appointmentsDeleted": len(txn.RemoveAppointmentIDs),
		},
		Severity: audit.SeverityHigh,
	})
	e.RefreshStats(ctx)
	return nil
}

// CompleteWorkOrderWithInvoice 完工 + 开票：
// 工单走状态机流转到 completed，同一事务里合成一张发票（ISV 15%）。
// 一单一票：已完工的工单直接拒绝，不会产生第二张发票。
func (e *Engine) CompleteWorkOrderWithInvoice(ctx context.Context, workOrderID string) (*model.Invoice, error) {
	if e == nil || e.store == nil {
		return nil, fmt.Errorf("engine not initialized")
	}
	snap := e.store.Snapshot()
	wo := snap.WorkOrderByID(workOrderID)
	if wo == nil {
		e.warnf("complete work order: %s not found, nothing to do", workOrderID)
		return nil, fmt.Errorf("work order %s: %w", workOrderID, ErrNotFound)
	}
	if wo.Status == model.WorkOrderCompleted {
		e.warnf("complete work order: %s already completed, nothing to do", workOrderID)
		return nil, fmt.Errorf("work order %s: %w", workOrderID, ErrAlreadyCompleted)
	}

	now := time.Now()
	updated := *wo
	if err := model.ApplyWorkOrderTransition(&updated, model.WorkOrderCompleted, now); err != nil {
		return nil, err
	}
	updated.PaymentStatus = model.PaymentPending

	subtotal := wo.TotalCost
	tax := model.InvoiceTax(subtotal)
	invoice := model.Invoice{
		ID:          uuid.NewString(),
		Number:      newInvoiceNumber(now),
		ClientID:    wo.ClientID,
		WorkOrderID: wo.ID,
		Items: []model.InvoiceItem{{
			Description: fmt.Sprintf("Work order %s: %s", wo.ID, wo.Description),
			Quantity:    1,
			UnitPrice:   subtotal,
			Amount:      subtotal,
		}},
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal + tax,
		Status:    model.InvoicePending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	e.store.Dispatch(ctx, store.ApplyTransaction(store.Transaction{
		PutWorkOrders: []model.WorkOrder{updated},
		AddInvoices:   []model.Invoice{invoice},
	}))

	e.emit(ctx, audit.Entry{
		Action:      "complete",
		Entity:      "work_order",
		EntityID:    wo.ID,
		Description: fmt.Sprintf("Completed work order %s, issued invoice %s", wo.ID, invoice.Number),
		Details: map[string]any{
			"invoiceId":     invoice.ID,
			"invoiceNumber": invoice.Number,
			"invoiceTotal":  invoice.Total,
		},
		Severity: audit.SeverityHigh,
	})
	e.RefreshStats(ctx)
	return &invoice, nil
}

// CreateClientWithLog 远端先写，成功才进本地 Store。
// credential 非空时在本地加盐哈希后随请求送出（不落明文）。
func (e *Engine) CreateClientWithLog(ctx context.Context, in model.Client, credential string) (*model.Client, error) {
	if e == nil || e.store == nil || e.remote == nil {
		return nil, fmt.Errorf("engine not initialized")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("client name required")
	}
	if credential != "" {
		salt, err := model.GenerateSaltHex()
		if err != nil {
			return nil, err
		}
		hash, err := model.HashCredential(credential, salt)
		if err != nil {
			return nil, err
		}
		in.CredentialSalt = salt
		in.CredentialHash = hash
	}

	created, err := e.remote.CreateClient(ctx, in)
	if err != nil {
		// 远端失败：Store 保持原样，错误向上透出
		return nil, err
	}

	e.store.Dispatch(ctx, store.AddClient(*created))
	e.emit(ctx, audit.Entry{
		Action:      "create",
		Entity:      "client",
		EntityID:    created.ID,
		Description: fmt.Sprintf("Created client %q", created.Name),
		Severity:    audit.SeverityMedium,
	})
	e.RefreshStats(ctx)
	return created, nil
}

// UpdateClientWithLog 远端先写，成功才更新本地 Store。
func (e *Engine) UpdateClientWithLog(ctx context.Context, in model.Client) (*model.Client, error) {
	if e == nil || e.store == nil || e.remote == nil {
		return nil, fmt.Errorf("engine not initialized")
	}
	if in.ID == "" {
		return nil, fmt.Errorf("client id required")
	}

	updated, err := e.remote.UpdateClient(ctx, in)
	if err != nil {
		return nil, err
	}

	e.store.Dispatch(ctx, store.UpdateClient(*updated))
	e.emit(ctx, audit.Entry{
		Action:      "update",
		Entity:      "client",
		EntityID:    updated.ID,
		Description: fmt.Sprintf("Updated client %q", updated.Name),
		Severity:    audit.SeverityMedium,
	})
	e.RefreshStats(ctx)
	return updated, nil
}

// CreateVehicleWithLog 远端先写车辆，成功后进 Store。
// 车主必须在当前快照中存在，避免造出孤儿外键。
func (e *Engine) CreateVehicleWithLog(ctx context.Context, in model.Vehicle) (*model.Vehicle, error) {
	if e == nil || e.store == nil || e.remote == nil {
		return nil, fmt.Errorf("engine not initialized")
	}
	if in.ClientID == "" {
		return nil, fmt.Errorf("vehicle clientId required")
	}
	if e.store.Snapshot().ClientByID(in.ClientID) == nil {
		return nil, fmt.Errorf("client %s: %w", in.ClientID, ErrNotFound)
	}

	created, err := e.remote.CreateVehicle(ctx, in)
	if err != nil {
		return nil, err
	}

	e.store.Dispatch(ctx, store.AddVehicle(*created))
	e.emit(ctx, audit.Entry{
		Action:      "create",
		Entity:      "vehicle",
		EntityID:    created.ID,
		Description: fmt.Sprintf("Created vehicle %s %s (%s)", created.Brand, created.Model, created.Plate),
		Severity:    audit.SeverityMedium,
	})
	e.RefreshStats(ctx)
	return created, nil
}

// RefreshStats 重算仪表盘统计并写回 Store。
func (e *Engine) RefreshStats(ctx context.Context) {
	if e == nil || e.store == nil {
		return
	}
	stats := query.ComputeDashboardStats(e.store.Snapshot(), time.Now())
	e.store.Dispatch(ctx, store.RefreshDashboardStats(stats))
}

// emit 填充操作者信息（当前会话）后投递审计。
func (e *Engine) emit(ctx context.Context, entry audit.Entry) {
	if e.audit == nil {
		return
	}
	if sess := e.store.Snapshot().Session; sess != nil {
		entry.UserID = sess.User.ID
		entry.UserName = sess.User.Name
		entry.UserRole = sess.User.Role
	} else {
		entry.UserID = "system"
		entry.UserName = "system"
	}
	e.audit.Emit(ctx, entry)
}

// newInvoiceNumber 生成人读友好的发票号。
func newInvoiceNumber(now time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), short)
}

func (e *Engine) warnf(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Warnf(format, args...)
	}
}
