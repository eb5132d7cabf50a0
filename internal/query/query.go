package query

import (
	"time"

	"github.com/TallerDrive/TallerDrive/internal/model"
	"github.com/TallerDrive/TallerDrive/internal/store"
)

// 只读关系派生层：对快照按外键过滤 / 做财务汇总。
// 所有函数都是纯函数，不触发任何 mutation 或 I/O；
// 同一快照上调用两次结果值相等。
//
// 刻意 O(n) 线性扫描、不建二级索引：车店规模的数据量下收益为零，
// 引入索引反而会改变"快照即事实"的语义。这是取舍，不是待办。

// VehiclesOf 某客户名下全部车辆。
func VehiclesOf(s *store.State, clientID string) []model.Vehicle {
	if s == nil {
		return nil
	}
	var out []model.Vehicle
	for _, v := range s.Vehicles {
		if v.ClientID == clientID {
			out = append(out, v)
		}
	}
	return out
}

// WorkOrdersOfClient 某客户直接关联的工单。
func WorkOrdersOfClient(s *store.State, clientID string) []model.WorkOrder {
	if s == nil {
		return nil
	}
	var out []model.WorkOrder
	for _, w := range s.WorkOrders {
		if w.ClientID == clientID {
			out = append(out, w)
		}
	}
	return out
}

// WorkOrdersOfVehicle 某车辆的工单。
func WorkOrdersOfVehicle(s *store.State, vehicleID string) []model.WorkOrder {
	if s == nil {
		return nil
	}
	var out []model.WorkOrder
	for _, w := range s.WorkOrders {
		if w.VehicleID == vehicleID {
			out = append(out, w)
		}
	}
	return out
}

// InvoicesOf 某客户的发票。
func InvoicesOf(s *store.State, clientID string) []model.Invoice {
	if s == nil {
		return nil
	}
	var out []model.Invoice
	for _, inv := range s.Invoices {
		if inv.ClientID == clientID {
			out = append(out, inv)
		}
	}
	return out
}

// PaymentsOf 某张发票的收款记录。
func PaymentsOf(s *store.State, invoiceID string) []model.Payment {
	if s == nil {
		return nil
	}
	var out []model.Payment
	for _, p := range s.Payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out
}

// AppointmentsOfClient 某客户的预约。
func AppointmentsOfClient(s *store.State, clientID string) []model.Appointment {
	if s == nil {
		return nil
	}
	var out []model.Appointment
	for _, a := range s.Appointments {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out
}

// AppointmentsOfVehicle 某车辆的预约。
func AppointmentsOfVehicle(s *store.State, vehicleID string) []model.Appointment {
	if s == nil {
		return nil
	}
	var out []model.Appointment
	for _, a := range s.Appointments {
		if a.VehicleID == vehicleID {
			out = append(out, a)
		}
	}
	return out
}

// QuotationsOf 某客户的报价单。
func QuotationsOf(s *store.State, clientID string) []model.Quotation {
	if s == nil {
		return nil
	}
	var out []model.Quotation
	for _, q := range s.Quotations {
		if q.ClientID == clientID {
			out = append(out, q)
		}
	}
	return out
}

// RemindersOf 某客户的提醒。
func RemindersOf(s *store.State, clientID string) []model.Reminder {
	if s == nil {
		return nil
	}
	var out []model.Reminder
	for _, r := range s.Reminders {
		if r.ClientID == clientID {
			out = append(out, r)
		}
	}
	return out
}

// TotalSpent 某客户已付发票（status == paid）的 total 合计（单位：分）。
func TotalSpent(s *store.State, clientID string) int64 {
	var sum int64
	for _, inv := range InvoicesOf(s, clientID) {
		if inv.Status == model.InvoicePaid {
			sum += inv.Total
		}
	}
	return sum
}

// PendingDebt 某客户待付发票（status == pending）的 total 合计（单位：分）。
func PendingDebt(s *store.State, clientID string) int64 {
	var sum int64
	for _, inv := range InvoicesOf(s, clientID) {
		if inv.Status == model.InvoicePending {
			sum += inv.Total
		}
	}
	return sum
}

// FinancialStatus 客户财务状况汇总。
type FinancialStatus struct {
	TotalSpent            int64 `json:"totalSpent"`
	PendingDebt           int64 `json:"pendingDebt"`
	InvoiceCount          int   `json:"invoiceCount"`
	WorkOrderCount        int   `json:"workOrderCount"`
	HasOutstandingBalance bool  `json:"hasOutstandingBalance"`
}

// FinancialStatusOf 汇总某客户的消费 / 欠款 / 单据数量。
func FinancialStatusOf(s *store.State, clientID string) FinancialStatus {
	pending := PendingDebt(s, clientID)
	return FinancialStatus{
		TotalSpent:            TotalSpent(s, clientID),
		PendingDebt:           pending,
		InvoiceCount:          len(InvoicesOf(s, clientID)),
		WorkOrderCount:        len(WorkOrdersOfClient(s, clientID)),
		HasOutstandingBalance: pending > 0,
	}
}

// ComputeDashboardStats 重算仪表盘统计（供 REFRESH_DASHBOARD_STATS 使用）。
func ComputeDashboardStats(s *store.State, now time.Time) model.DashboardStats {
	stats := model.DashboardStats{RefreshedAt: now}
	if s == nil {
		return stats
	}
	stats.TotalClients = len(s.Clients)
	stats.TotalVehicles = len(s.Vehicles)
	for _, w := range s.WorkOrders {
		switch w.Status {
		case model.WorkOrderPending, model.WorkOrderInProgress:
			stats.PendingWorkOrders++
		case model.WorkOrderCompleted:
			stats.CompletedWorkOrders++
		}
	}
	for _, inv := range s.Invoices {
		switch inv.Status {
		case model.InvoicePaid:
			stats.Revenue += inv.Total
		case model.InvoicePending:
			stats.PendingInvoices++
			stats.OutstandingDebt += inv.Total
		}
	}
	return stats
}
