package store

import (
	"github.com/TallerDrive/TallerDrive/internal/model"
)

// Kind 标识一条 mutation 消息的类型（闭集，reducer 之外不可扩展）。
type Kind string

const (
	KindSetClients   Kind = "SET_CLIENTS"
	KindAddClient    Kind = "ADD_CLIENT"
	KindUpdateClient Kind = "UPDATE_CLIENT"
	KindDeleteClient Kind = "DELETE_CLIENT"

	KindSetVehicles   Kind = "SET_VEHICLES"
	KindAddVehicle    Kind = "ADD_VEHICLE"
	KindUpdateVehicle Kind = "UPDATE_VEHICLE"
	KindDeleteVehicle Kind = "DELETE_VEHICLE"

	KindSetWorkOrders   Kind = "SET_WORK_ORDERS"
	KindAddWorkOrder    Kind = "ADD_WORK_ORDER"
	KindUpdateWorkOrder Kind = "UPDATE_WORK_ORDER"
	KindDeleteWorkOrder Kind = "DELETE_WORK_ORDER"

	KindSetAppointments   Kind = "SET_APPOINTMENTS"
	KindAddAppointment    Kind = "ADD_APPOINTMENT"
	KindUpdateAppointment Kind = "UPDATE_APPOINTMENT"
	KindDeleteAppointment Kind = "DELETE_APPOINTMENT"

	KindSetInvoices   Kind = "SET_INVOICES"
	KindAddInvoice    Kind = "ADD_INVOICE"
	KindUpdateInvoice Kind = "UPDATE_INVOICE"
	KindDeleteInvoice Kind = "DELETE_INVOICE"

	KindSetPayments   Kind = "SET_PAYMENTS"
	KindAddPayment    Kind = "ADD_PAYMENT"
	KindUpdatePayment Kind = "UPDATE_PAYMENT"
	KindDeletePayment Kind = "DELETE_PAYMENT"

	KindSetQuotations   Kind = "SET_QUOTATIONS"
	KindAddQuotation    Kind = "ADD_QUOTATION"
	KindUpdateQuotation Kind = "UPDATE_QUOTATION"
	KindDeleteQuotation Kind = "DELETE_QUOTATION"

	KindSetReminders   Kind = "SET_REMINDERS"
	KindAddReminder    Kind = "ADD_REMINDER"
	KindUpdateReminder Kind = "UPDATE_REMINDER"
	KindDeleteReminder Kind = "DELETE_REMINDER"

	KindSetServiceTypes   Kind = "SET_SERVICE_TYPES"
	KindAddServiceType    Kind = "ADD_SERVICE_TYPE"
	KindUpdateServiceType Kind = "UPDATE_SERVICE_TYPE"
	KindDeleteServiceType Kind = "DELETE_SERVICE_TYPE"

	KindLogin  Kind = "LOGIN"
	KindLogout Kind = "LOGOUT"

	KindRefreshDashboardStats Kind = "REFRESH_DASHBOARD_STATS"

	// KindApplyTransaction 一次性应用预先算好的结构化 diff。
	// 级联删除 / 完工开票等复合操作必须走这一条消息，
	// 保证读侧看不到中间态（部分删除 / 只改单未开票）。
	KindApplyTransaction Kind = "APPLY_TRANSACTION"
)

// Transaction 复合操作的结构化 diff，作为一个原子单元被 reducer 应用。
type Transaction struct {
	RemoveClientIDs      []string
	RemoveVehicleIDs     []string
	RemoveWorkOrderIDs   []string
	RemoveAppointmentIDs []string

	PutWorkOrders []model.WorkOrder // upsert（按 id 替换，不存在则追加）
	AddInvoices   []model.Invoice
}

// Empty 判断 diff 是否为空（空 diff 不触发版本变更）。
func (t *Transaction) Empty() bool {
	if t == nil {
		return true
	}
	return len(t.RemoveClientIDs) == 0 &&
		len(t.RemoveVehicleIDs) == 0 &&
		len(t.RemoveWorkOrderIDs) == 0 &&
		len(t.RemoveAppointmentIDs) == 0 &&
		len(t.PutWorkOrders) == 0 &&
		len(t.AddInvoices) == 0
}

// Message 一条类型化 mutation。Kind 决定哪个 payload 字段有效。
type Message struct {
	Kind Kind

	// 单实体 payload（ADD_/UPDATE_）
	Client      *model.Client
	Vehicle     *model.Vehicle
	WorkOrder   *model.WorkOrder
	Appointment *model.Appointment
	Invoice     *model.Invoice
	Payment     *model.Payment
	Quotation   *model.Quotation
	Reminder    *model.Reminder
	ServiceType *model.ServiceType

	// 集合 payload（SET_）
	Clients      []model.Client
	Vehicles     []model.Vehicle
	WorkOrders   []model.WorkOrder
	Appointments []model.Appointment
	Invoices     []model.Invoice
	Payments     []model.Payment
	Quotations   []model.Quotation
	Reminders    []model.Reminder
	ServiceTypes []model.ServiceType

	// DELETE_ 目标 id
	ID string

	Session     *model.Session
	Stats       *model.DashboardStats
	Transaction *Transaction
}

// 常用消息构造器（避免调用侧手拼 Kind + 字段的组合错误）。

func SetClients(cs []model.Client) Message   { return Message{Kind: KindSetClients, Clients: cs} }
func AddClient(c model.Client) Message       { return Message{Kind: KindAddClient, Client: &c} }
func UpdateClient(c model.Client) Message    { return Message{Kind: KindUpdateClient, Client: &c} }
func DeleteClient(id string) Message         { return Message{Kind: KindDeleteClient, ID: id} }
func SetVehicles(vs []model.Vehicle) Message { return Message{Kind: KindSetVehicles, Vehicles: vs} }
func AddVehicle(v model.Vehicle) Message     { return Message{Kind: KindAddVehicle, Vehicle: &v} }
func UpdateVehicle(v model.Vehicle) Message  { return Message{Kind: KindUpdateVehicle, Vehicle: &v} }
func DeleteVehicle(id string) Message        { return Message{Kind: KindDeleteVehicle, ID: id} }

func SetWorkOrders(ws []model.WorkOrder) Message {
	return Message{Kind: KindSetWorkOrders, WorkOrders: ws}
}
func AddWorkOrder(w model.WorkOrder) Message { return Message{Kind: KindAddWorkOrder, WorkOrder: &w} }
func UpdateWorkOrder(w model.WorkOrder) Message {
	return Message{Kind: KindUpdateWorkOrder, WorkOrder: &w}
}
func DeleteWorkOrder(id string) Message { return Message{Kind: KindDeleteWorkOrder, ID: id} }

func SetAppointments(as []model.Appointment) Message {
	return Message{Kind: KindSetAppointments, Appointments: as}
}
func AddAppointment(a model.Appointment) Message {
	return Message{Kind: KindAddAppointment, Appointment: &a}
}
func UpdateAppointment(a model.Appointment) Message {
	return Message{Kind: KindUpdateAppointment, Appointment: &a}
}
func DeleteAppointment(id string) Message { return Message{Kind: KindDeleteAppointment, ID: id} }

func SetInvoices(is []model.Invoice) Message { return Message{Kind: KindSetInvoices, Invoices: is} }
func AddInvoice(i model.Invoice) Message     { return Message{Kind: KindAddInvoice, Invoice: &i} }
func UpdateInvoice(i model.Invoice) Message  { return Message{Kind: KindUpdateInvoice, Invoice: &i} }
func DeleteInvoice(id string) Message        { return Message{Kind: KindDeleteInvoice, ID: id} }

func SetPayments(ps []model.Payment) Message { return Message{Kind: KindSetPayments, Payments: ps} }
func AddPayment(p model.Payment) Message     { return Message{Kind: KindAddPayment, Payment: &p} }
func UpdatePayment(p model.Payment) Message  { return Message{Kind: KindUpdatePayment, Payment: &p} }
func DeletePayment(id string) Message        { return Message{Kind: KindDeletePayment, ID: id} }

func SetQuotations(qs []model.Quotation) Message {
	return Message{Kind: KindSetQuotations, Quotations: qs}
}
func AddQuotation(q model.Quotation) Message { return Message{Kind: KindAddQuotation, Quotation: &q} }
func UpdateQuotation(q model.Quotation) Message {
	return Message{Kind: KindUpdateQuotation, Quotation: &q}
}
func DeleteQuotation(id string) Message { return Message{Kind: KindDeleteQuotation, ID: id} }

func SetReminders(rs []model.Reminder) Message {
	return Message{Kind: KindSetReminders, Reminders: rs}
}
func AddReminder(r model.Reminder) Message    { return Message{Kind: KindAddReminder, Reminder: &r} }
func UpdateReminder(r model.Reminder) Message { return Message{Kind: KindUpdateReminder, Reminder: &r} }
func DeleteReminder(id string) Message        { return Message{Kind: KindDeleteReminder, ID: id} }

func SetServiceTypes(ss []model.ServiceType) Message {
	return Message{Kind: KindSetServiceTypes, ServiceTypes: ss}
}
func AddServiceType(s model.ServiceType) Message {
	return Message{Kind: KindAddServiceType, ServiceType: &s}
}
func UpdateServiceType(s model.ServiceType) Message {
	return Message{Kind: KindUpdateServiceType, ServiceType: &s}
}
func DeleteServiceType(id string) Message { return Message{Kind: KindDeleteServiceType, ID: id} }

func Login(s model.Session) Message { return Message{Kind: KindLogin, Session: &s} }
func Logout() Message               { return Message{Kind: KindLogout} }

func RefreshDashboardStats(st model.DashboardStats) Message {
	return Message{Kind: KindRefreshDashboardStats, Stats: &st}
}

func ApplyTransaction(t Transaction) Message {
	return Message{Kind: KindApplyTransaction, Transaction: &t}
}
