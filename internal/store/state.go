package store

import (
	"github.com/TallerDrive/TallerDrive/internal/model"
)

// State 是全部规范化集合的单一版本化快照。
// 读侧（查询层 / UI）只拿快照；写入只能经由 Reduce，一次一条消息。
type State struct {
	Version int64 // 每次有效变更 +1，便于调试与缓存失效判断

	Session *model.Session // nil 即未登录

	Clients      []model.Client
	Vehicles     []model.Vehicle
	WorkOrders   []model.WorkOrder
	Appointments []model.Appointment
	Invoices     []model.Invoice
	Payments     []model.Payment
	Quotations   []model.Quotation
	Reminders    []model.Reminder
	ServiceTypes []model.ServiceType

	Stats *model.DashboardStats
}

// NewState 返回空快照。
func NewState() *State {
	return &State{}
}

// shallowCopy 复制快照本身（集合切片头共享，被改动的集合由 reducer 单独替换）。
func (s *State) shallowCopy() *State {
	cp := *s
	cp.Version = s.Version + 1
	return &cp
}

// ClientByID 按 id 查找客户；未找到返回 nil（查询不报错）。
func (s *State) ClientByID(id string) *model.Client {
	if s == nil {
		return nil
	}
	for i := range s.Clients {
		if s.Clients[i].ID == id {
			c := s.Clients[i]
			return &c
		}
	}
	return nil
}

// VehicleByID 按 id 查找车辆。
func (s *State) VehicleByID(id string) *model.Vehicle {
	if s == nil {
		return nil
	}
	for i := range s.Vehicles {
		if s.Vehicles[i].ID == id {
			v := s.Vehicles[i]
			return &v
		}
	}
	return nil
}

// WorkOrderByID 按 id 查找工单。
func (s *State) WorkOrderByID(id string) *model.WorkOrder {
	if s == nil {
		return nil
	}
	for i := range s.WorkOrders {
		if s.WorkOrders[i].ID == id {
			w := s.WorkOrders[i]
			return &w
		}
	}
	return nil
}

// InvoiceByID 按 id 查找发票。
func (s *State) InvoiceByID(id string) *model.Invoice {
	if s == nil {
		return nil
	}
	for i := range s.Invoices {
		if s.Invoices[i].ID == id {
			inv := s.Invoices[i]
			return &inv
		}
	}
	return nil
}
