package model

import "time"

// 本包定义工作台控制台数据层的核心实体。
// 所有实体通过远端持久化 API（REST）读写，字段用 json tag 对齐接口契约；
// 金额统一使用 int64，单位为最小货币单位（分），避免浮点误差。

// WorkOrderStatus 工单状态枚举（持久化为字符串）。
type WorkOrderStatus string

const (
	WorkOrderPending    WorkOrderStatus = "pending"     // 待处理
	WorkOrderInProgress WorkOrderStatus = "in-progress" // 维修中
	WorkOrderCompleted  WorkOrderStatus = "completed"   // 已完工
	WorkOrderCancelled  WorkOrderStatus = "cancelled"   // 已取消
	WorkOrderRejected   WorkOrderStatus = "rejected"    // 已拒绝
)

// PaymentStatus 工单收款状态。
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCompleted PaymentStatus = "completed"
)

// InvoiceStatus 发票状态。
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// ISVRate ISV 销售税税率（固定 15%，开票时派生 tax/total，不单独存储）。
const ISVRate = 0.15

// Client 车主/客户。车辆通过 Vehicle.ClientID 外键归属，不做内嵌。
type Client struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Address        string    `json:"address"`
	CredentialHash string    `json:"credentialHash,omitempty"` // 客户门户登录凭据（加盐哈希）
	CredentialSalt string    `json:"credentialSalt,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Vehicle 车辆。ClientID 必须引用存活的 Client。
type Vehicle struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	Plate     string    `json:"plate"`
	VIN       string    `json:"vin,omitempty"`
	Mileage   int64     `json:"mileage"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WorkOrder 维修工单。
type WorkOrder struct {
	ID          string          `json:"id"`
	VehicleID   string          `json:"vehicleId"`
	ClientID    string          `json:"clientId"`
	Description string          `json:"description"`
	Status      WorkOrderStatus `json:"status"`

	// 费用拆分（单位：分）
	LaborCost int64 `json:"laborCost"`
	PartsCost int64 `json:"partsCost"`
	TotalCost int64 `json:"totalCost"`

	PaymentStatus PaymentStatus `json:"paymentStatus"`

	EstimatedCompletionDate *time.Time `json:"estimatedCompletionDate,omitempty"`
	ActualCompletionDate    *time.Time `json:"actualCompletionDate,omitempty"` // 完工时间（completed 时写入）
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// Invoice 发票。每个完工工单合成一张。
type Invoice struct {
	ID          string        `json:"id"`
	Number      string        `json:"number"`
	ClientID    string        `json:"clientId"`
	WorkOrderID string        `json:"workOrderId"`
	Items       []InvoiceItem `json:"items"`

	// 金额（单位：分）。Total == Subtotal + Tax，Tax 按 ISVRate 派生。
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`

	Status    InvoiceStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// InvoiceItem 发票行项目。
type InvoiceItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	Amount      int64  `json:"amount"`
}

// Payment 针对某张发票的收款记录。
type Payment struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoiceId"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"` // cash / card / transfer
	Status    string    `json:"status"`
	PaidAt    time.Time `json:"paidAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Appointment 预约。
type Appointment struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"clientId"`
	VehicleID   string    `json:"vehicleId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Status      string    `json:"status"` // scheduled / confirmed / done / cancelled
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Quotation 报价单。
type Quotation struct {
	ID         string     `json:"id"`
	ClientID   string     `json:"clientId"`
	VehicleID  string     `json:"vehicleId,omitempty"`
	Total      int64      `json:"total"`
	Status     string     `json:"status"` // draft / sent / accepted / rejected
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Reminder 提醒（保养/年检/回访等）。
type Reminder struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	VehicleID string    `json:"vehicleId,omitempty"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	DueDate   time.Time `json:"dueDate"`
	Sent      bool      `json:"sent"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ServiceType 服务项目（换油、四轮定位等）。
type ServiceType struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	BasePrice   int64     `json:"basePrice"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// User 控制台操作员。
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"` // admin / mechanic / receptionist
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session 已登录会话（用户 + 访问令牌）。
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DashboardStats 仪表盘派生统计，由 REFRESH_DASHBOARD_STATS 重算。
type DashboardStats struct {
	TotalClients        int       `json:"totalClients"`
	TotalVehicles       int       `json:"totalVehicles"`
	PendingWorkOrders   int       `json:"pendingWorkOrders"`
	CompletedWorkOrders int       `json:"completedWorkOrders"`
	PendingInvoices     int       `json:"pendingInvoices"`
	Revenue             int64     `json:"revenue"` // 已收款发票合计（单位：分）
	OutstandingDebt     int64     `json:"outstandingDebt"`
	RefreshedAt         time.Time `json:"refreshedAt"`
}

// InvoiceTax 按 ISVRate 计算税额，四舍五入到最小货币单位。
func InvoiceTax(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	// 15% == subtotal * 15 / 100，+50 实现半分进位
	return (subtotal*15 + 50) / 100
}

func (c Client) Key() string      { return c.ID }
func (v Vehicle) Key() string     { return v.ID }
func (w WorkOrder) Key() string   { return w.ID }
func (i Invoice) Key() string     { return i.ID }
func (p Payment) Key() string     { return p.ID }
func (a Appointment) Key() string { return a.ID }
func (q Quotation) Key() string   { return q.ID }
func (r Reminder) Key() string    { return r.ID }
func (s ServiceType) Key() string { return s.ID }
