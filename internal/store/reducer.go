package store

// Reduce 纯函数：对快照应用一条 mutation 消息，返回新快照。
// 约束：
// - 绝不原地修改传入的 state（集合替换，未触及的集合共享底层数组）
// - 未知消息 / 无效 payload / DELETE_ 未命中 id 原样返回同一个指针（严格 no-op）
// - UPDATE_ 只替换 id 匹配的那一个实体，其余保持原值
func Reduce(s *State, msg Message) *State {
	if s == nil {
		s = NewState()
	}

	switch msg.Kind {
	case KindSetClients:
		next := s.shallowCopy()
		next.Clients = copySlice(msg.Clients)
		return next
	case KindAddClient:
		if msg.Client == nil {
			return s
		}
		next := s.shallowCopy()
		next.Clients = appendOne(s.Clients, *msg.Client)
		return next
	case KindUpdateClient:
		if msg.Client == nil {
			return s
		}
		next := s.shallowCopy()
		next.Clients = replaceByKey(s.Clients, *msg.Client)
		return next
	case KindDeleteClient:
		clients, changed := removeByKey(s.Clients, msg.ID)
		if !changed {
			return s
		}
		next := s.shallowCopy()
		next.Clients = clients
		return next

	case KindSetVehicles:
		next := s.shallowCopy()
		next.Vehicles = copySlice(msg.Vehicles)
		return next
	case KindAddVehicle:
		if msg.Vehicle == nil {
			return s
		}
		next := s.shallowCopy()
		next.Vehicles = appendOne(s.Vehicles, *msg.Vehicle)
		return next
	case KindUpdateVehicle:
		if msg.Vehicle == nil {
			return s
		}
		next := s.shallowCopy()
		next.Vehicles = replaceByKey(s.Vehicles, *msg.Vehicle)
		return next
	case KindDeleteVehicle:
		vehicles, changed := removeByKey(s.Vehicles, msg.ID)
		if !changed {
			return s
		}
		next := s.shallowCopy()
		next.Vehicles = vehicles
		return next

	case KindSetWorkOrders:
		next := s.shallowCopy()
		next.WorkOrders = copySlice(msg.WorkOrders)
		return next
	case KindAddWorkOrder:
		if msg.WorkOrder == nil {
			return s
		}
		next := s.shallowCopy()
		next.WorkOrders = appendOne(s.WorkOrders, *msg.WorkOrder)
		return next
	case KindUpdateWorkOrder:
		if msg.WorkOrder == nil {
			return s
		}
		next := s.shallowCopy()
		next.WorkOrders = replaceByKey(s.WorkOrders, *msg.WorkOrder)
		return next
	case KindDeleteWorkOrder:
		workOrders, changed := removeByKey(s.WorkOrders, msg.ID)
		if !changed {
			return s
		}
		next := s.shallowCopy()
		next.WorkOrders = workOrders
		return next

	case KindSetAppointments:
		next := s.shallowCopy()
		next.Appointments = copySlice(msg.Appointments)
		return next
	case KindAddAppointment:
		if msg.Appointment == nil {
			return s
		}
		next := s.shallowCopy()
		next.Appointments = appendOne(s.Appointments, *msg.Appointment)
		return next
	case KindUpdateAppointment:
		if msg.Appointment == nil {
			return s
		}
		next := s.shallowCopy()
		next.Appointments = replaceByKey(s.Appointments, *msg.Appointment)
		return next
	case KindDeleteAppointment:
		appointments, changed := removeByKey(s.Appointments, msg.ID)
		if !changed {
			return s
		}
		next := s.shallowCopy()
		next.Appointments = appointments
		return next

	case KindSetInvoices:
		next := s.shallowCopy()
		next.Invoices = copySlice(msg.Invoices)
		return next
	case KindAddInvoice:
		if msg.Invoice == nil {
			return s
		}
		next := s.shallowCopy()
		next.Invoices = appendOne(s.Invoices, *msg.Invoice)
		return next
	case KindUpdateInvoice:
		if msg.Invoice == nil {
			return s
		}
		next := s.shallowCopy()
		next.Invoices = replaceByKey(s.Invoices, *msg.Invoice)
		return next
	case KindDeleteInvoice:
		invoices, changed := removeByKey(s.Invoices, msg.ID)
		if !changed {
			return s
		}
		next := s.shallowCopy()
		next.Invoices = invoices
		return next

	case KindSetPayments:
		next := s.shallowCopy()
		next.Payments = copySlice(msg.Payments)
		return next
	case KindAddPayment:
		if msg.Payment == nil {
			return s
		}
		next := s.shallowCopy()
		next.Payments = appendOne(s.Payments, *msg.Payment)
		return next
	case KindUpdatePayment:
		if msg.Payment == nil {
			return s
		}
		next := s.shallowCopy()
		next.Payments = replaceByKey(s.Payments, *msg.Payment)
		return next
	case KindDeletePayment:
		payments, changed := removeByKey(s.Payments, msg.ID)
		if !changed {
			return s
		}
		next := s.shallowCopy()
		next.Payments = payments
		return next

	case KindSetQuotations:
		next := s.shallowCopy()
		next.Quotations = copySlice(msg.Quotations)
		return next
	case KindAddQuotation:
		if msg.Quotation == nil {
			return s
		}
		next := s.shallowCopy()
		next.Quotations = appendOne(s.Quotations, *msg.Quotation)
		return next
	case KindUpdateQuotation:
		if msg.Quotation == nil {
			return s
		}
		next := s.shallowCopy()
		next.Quotations = replaceByKey(s.Quotations, *msg.Quotation)
		return next
	case KindDeleteQuotation:
		quotations, changed := removeByKey(s.Quotations, msg.ID)
		if !changed {
			return s
		}
		next := s.shallowCopy()
		next.Quotations = quotations
		return next

	case KindSetReminders:
		next := s.shallowCopy()
		next.Reminders = copySlice(msg.Reminders)
		return next
	case KindAddReminder:
		if msg.Reminder == nil {
			return s
		}
		next := s.shallowCopy()
		next.Reminders = appendOne(s.Reminders, *msg.Reminder)
		return next
	case KindUpdateReminder:
		if msg.Reminder == nil {
			return s
		}
		next := s.shallowCopy()
		next.Reminders = replaceByKey(s.Reminders, *msg.Reminder)
		return next
	case KindDeleteReminder:
		reminders, changed := removeByKey(s.Reminders, msg.ID)
		if !changed {
			return s
		}
		next := s.shallowCopy()
		next.Reminders = reminders
		return next

	case KindSetServiceTypes:
		next := s.shallowCopy()
		next.ServiceTypes = copySlice(msg.ServiceTypes)
		return next
	case KindAddServiceType:
		if msg.ServiceType == nil {
			return s
		}
		next := s.shallowCopy()
		next.ServiceTypes = appendOne(s.ServiceTypes, *msg.ServiceType)
		return next
	case KindUpdateServiceType:
		if msg.ServiceType == nil {
			return s
		}
		next := s.shallowCopy()
		next.ServiceTypes = replaceByKey(s.ServiceTypes, *msg.ServiceType)
		return next
	case KindDeleteServiceType:
		serviceTypes, changed := removeByKey(s.ServiceTypes, msg.ID)
		if !changed {
			return s
		}
		next := s.shallowCopy()
		next.ServiceTypes = serviceTypes
		return next

	case KindLogin:
		if msg.Session == nil {
			return s
		}
		next := s.shallowCopy()
		sess := *msg.Session
		next.Session = &sess
		return next
	case KindLogout:
		next := s.shallowCopy()
		next.Session = nil
		return next

	case KindRefreshDashboardStats:
		if msg.Stats == nil {
			return s
		}
		next := s.shallowCopy()
		stats := *msg.Stats
		next.Stats = &stats
		return next

	case KindApplyTransaction:
		if msg.Transaction.Empty() {
			return s
		}
		return applyTransaction(s, msg.Transaction)
	}

	// 未知消息：严格 no-op，返回同一引用
	return s
}

// applyTransaction 把复合操作的 diff 当作一个原子单元应用。
// 调用方（级联引擎）负责在同一个旧快照上算好全部增删，这里只做机械替换。
func applyTransaction(s *State, t *Transaction) *State {
	next := s.shallowCopy()

	if len(t.RemoveClientIDs) > 0 {
		next.Clients = removeByKeys(s.Clients, t.RemoveClientIDs)
	}
	if len(t.RemoveVehicleIDs) > 0 {
		next.Vehicles = removeByKeys(s.Vehicles, t.RemoveVehicleIDs)
	}

	workOrders := s.WorkOrders
	if len(t.RemoveWorkOrderIDs) > 0 {
		workOrders = removeByKeys(workOrders, t.RemoveWorkOrderIDs)
	}
	for i := range t.PutWorkOrders {
		workOrders = upsertByKey(workOrders, t.PutWorkOrders[i])
	}
	if len(t.RemoveWorkOrderIDs) > 0 || len(t.PutWorkOrders) > 0 {
		next.WorkOrders = workOrders
	}

	if len(t.RemoveAppointmentIDs) > 0 {
		next.Appointments = removeByKeys(s.Appointments, t.RemoveAppointmentIDs)
	}
	if len(t.AddInvoices) > 0 {
		invoices := copySlice(s.Invoices)
		invoices = append(invoices, t.AddInvoices...)
		next.Invoices = invoices
	}
	return next
}

type keyed interface {
	Key() string
}

func copySlice[T any](xs []T) []T {
	if xs == nil {
		return nil
	}
	out := make([]T, len(xs))
	copy(out, xs)
	return out
}

func appendOne[T any](xs []T, x T) []T {
	out := make([]T, len(xs), len(xs)+1)
	copy(out, xs)
	return append(out, x)
}

func replaceByKey[T keyed](xs []T, x T) []T {
	out := make([]T, len(xs))
	for i := range xs {
		if xs[i].Key() == x.Key() {
			out[i] = x
		} else {
			out[i] = xs[i]
		}
	}
	return out
}

func upsertByKey[T keyed](xs []T, x T) []T {
	for i := range xs {
		if xs[i].Key() == x.Key() {
			return replaceByKey(xs, x)
		}
	}
	return appendOne(xs, x)
}

// removeByKey 返回删除后的副本；第二个返回值报告是否真的有条目被删。
func removeByKey[T keyed](xs []T, id string) ([]T, bool) {
	out := removeByKeys(xs, []string{id})
	return out, len(out) != len(xs)
}

func removeByKeys[T keyed](xs []T, ids []string) []T {
	if len(xs) == 0 || len(ids) == 0 {
		return copySlice(xs)
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make([]T, 0, len(xs))
	for i := range xs {
		if _, ok := drop[xs[i].Key()]; ok {
			continue
		}
		out = append(out, xs[i])
	}
	return out
}
