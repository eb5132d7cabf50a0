package model

import (
	"fmt"
	"time"
)

// AllowWorkOrderTransition 定义工单状态机的允许流转关系。
// 采用"有向图"方式配置，与远端持久化 API 的状态约束保持一致。
var AllowWorkOrderTransition = map[WorkOrderStatus][]WorkOrderStatus{
	// pending 可以跳过 in-progress 直接完工（小修当场交车的场景）
	WorkOrderPending:    {WorkOrderInProgress, WorkOrderCompleted, WorkOrderCancelled, WorkOrderRejected},
	WorkOrderInProgress: {WorkOrderCompleted, WorkOrderCancelled},
	// 终态：completed / cancelled / rejected 不允许再流转，自环也不允许
	WorkOrderCompleted: {},
	WorkOrderCancelled: {},
	WorkOrderRejected:  {},
}

// CanTransitionWorkOrder 判断 from -> to 是否是一个允许的状态流转。
func CanTransitionWorkOrder(from, to WorkOrderStatus) bool {
	allowed, ok := AllowWorkOrderTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyWorkOrderTransition 对工单应用状态变更，并维护完工时间与收款状态。
// 仅在 CanTransitionWorkOrder 返回 true 时生效。
func ApplyWorkOrderTransition(w *WorkOrder, to WorkOrderStatus, now time.Time) error {
	if w == nil {
		return fmt.Errorf("work order is nil")
	}
	from := w.Status
	if !CanTransitionWorkOrder(from, to) {
		return fmt.Errorf("invalid work order status transition: %s -> %s", from, to)
	}

	w.Status = to

	switch to {
	case WorkOrderCompleted:
		if w.ActualCompletionDate == nil {
			t := now
			w.ActualCompletionDate = &t
		}
		// 完工后进入待收款
		if w.PaymentStatus == "" {
			w.PaymentStatus = PaymentPending
		}
	case WorkOrderCancelled, WorkOrderRejected:
		// 取消/拒绝不产生应收
	}
	w.UpdatedAt = now
	return nil
}
