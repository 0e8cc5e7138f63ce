// Runtime statistics for RxGo
// 运行时统计：订阅与调度动作计数，用于发现资源泄漏
package rxgo

import "sync/atomic"

// ============================================================================
// 运行时统计
// ============================================================================

// Stats 运行时统计快照
type Stats struct {
	SubscriptionsOpened int64 // 创建的Subscription数量
	SubscriptionsClosed int64 // 已关闭的Subscription数量
	ActionsScheduled    int64 // 调度的动作数量（包括重新调度）
	ActionsExecuted     int64 // 实际执行的动作数量
	UnhandledErrors     int64 // 上报到未处理错误通道的错误数量
}

// ActiveSubscriptions 当前仍然打开的Subscription数量
func (s Stats) ActiveSubscriptions() int64 {
	return s.SubscriptionsOpened - s.SubscriptionsClosed
}

type runtimeStats struct {
	subscriptionsOpened atomic.Int64
	subscriptionsClosed atomic.Int64
	actionsScheduled    atomic.Int64
	actionsExecuted     atomic.Int64
	unhandledErrors     atomic.Int64
}

// globalStats 全局统计
var globalStats runtimeStats

// GetStats 获取统计信息
func GetStats() Stats {
	return Stats{
		SubscriptionsOpened: globalStats.subscriptionsOpened.Load(),
		SubscriptionsClosed: globalStats.subscriptionsClosed.Load(),
		ActionsScheduled:    globalStats.actionsScheduled.Load(),
		ActionsExecuted:     globalStats.actionsExecuted.Load(),
		UnhandledErrors:     globalStats.unhandledErrors.Load(),
	}
}

// ResetStats 重置统计
func ResetStats() {
	globalStats.subscriptionsOpened.Store(0)
	globalStats.subscriptionsClosed.Store(0)
	globalStats.actionsScheduled.Store(0)
	globalStats.actionsExecuted.Store(0)
	globalStats.unhandledErrors.Store(0)
}
