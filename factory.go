// Factory functions for RxGo
// 基础工厂函数：Just、Empty、Never、Error为同步生产者，Interval、Timer基于调度器
package rxgo

import (
	"iter"
	"time"
)

// ============================================================================
// 同步工厂函数
// ============================================================================

// Just 依次发送给定的值然后完成
func Just(values ...interface{}) *Observable {
	return FromIterable(sliceSeq(values))
}

// Empty 立即完成
func Empty(opts ...Option) *Observable {
	return NewObservable(completeImmediately, opts...)
}

// Never 永不发送任何通知
func Never(opts ...Option) *Observable {
	return NewObservable(func(*Subscriber) Teardown {
		return nil
	}, opts...)
}

// Error 立即以err结束
func Error(err error, opts ...Option) *Observable {
	return NewObservable(func(subscriber *Subscriber) Teardown {
		subscriber.Error(err)
		return nil
	}, opts...)
}

func sliceSeq(values []interface{}) iter.Seq[interface{}] {
	return func(yield func(interface{}) bool) {
		for _, v := range values {
			if !yield(v) {
				return
			}
		}
	}
}

// ============================================================================
// 时间工厂函数
// ============================================================================

// Interval 每隔period发送一个递增的整数（从0开始），永不完成。
// 调度器由WithScheduler指定，默认为Async
func Interval(period time.Duration, opts ...Option) *Observable {
	o := &Observable{config: newConfig(opts)}
	o.subscribe = func(subscriber *Subscriber) Teardown {
		scheduler := resolveConfig(o.config).scheduler()
		return scheduler.Schedule(func(action *Action, state interface{}) {
			n := state.(int)
			subscriber.Next(n)
			action.Schedule(n+1, period)
		}, period, 0)
	}
	return o
}

// Timer 在delay之后发送0然后完成
func Timer(delay time.Duration, opts ...Option) *Observable {
	o := &Observable{config: newConfig(opts)}
	o.subscribe = func(subscriber *Subscriber) Teardown {
		scheduler := resolveConfig(o.config).scheduler()
		return scheduler.Schedule(func(*Action, interface{}) {
			subscriber.Next(0)
			subscriber.Complete()
		}, delay, nil)
	}
	return o
}
