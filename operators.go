// Canonical operators for RxGo
// 基于操作符契约实现的少量标准操作符：转换、过滤、截取、副作用与调度切换
package rxgo

import (
	"fmt"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// ============================================================================
// 转换与过滤
// ============================================================================

// Map 转换每个值，返回的错误作为错误通知发给下游
func Map(transform Transformer) OperatorFunc {
	return Operate(FuncOperator(func(subscriber *Subscriber, source *Observable) Teardown {
		return source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHandlers{
			OnNext: func(value interface{}) error {
				result, err := transform(value)
				if err != nil {
					return err
				}
				subscriber.Next(result)
				return nil
			},
		}))
	}))
}

// Filter 只转发满足谓词的值
func Filter(predicate Predicate) OperatorFunc {
	return Operate(FuncOperator(func(subscriber *Subscriber, source *Observable) Teardown {
		return source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHandlers{
			OnNext: func(value interface{}) error {
				if predicate(value) {
					subscriber.Next(value)
				}
				return nil
			},
		}))
	}))
}

// Take 只转发前count个值然后完成。count为负数时立即panic
func Take(count int) OperatorFunc {
	if count < 0 {
		panic(fmt.Errorf("%w: take count %d", ErrArgumentOutOfRange, count))
	}

	return func(source *Observable) *Observable {
		if count == 0 {
			return &Observable{subscribe: completeImmediately, config: source.config}
		}
		return source.Lift(FuncOperator(func(subscriber *Subscriber, source *Observable) Teardown {
			seen := 0
			return source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHandlers{
				OnNext: func(value interface{}) error {
					seen++
					if seen > count {
						return nil
					}
					subscriber.Next(value)
					if seen == count {
						subscriber.Complete()
					}
					return nil
				},
			}))
		}))
	}
}

// ============================================================================
// 副作用
// ============================================================================

// Tap 在转发之前把通知交给observer。observer中的panic作为错误通知发给下游
func Tap(observer Observer) OperatorFunc {
	onNext, onError, onComplete := observerCallbacks(observer)

	return Operate(FuncOperator(func(subscriber *Subscriber, source *Observable) Teardown {
		return source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHandlers{
			OnNext: func(value interface{}) error {
				if onNext != nil {
					onNext(value)
				}
				subscriber.Next(value)
				return nil
			},
			OnError: func(err error) {
				if onError != nil {
					onError(err)
				}
				subscriber.Error(err)
			},
			OnComplete: func() {
				if onComplete != nil {
					onComplete()
				}
				subscriber.Complete()
			},
		}))
	}))
}

// Finalize 订阅结束时执行fn，无论是错误、完成还是取消订阅
func Finalize(fn func()) OperatorFunc {
	return Operate(FuncOperator(func(subscriber *Subscriber, source *Observable) Teardown {
		source.Subscribe(subscriber)
		subscriber.Add(fn)
		return nil
	}))
}

// ============================================================================
// 调度切换
// ============================================================================

// ObserveOn 在scheduler上重新发送所有通知，保持原有顺序
func ObserveOn(scheduler Scheduler, delay time.Duration) OperatorFunc {
	return Operate(FuncOperator(func(subscriber *Subscriber, source *Observable) Teardown {
		relay := newScheduledRelay(subscriber, scheduler, delay)
		return source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHandlers{
			OnNext: func(value interface{}) error {
				relay.push(CreateItem(value))
				return nil
			},
			OnError: func(err error) {
				relay.push(CreateErrorItem(err))
			},
			OnComplete: func() {
				relay.push(CreateCompleteItem())
			},
		}))
	}))
}

// SubscribeOn 在scheduler上执行对source的订阅
func SubscribeOn(scheduler Scheduler, delay time.Duration) OperatorFunc {
	return Operate(FuncOperator(func(subscriber *Subscriber, source *Observable) Teardown {
		subscriber.Add(scheduler.Schedule(func(*Action, interface{}) {
			source.Subscribe(subscriber)
		}, delay, nil))
		return nil
	}))
}

// Delay 把值和完成通知推迟d，错误立即转发。
// scheduler为nil时使用配置中的调度器
func Delay(d time.Duration, scheduler Scheduler) OperatorFunc {
	return Operate(FuncOperator(func(subscriber *Subscriber, source *Observable) Teardown {
		sched := scheduler
		if sched == nil {
			sched = resolveConfig(source.config).scheduler()
		}
		relay := newScheduledRelay(subscriber, sched, d)
		return source.Subscribe(NewOperatorSubscriber(subscriber, OperatorHandlers{
			OnNext: func(value interface{}) error {
				relay.push(CreateItem(value))
				return nil
			},
			OnComplete: func() {
				relay.push(CreateCompleteItem())
			},
		}))
	}))
}

// scheduledRelay 每个通知调度一次，每次执行都投递最早的通知。
// 计时器触发顺序不确定时通知也不会乱序。
// 同一时刻只有一个goroutine投递，其他执行只登记一次待投递后返回
type scheduledRelay struct {
	mu         sync.Mutex
	items      *queue.Queue
	ready      int
	emitting   bool
	subscriber *Subscriber
	scheduler  Scheduler
	delay      time.Duration
}

func newScheduledRelay(subscriber *Subscriber, scheduler Scheduler, delay time.Duration) *scheduledRelay {
	return &scheduledRelay{
		items:      queue.New(),
		subscriber: subscriber,
		scheduler:  scheduler,
		delay:      delay,
	}
}

func (r *scheduledRelay) push(item Item) {
	r.mu.Lock()
	r.items.Add(item)
	r.mu.Unlock()

	r.subscriber.Add(r.scheduler.Schedule(r.deliver, r.delay, nil))
}

func (r *scheduledRelay) deliver(*Action, interface{}) {
	r.mu.Lock()
	r.ready++
	if r.emitting {
		r.mu.Unlock()
		return
	}
	r.emitting = true
	for r.ready > 0 && r.items.Length() > 0 {
		r.ready--
		item := r.items.Remove().(Item)
		r.mu.Unlock()

		item.Accept(r.subscriber)
		r.mu.Lock()
	}
	r.ready = 0
	r.emitting = false
	r.mu.Unlock()
}

func completeImmediately(subscriber *Subscriber) Teardown {
	subscriber.Complete()
	return nil
}
