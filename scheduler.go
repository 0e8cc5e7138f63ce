// Scheduler implementations for RxGo
// 调度器抽象：同步队列调度器与基于计时器的异步调度器
package rxgo

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
)

// ============================================================================
// 调度器接口
// ============================================================================

// Work 被调度执行的工作，可以通过action.Schedule递归地再次调度自身
type Work func(action *Action, state interface{})

// Scheduler 调度器接口
type Scheduler interface {
	// Now 调度器的当前时间
	Now() time.Time
	// Schedule 在delay之后执行work。取消返回的句柄会阻止本次以及之后所有的重新调度
	Schedule(work Work, delay time.Duration, state interface{}) *Subscription
}

// actionQueue 由内置调度器实现，接收待执行的动作
type actionQueue interface {
	enqueue(action *Action)
}

// ============================================================================
// Action 调度动作
// ============================================================================

// Action 一次被调度的工作调用。
// 重新调度产生的新Action与原始句柄共享取消状态
type Action struct {
	scheduler   actionQueue
	work        Work
	state       interface{}
	delay       time.Duration
	handle      *Subscription
	rescheduled atomic.Bool

	// 虚拟时间调度器使用
	due   time.Duration
	seq   int64
	index int
}

func newAction(scheduler actionQueue, work Work, state interface{}, delay time.Duration, handle *Subscription) *Action {
	globalStats.actionsScheduled.Add(1)
	return &Action{
		scheduler: scheduler,
		work:      work,
		state:     state,
		delay:     delay,
		handle:    handle,
	}
}

// scheduleAction 内置调度器共用的Schedule实现
func scheduleAction(scheduler actionQueue, work Work, delay time.Duration, state interface{}) *Subscription {
	handle := NewSubscription(nil)
	scheduler.enqueue(newAction(scheduler, work, state, delay, handle))
	return handle
}

// Schedule 以新的状态和延迟再次调度当前工作，返回共享的句柄。
// 句柄已取消时不做任何事
func (a *Action) Schedule(state interface{}, delay time.Duration) *Subscription {
	if a.handle.Closed() {
		return a.handle
	}
	a.rescheduled.Store(true)
	a.scheduler.enqueue(newAction(a.scheduler, a.work, state, delay, a.handle))
	return a.handle
}

// Unsubscribe 取消本动作以及所有后续的重新调度
func (a *Action) Unsubscribe() error {
	return a.handle.Unsubscribe()
}

// Closed 检查是否已取消
func (a *Action) Closed() bool {
	return a.handle.Closed()
}

// Delay 本次调度的延迟
func (a *Action) Delay() time.Duration {
	return a.delay
}

// execute 在执行前检查句柄。
// 工作没有重新调度自身或者失败时，句柄随之关闭
func (a *Action) execute() error {
	if a.handle.Closed() {
		return nil
	}
	globalStats.actionsExecuted.Add(1)

	err := SafeExecute(func() { a.work(a, a.state) })
	if err != nil || !a.rescheduled.Load() {
		err = combineErrors(appendError(appendError(nil, err), a.handle.Unsubscribe()))
	}
	return err
}

// ============================================================================
// 队列调度器 - Queue Scheduler
// ============================================================================

// queueScheduler 无延迟的工作在调用方的goroutine上同步执行。
// 最外层的调用负责清空队列，嵌套调度的工作排队，在当前工作返回后按FIFO执行。
// 有延迟的工作交给异步调度器
type queueScheduler struct {
	mu       sync.Mutex
	actions  *queue.Queue
	flushing bool
	timers   *asyncScheduler
	config   *Config
}

// NewQueueScheduler 创建队列调度器
func NewQueueScheduler(opts ...Option) Scheduler {
	config := newConfig(opts)
	return &queueScheduler{
		actions: queue.New(),
		timers:  newAsyncScheduler(config),
		config:  config,
	}
}

// Now 当前时间
func (s *queueScheduler) Now() time.Time {
	return time.Now()
}

// Schedule 调度工作
func (s *queueScheduler) Schedule(work Work, delay time.Duration, state interface{}) *Subscription {
	return scheduleAction(s, work, delay, state)
}

func (s *queueScheduler) enqueue(action *Action) {
	if action.delay > 0 {
		s.timers.enqueue(action)
		return
	}

	s.mu.Lock()
	s.actions.Add(action)
	if s.flushing {
		s.mu.Unlock()
		return
	}
	s.flushing = true
	s.mu.Unlock()

	s.flush()
}

// flush 一个工作失败时，剩余的工作全部取消
func (s *queueScheduler) flush() {
	for {
		s.mu.Lock()
		if s.actions.Length() == 0 {
			s.flushing = false
			s.mu.Unlock()
			return
		}
		action := s.actions.Remove().(*Action)
		s.mu.Unlock()

		if err := action.execute(); err != nil {
			s.mu.Lock()
			rest := make([]*Action, 0, s.actions.Length())
			for s.actions.Length() > 0 {
				rest = append(rest, s.actions.Remove().(*Action))
			}
			s.flushing = false
			s.mu.Unlock()

			for _, a := range rest {
				_ = a.handle.Unsubscribe()
			}
			resolveConfig(s.config).reportUnhandledError(err)
			return
		}
	}
}

// ============================================================================
// 异步调度器 - Async Scheduler
// ============================================================================

// asyncScheduler 使用宿主计时器延迟执行，每个动作在计时器自己的goroutine上运行。
// 不同动作之间没有互斥，需要顺序投递的操作符自行串行化
type asyncScheduler struct {
	config *Config
}

// NewAsyncScheduler 创建异步调度器
func NewAsyncScheduler(opts ...Option) Scheduler {
	return newAsyncScheduler(newConfig(opts))
}

func newAsyncScheduler(config *Config) *asyncScheduler {
	return &asyncScheduler{config: config}
}

// Now 当前时间
func (s *asyncScheduler) Now() time.Time {
	return time.Now()
}

// Schedule 调度工作，负的延迟按0处理
func (s *asyncScheduler) Schedule(work Work, delay time.Duration, state interface{}) *Subscription {
	return scheduleAction(s, work, delay, state)
}

func (s *asyncScheduler) enqueue(action *Action) {
	if action.handle.Closed() {
		return
	}
	delay := action.delay
	if delay < 0 {
		delay = 0
	}

	// 计时器的停止由句柄持有，触发时从句柄上移除
	var mu sync.Mutex
	var timer *time.Timer
	stop := NewSubscription(func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	})
	action.handle.Add(stop)
	if stop.Closed() {
		return
	}

	mu.Lock()
	timer = time.AfterFunc(delay, func() {
		_ = stop.Unsubscribe()
		s.run(action)
	})
	mu.Unlock()
}

func (s *asyncScheduler) run(action *Action) {
	if err := action.execute(); err != nil {
		resolveConfig(s.config).reportUnhandledError(err)
	}
}

// ============================================================================
// 默认调度器
// ============================================================================

var (
	// Queue 同步队列调度器实例，所有goroutine共享。
	// 另一个goroutine正在清空队列时，新调度的无延迟工作排在该队列中，
	// 由正在清空的goroutine执行，调用方不会同步等到它运行
	Queue = NewQueueScheduler()

	// Async 异步调度器实例，时间相关操作符的默认调度器
	Async = NewAsyncScheduler()
)
