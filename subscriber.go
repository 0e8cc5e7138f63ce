// Subscriber implementation for RxGo
// 感知终止状态的观察者包装，本身也是一个Subscription
package rxgo

import "sync/atomic"

// ============================================================================
// Subscriber
// ============================================================================

// Subscriber 包装目标观察者并拥有下游的清理动作。
//
// 第一次error、complete或Unsubscribe之后进入停止状态，此后的任何通知都不会
// 到达目标观察者。error和complete最多投递一次，投递后自动Unsubscribe。
type Subscriber struct {
	Subscription
	stopped     atomic.Bool
	destination Observer
	config      *Config
}

// NewSubscriber 创建Subscriber。
//
// destination为*Subscriber时新的Subscriber是一个直通层：通知转发给它，
// 并作为子节点加入它，因此下游的停止状态与清理会传递到直通层。
// 同一个观察者上创建的两个Subscriber是相互独立的订阅。
func NewSubscriber(destination Observer, opts ...Option) *Subscriber {
	return newSubscriber(destination, newConfig(opts))
}

func newSubscriber(destination Observer, config *Config) *Subscriber {
	if d, ok := destination.(*Subscriber); ok && d != nil {
		s := newRawSubscriber(d, config)
		d.Add(s)
		return s
	}
	return newRawSubscriber(newConsumerObserver(destination, config), config)
}

// newRawSubscriber 不做任何包装，直接把通知交给destination
func newRawSubscriber(destination Observer, config *Config) *Subscriber {
	s := &Subscriber{
		destination: destination,
		config:      config,
	}
	s.Subscription.init(nil, s, config)
	return s
}

// Next 发送下一个值
func (s *Subscriber) Next(value interface{}) {
	if s.stopped.Load() {
		s.cfg().reportStopped(CreateItem(value), s)
		return
	}
	s.destination.Next(value)
}

// Error 发送错误并结束
func (s *Subscriber) Error(err error) {
	if !s.stopped.CompareAndSwap(false, true) {
		s.cfg().reportStopped(CreateErrorItem(err), s)
		return
	}
	defer s.release()
	s.destination.Error(err)
}

// Complete 发送完成并结束
func (s *Subscriber) Complete() {
	if !s.stopped.CompareAndSwap(false, true) {
		s.cfg().reportStopped(CreateCompleteItem(), s)
		return
	}
	defer s.release()
	s.destination.Complete()
}

// Unsubscribe 停止接收通知并释放所有清理动作
func (s *Subscriber) Unsubscribe() error {
	s.stopped.Store(true)
	return s.Subscription.Unsubscribe()
}

// IsStopped 检查是否已停止
func (s *Subscriber) IsStopped() bool {
	return s.stopped.Load()
}

// release 终止通知之后的清理，没有调用者等待其结果
func (s *Subscriber) release() {
	if err := s.Subscription.Unsubscribe(); err != nil {
		s.cfg().reportUnhandledError(err)
	}
}

func (s *Subscriber) cfg() *Config {
	return resolveConfig(s.config)
}
