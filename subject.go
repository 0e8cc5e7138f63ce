// Subject implementations for RxGo
// Subject家族：Subject、BehaviorSubject、AsyncSubject（ReplaySubject见subject_replay.go）
package rxgo

import "sync"

// ============================================================================
// Subject - 多播主题
// ============================================================================

// Subject 既是Observer又是Observable，向登记的订阅者广播。
//
// 广播开始时获取登记表的快照，广播过程中由下游触发的订阅或取消订阅不影响
// 本次的接收者集合。Subject不拥有订阅者的生命周期，订阅者取消订阅时从登记表移除。
//
// 完成或出错之后到达的订阅者立即收到保存的终止通知。
// Unsubscribe会销毁Subject：之后调用Next、Error、Complete会panic(ErrObjectUnsubscribed)，
// Subscribe会收到ErrObjectUnsubscribed错误通知。
type Subject struct {
	mu          sync.Mutex
	observers   []*Subscriber // 写时复制，广播直接使用当前切片作为快照
	closed      bool
	isStopped   bool
	hasError    bool
	thrownError error
	config      *Config
	observable  *Observable
}

// NewSubject 创建Subject
func NewSubject(opts ...Option) *Subject {
	return newSubject(newConfig(opts))
}

func newSubject(config *Config) *Subject {
	s := &Subject{}
	s.init(config, s.subscribe)
	return s
}

func (s *Subject) init(config *Config, subscribe SubscribeFunc) {
	s.config = config
	s.observable = &Observable{subscribe: subscribe, config: config}
}

// Next 广播值，已停止时忽略
func (s *Subject) Next(value interface{}) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		panic(ErrObjectUnsubscribed)
	}
	if s.isStopped {
		s.mu.Unlock()
		return
	}
	observers := s.observers
	s.mu.Unlock()

	for _, o := range observers {
		o.Next(value)
	}
}

// Error 广播错误并保存，供之后的订阅者重放
func (s *Subject) Error(err error) {
	observers, ok := s.stop(err, true)
	if !ok {
		return
	}
	for _, o := range observers {
		o.Error(err)
	}
}

// Complete 广播完成
func (s *Subject) Complete() {
	observers, ok := s.stop(nil, false)
	if !ok {
		return
	}
	for _, o := range observers {
		o.Complete()
	}
}

// stop 标记停止并取出登记表，已停止时返回false
func (s *Subject) stop(err error, hasError bool) ([]*Subscriber, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		panic(ErrObjectUnsubscribed)
	}
	if s.isStopped {
		return nil, false
	}
	s.isStopped = true
	s.hasError = hasError
	s.thrownError = err
	observers := s.observers
	s.observers = nil
	return observers, true
}

// Unsubscribe 销毁Subject，丢弃所有订阅者
func (s *Subject) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isStopped = true
	s.closed = true
	s.observers = nil
	return nil
}

// Closed 检查是否已销毁
func (s *Subject) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// IsStopped 检查是否已完成、出错或销毁
func (s *Subject) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isStopped
}

// HasObservers 是否有订阅者
func (s *Subject) HasObservers() bool {
	return s.ObserverCount() > 0
}

// ObserverCount 订阅者数量
func (s *Subject) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Subscribe 订阅
func (s *Subject) Subscribe(observer Observer) *Subscriber {
	return s.observable.Subscribe(observer)
}

// SubscribeWithCallbacks 使用回调函数订阅
func (s *Subject) SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) *Subscriber {
	return s.observable.SubscribeWithCallbacks(onNext, onError, onComplete)
}

// AsObservable 返回只读的Observable视图
func (s *Subject) AsObservable() *Observable {
	return s.observable
}

// Pipe 从左到右依次应用操作符
func (s *Subject) Pipe(operators ...OperatorFunc) *Observable {
	return s.observable.Pipe(operators...)
}

func (s *Subject) subscribe(subscriber *Subscriber) Teardown {
	s.mu.Lock()
	s.throwIfClosedLocked()
	if !s.isStopped {
		teardown := s.addObserverLocked(subscriber)
		s.mu.Unlock()
		return teardown
	}
	s.mu.Unlock()

	s.checkFinalizedStatuses(subscriber)
	return nil
}

// throwIfClosedLocked 调用方持有锁；panic之前释放锁
func (s *Subject) throwIfClosedLocked() {
	if s.closed {
		s.mu.Unlock()
		panic(ErrObjectUnsubscribed)
	}
}

func (s *Subject) addObserverLocked(subscriber *Subscriber) Teardown {
	observers := make([]*Subscriber, len(s.observers), len(s.observers)+1)
	copy(observers, s.observers)
	s.observers = append(observers, subscriber)

	return func() {
		s.removeObserver(subscriber)
	}
}

func (s *Subject) removeObserver(subscriber *Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.observers {
		if o == subscriber {
			observers := make([]*Subscriber, 0, len(s.observers)-1)
			observers = append(observers, s.observers[:i]...)
			s.observers = append(observers, s.observers[i+1:]...)
			return
		}
	}
}

// checkFinalizedStatuses 向迟到的订阅者重放终止通知
func (s *Subject) checkFinalizedStatuses(subscriber *Subscriber) {
	s.mu.Lock()
	hasError, err, stopped := s.hasError, s.thrownError, s.isStopped
	s.mu.Unlock()

	if hasError {
		subscriber.Error(err)
	} else if stopped {
		subscriber.Complete()
	}
}

// ============================================================================
// BehaviorSubject - 行为主题
// ============================================================================

// BehaviorSubject 持有当前值的Subject，新订阅者在登记之前同步收到当前值
type BehaviorSubject struct {
	Subject
	value interface{}
}

// NewBehaviorSubject 创建行为主题，initial为必需的初始值
func NewBehaviorSubject(initial interface{}, opts ...Option) *BehaviorSubject {
	return newBehaviorSubject(initial, newConfig(opts))
}

func newBehaviorSubject(initial interface{}, config *Config) *BehaviorSubject {
	b := &BehaviorSubject{value: initial}
	b.Subject.init(config, b.subscribe)
	return b
}

// Value 当前值。出错后返回保存的错误，销毁后返回ErrObjectUnsubscribed
func (b *BehaviorSubject) Value() (interface{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hasError {
		return nil, b.thrownError
	}
	if b.closed {
		return nil, ErrObjectUnsubscribed
	}
	return b.value, nil
}

// Next 更新当前值并广播
func (b *BehaviorSubject) Next(value interface{}) {
	b.mu.Lock()
	b.throwIfClosedLocked()
	if !b.isStopped {
		b.value = value
	}
	b.mu.Unlock()

	b.Subject.Next(value)
}

func (b *BehaviorSubject) subscribe(subscriber *Subscriber) Teardown {
	b.mu.Lock()
	b.throwIfClosedLocked()
	stopped, value := b.isStopped, b.value
	b.mu.Unlock()

	if !stopped {
		subscriber.Next(value)
	}
	return b.Subject.subscribe(subscriber)
}

// ============================================================================
// AsyncSubject - 异步主题
// ============================================================================

// AsyncSubject 只在完成时发送最后一个值。
// 从未收到值时只发送完成；出错时只发送错误
type AsyncSubject struct {
	Subject
	value      interface{}
	hasValue   bool
	isComplete bool
}

// NewAsyncSubject 创建异步主题
func NewAsyncSubject(opts ...Option) *AsyncSubject {
	return newAsyncSubject(newConfig(opts))
}

func newAsyncSubject(config *Config) *AsyncSubject {
	a := &AsyncSubject{}
	a.Subject.init(config, a.subscribe)
	return a
}

// Next 只更新最后的值，不发送任何通知
func (a *AsyncSubject) Next(value interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		panic(ErrObjectUnsubscribed)
	}
	if !a.isStopped {
		a.value = value
		a.hasValue = true
	}
}

// Complete 发送最后的值（如果有）然后完成
func (a *AsyncSubject) Complete() {
	a.mu.Lock()
	a.throwIfClosedLocked()
	if a.isComplete || a.isStopped {
		a.mu.Unlock()
		return
	}
	a.isComplete = true
	value, hasValue := a.value, a.hasValue
	a.mu.Unlock()

	if hasValue {
		a.Subject.Next(value)
	}
	a.Subject.Complete()
}

func (a *AsyncSubject) subscribe(subscriber *Subscriber) Teardown {
	a.mu.Lock()
	a.throwIfClosedLocked()
	if a.isComplete && !a.hasError {
		value, hasValue := a.value, a.hasValue
		a.mu.Unlock()

		if hasValue {
			subscriber.Next(value)
		}
		subscriber.Complete()
		return nil
	}
	a.mu.Unlock()

	return a.Subject.subscribe(subscriber)
}
