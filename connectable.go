// ConnectableObservable implementation for RxGo
// 共享执行的组合器：持有源Observable和Subject工厂，按连接周期创建与销毁Subject
package rxgo

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// ConnectableObservable 实现
// ============================================================================

// SubjectLike 可用作多播中介的Subject
type SubjectLike interface {
	Observer
	Subscribe(observer Observer) *Subscriber
	IsStopped() bool
}

// SubjectFactory 每个连接周期创建一个新的Subject
type SubjectFactory func() SubjectLike

// ConnectableObservable 订阅者先登记到当前Subject，Connect之后源才开始执行。
//
// 持有当前的Subject与连接，连接结束（源终止或取消连接）时两者一起丢弃，
// 下一次连接重新创建。每个连接周期有独立的连接ID（UUIDv7，按时间有序）。
type ConnectableObservable struct {
	source     *Observable
	factory    SubjectFactory
	config     *Config
	observable *Observable

	mu           sync.Mutex
	subject      SubjectLike
	connection   *Subscription
	connectionID uuid.UUID
	cycle        *refCycle
}

// refCycle 一个连接周期内RefCount订阅者的计数。
// 连接结束后旧周期作废，旧周期的订阅者离开时不影响新周期
type refCycle struct {
	connection *Subscription
	count      int
}

// NewConnectableObservable 创建ConnectableObservable
func NewConnectableObservable(source *Observable, factory SubjectFactory) *ConnectableObservable {
	c := &ConnectableObservable{
		source:  source,
		factory: factory,
		config:  source.config,
	}
	c.observable = &Observable{
		subscribe: func(subscriber *Subscriber) Teardown {
			c.getSubject().Subscribe(subscriber)
			return nil
		},
		config: c.config,
	}
	return c
}

// Subscribe 订阅当前Subject，不会触发连接
func (c *ConnectableObservable) Subscribe(observer Observer) *Subscriber {
	return c.observable.Subscribe(observer)
}

// AsObservable 返回Observable视图
func (c *ConnectableObservable) AsObservable() *Observable {
	return c.observable
}

// Pipe 从左到右依次应用操作符
func (c *ConnectableObservable) Pipe(operators ...OperatorFunc) *Observable {
	return c.observable.Pipe(operators...)
}

// Connect 订阅源并把通知转发到当前Subject，返回连接。
// 已连接时返回现有连接
func (c *ConnectableObservable) Connect() *Subscription {
	c.mu.Lock()
	if c.connection != nil {
		connection := c.connection
		c.mu.Unlock()
		return connection
	}
	connection := NewSubscription(nil)
	c.connection = connection
	c.connectionID = uuid.Must(uuid.NewV7())
	id := c.connectionID
	subject := c.getSubjectLocked()
	c.mu.Unlock()

	c.logger().Debug("rxgo: connect", "connection", id)

	connection.Add(func() {
		c.teardown(connection)
	})
	connection.Add(c.source.Subscribe(ObserverFuncs{
		OnNext: subject.Next,
		OnError: func(err error) {
			c.teardown(connection)
			subject.Error(err)
		},
		OnComplete: func() {
			c.teardown(connection)
			subject.Complete()
		},
	}))
	return connection
}

// RefCount 返回共享执行的Observable：第一个订阅者触发连接，
// 最后一个订阅者离开时取消连接，下一个订阅者开始全新的执行
func (c *ConnectableObservable) RefCount() *Observable {
	return &Observable{
		subscribe: func(subscriber *Subscriber) Teardown {
			c.mu.Lock()
			if c.cycle == nil {
				c.cycle = &refCycle{}
			}
			cycle := c.cycle
			cycle.count++
			c.mu.Unlock()

			subscriber.Add(func() {
				c.release(cycle)
			})
			c.observable.Subscribe(subscriber)
			if subscriber.Closed() {
				return nil
			}

			connection := c.Connect()
			c.mu.Lock()
			if c.cycle == cycle && cycle.connection == nil {
				cycle.connection = connection
			}
			c.mu.Unlock()
			return nil
		},
		config: c.config,
	}
}

// AutoConnect 第n个订阅者到达时自动连接，n<=0时立即连接
func (c *ConnectableObservable) AutoConnect(n int) *Observable {
	if n <= 0 {
		c.Connect()
		return c.observable
	}

	var count atomic.Int64
	return &Observable{
		subscribe: func(subscriber *Subscriber) Teardown {
			c.observable.Subscribe(subscriber)
			if count.Add(1) == int64(n) {
				c.Connect()
			}
			return nil
		},
		config: c.config,
	}
}

// IsConnected 是否已连接
func (c *ConnectableObservable) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connection != nil
}

// ConnectionID 当前连接周期的ID，未连接时为uuid.Nil
func (c *ConnectableObservable) ConnectionID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connection == nil {
		return uuid.Nil
	}
	return c.connectionID
}

func (c *ConnectableObservable) getSubject() SubjectLike {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getSubjectLocked()
}

func (c *ConnectableObservable) getSubjectLocked() SubjectLike {
	if c.subject == nil || c.subject.IsStopped() {
		c.subject = c.factory()
	}
	return c.subject
}

// teardown 结束connection对应的连接周期，重复调用不做任何事
func (c *ConnectableObservable) teardown(connection *Subscription) {
	c.mu.Lock()
	if c.connection != connection {
		c.mu.Unlock()
		return
	}
	c.connection = nil
	c.subject = nil
	if c.cycle != nil && (c.cycle.connection == nil || c.cycle.connection == connection) {
		c.cycle = nil
	}
	id := c.connectionID
	c.mu.Unlock()

	c.logger().Debug("rxgo: disconnect", "connection", id)
	if err := connection.Unsubscribe(); err != nil {
		resolveConfig(c.config).reportUnhandledError(err)
	}
}

// release 一个RefCount订阅者离开，cycle已不是当前周期时不做任何事
func (c *ConnectableObservable) release(cycle *refCycle) {
	c.mu.Lock()
	if c.cycle != cycle || cycle.count <= 0 {
		c.mu.Unlock()
		return
	}
	cycle.count--
	if cycle.count > 0 {
		c.mu.Unlock()
		return
	}
	c.cycle = nil
	shared := cycle.connection
	if shared == nil {
		// 连接仍在建立中
		shared = c.connection
	}
	c.mu.Unlock()

	if shared != nil {
		if err := shared.Unsubscribe(); err != nil {
			resolveConfig(c.config).reportUnhandledError(err)
		}
	}
}

func (c *ConnectableObservable) logger() *slog.Logger {
	return resolveConfig(c.config).logger()
}

// ============================================================================
// 多播辅助函数
// ============================================================================

// Publish 使用Subject多播
func Publish(source *Observable) *ConnectableObservable {
	return NewConnectableObservable(source, func() SubjectLike {
		return newSubject(source.config)
	})
}

// PublishBehavior 使用BehaviorSubject多播，每个连接周期从initial开始
func PublishBehavior(source *Observable, initial interface{}) *ConnectableObservable {
	return NewConnectableObservable(source, func() SubjectLike {
		return newBehaviorSubject(initial, source.config)
	})
}

// PublishReplay 使用ReplaySubject多播
func PublishReplay(source *Observable, bufferSize int, window time.Duration) *ConnectableObservable {
	return NewConnectableObservable(source, func() SubjectLike {
		return newReplaySubject(bufferSize, window, source.config)
	})
}

// PublishLast 使用AsyncSubject多播，只共享最后一个值
func PublishLast(source *Observable) *ConnectableObservable {
	return NewConnectableObservable(source, func() SubjectLike {
		return newAsyncSubject(source.config)
	})
}

// Share 等同于Publish(source).RefCount()
func Share() OperatorFunc {
	return func(source *Observable) *Observable {
		return Publish(source).RefCount()
	}
}
