// Deferred implementation for RxGo
// 只能结算一次的交接槽，实现Promise
package rxgo

import (
	"context"
	"sync"
)

// ============================================================================
// Promise 接口
// ============================================================================

// Thenable 结算后回调onFulfilled或onRejected之一
type Thenable interface {
	Then(onFulfilled func(value interface{}), onRejected func(err error))
}

// Future 可等待的结果
type Future interface {
	Thenable
	// Await 等待结算或ctx结束
	Await(ctx context.Context) (interface{}, error)
	// Done 结算后关闭
	Done() <-chan struct{}
}

// Promise 可由生产方结算的Future。Resolve/Reject只有第一次调用生效，返回是否生效
type Promise interface {
	Future
	Resolve(value interface{}) bool
	Reject(err error) bool
}

// ============================================================================
// Deferred
// ============================================================================

// Deferred 默认的Promise实现。回调在结算的goroutine上同步执行；
// 已结算时注册的回调立即执行
type Deferred struct {
	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	value     interface{}
	err       error
	callbacks []func()
}

// NewDeferred 创建Deferred
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolve 以value结算
func (d *Deferred) Resolve(value interface{}) bool {
	return d.settle(value, nil)
}

// Reject 以err结算。err为nil时等同于Resolve(nil)
func (d *Deferred) Reject(err error) bool {
	return d.settle(nil, err)
}

func (d *Deferred) settle(value interface{}, err error) bool {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return false
	}
	d.settled = true
	d.value, d.err = value, err
	callbacks := d.callbacks
	d.callbacks = nil
	close(d.done)
	d.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
	return true
}

// Then 注册结算回调
func (d *Deferred) Then(onFulfilled func(value interface{}), onRejected func(err error)) {
	cb := func() {
		if d.err != nil {
			if onRejected != nil {
				onRejected(d.err)
			}
			return
		}
		if onFulfilled != nil {
			onFulfilled(d.value)
		}
	}

	d.mu.Lock()
	if !d.settled {
		d.callbacks = append(d.callbacks, cb)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	cb()
}

// Await 等待结算，ctx先结束时返回ctx.Err()
func (d *Deferred) Await(ctx context.Context) (interface{}, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done 结算后关闭的通道
func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Settled 是否已结算
func (d *Deferred) Settled() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// result 仅在Done关闭之后调用
func (d *Deferred) result() (interface{}, error) {
	return d.value, d.err
}
