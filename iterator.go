// Push-to-pull bridge for RxGo
// 把推送式的Observable适配为异步拉取迭代：值缓冲队列 + 待处理拉取队列 + 终止标志
package rxgo

import (
	"context"
	"iter"
	"sync"

	"github.com/eapache/queue"
)

// ============================================================================
// 拉取接口
// ============================================================================

// AsyncIterator 异步拉取迭代器。
// 返回(值, true, nil)表示一个值，(nil, false, nil)表示结束，错误表示源出错或ctx结束
type AsyncIterator interface {
	Next(ctx context.Context) (interface{}, bool, error)
}

// AsyncIterable 可以创建AsyncIterator的值
type AsyncIterable interface {
	AsyncIterator() AsyncIterator
}

// IteratorResult 待处理拉取的结算结果
type IteratorResult struct {
	Value interface{}
	Done  bool
}

// ============================================================================
// Iterator
// ============================================================================

// Iterator 推拉桥接的状态机。第一次拉取时才订阅源。
//
// 到达但尚未被拉取的值进入值缓冲；没有值可取的拉取创建一个Deferred进入待处理队列，
// 调用方阻塞直到它被结算或ctx结束。ctx结束的拉取放弃自己的Deferred，
// 之后到达的值会跳过被放弃的拉取。
type Iterator struct {
	mu         sync.Mutex
	source     *Observable
	subscriber *Subscriber
	subscribed bool
	values     *queue.Queue // interface{}
	pending    *queue.Queue // *Deferred
	completed  bool
	hasError   bool
	err        error
	closed     bool
}

// ToIterator 创建推拉桥接
func ToIterator(source *Observable) *Iterator {
	return &Iterator{
		source:  source,
		values:  queue.New(),
		pending: queue.New(),
	}
}

// Next 拉取下一个值
func (it *Iterator) Next(ctx context.Context) (interface{}, bool, error) {
	it.ensureSubscribed()

	it.mu.Lock()
	if it.values.Length() > 0 {
		value := it.values.Remove()
		it.mu.Unlock()
		return value, true, nil
	}
	if it.closed || it.completed {
		it.mu.Unlock()
		return nil, false, nil
	}
	if it.hasError {
		err := it.err
		it.mu.Unlock()
		return nil, false, err
	}
	deferred := NewDeferred()
	it.pending.Add(deferred)
	it.mu.Unlock()

	select {
	case <-deferred.Done():
	case <-ctx.Done():
		if deferred.Reject(ctx.Err()) {
			return nil, false, ctx.Err()
		}
	}

	result, err := deferred.result()
	if err != nil {
		return nil, false, err
	}
	r := result.(IteratorResult)
	return r.Value, !r.Done, nil
}

// Close 取消对源的订阅，丢弃未消费的值，并以结束结算所有待处理的拉取
func (it *Iterator) Close() error {
	it.mu.Lock()
	if it.closed {
		it.mu.Unlock()
		return nil
	}
	it.closed = true
	subscriber := it.subscriber
	pending := it.takePendingLocked()
	it.values = queue.New()
	it.mu.Unlock()

	for _, d := range pending {
		d.Resolve(IteratorResult{Done: true})
	}
	if subscriber == nil {
		return nil
	}
	return subscriber.Unsubscribe()
}

// All 以range-over-func的方式拉取所有值。循环结束（包括提前break）时关闭迭代器
func (it *Iterator) All(ctx context.Context) iter.Seq2[interface{}, error] {
	return func(yield func(interface{}, error) bool) {
		defer it.Close()

		for {
			value, ok, err := it.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok || !yield(value, nil) {
				return
			}
		}
	}
}

func (it *Iterator) ensureSubscribed() {
	it.mu.Lock()
	if it.subscribed || it.closed {
		it.mu.Unlock()
		return
	}
	it.subscribed = true
	subscriber := newSubscriber(ObserverFuncs{
		OnNext:     it.onNext,
		OnError:    it.onError,
		OnComplete: it.onComplete,
	}, it.source.config)
	it.subscriber = subscriber
	it.mu.Unlock()

	it.source.Subscribe(subscriber)
}

func (it *Iterator) onNext(value interface{}) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return
	}
	for it.pending.Length() > 0 {
		// 被放弃的拉取返回false
		if it.pending.Remove().(*Deferred).Resolve(IteratorResult{Value: value}) {
			return
		}
	}
	it.values.Add(value)
}

func (it *Iterator) onError(err error) {
	it.mu.Lock()
	it.hasError = true
	it.err = err
	pending := it.takePendingLocked()
	it.mu.Unlock()

	for _, d := range pending {
		d.Reject(err)
	}
}

func (it *Iterator) onComplete() {
	it.mu.Lock()
	it.completed = true
	pending := it.takePendingLocked()
	it.mu.Unlock()

	for _, d := range pending {
		d.Resolve(IteratorResult{Done: true})
	}
}

func (it *Iterator) takePendingLocked() []*Deferred {
	pending := make([]*Deferred, 0, it.pending.Length())
	for it.pending.Length() > 0 {
		pending = append(pending, it.pending.Remove().(*Deferred))
	}
	return pending
}
