// Interop adapters for RxGo
// 把外部生产者适配为Observable：可订阅对象、Thenable、迭代器、异步迭代器与通道
package rxgo

import (
	"context"
	"fmt"
	"io"
	"iter"
)

// ============================================================================
// 互操作契约
// ============================================================================

// Subscribable 任何可以订阅观察者并返回可取消订阅句柄的值
type Subscribable interface {
	Subscribe(observer Observer) Unsubscribable
}

// InteropObservable 互操作能力：返回一个Subscribable
type InteropObservable interface {
	InteropObservable() Subscribable
}

type observableSubscribable struct {
	observable *Observable
}

func (s observableSubscribable) Subscribe(observer Observer) Unsubscribable {
	return s.observable.Subscribe(observer)
}

// InteropObservable 实现InteropObservable
func (o *Observable) InteropObservable() Subscribable {
	return observableSubscribable{observable: o}
}

// FromInterop 在订阅时调用source.InteropObservable()。
// 返回nil时以ErrNotSubscribable通知订阅者
func FromInterop(source InteropObservable, opts ...Option) *Observable {
	return NewObservable(func(subscriber *Subscriber) Teardown {
		subscribable := source.InteropObservable()
		if subscribable == nil {
			panic(fmt.Errorf("%w: %T returned a nil subscribable", ErrNotSubscribable, source))
		}
		return subscribable.Subscribe(subscriber)
	}, opts...)
}

// FromThenable 兑现映射为一个值加完成，拒绝映射为错误
func FromThenable(thenable Thenable, opts ...Option) *Observable {
	return NewObservable(func(subscriber *Subscriber) Teardown {
		thenable.Then(func(value interface{}) {
			if subscriber.IsStopped() {
				return
			}
			subscriber.Next(value)
			subscriber.Complete()
		}, func(err error) {
			subscriber.Error(err)
		})
		return nil
	}, opts...)
}

// ============================================================================
// 迭代器
// ============================================================================

// FromIterable 同步地按顺序发送每个元素，迭代结束时完成。
// 迭代中的panic作为错误通知发送；订阅者停止后不再拉取
func FromIterable(seq iter.Seq[interface{}], opts ...Option) *Observable {
	return NewObservable(func(subscriber *Subscriber) Teardown {
		if subscriber.IsStopped() {
			return nil
		}
		for value := range seq {
			subscriber.Next(value)
			if subscriber.IsStopped() {
				return nil
			}
		}
		subscriber.Complete()
		return nil
	}, opts...)
}

// FromIterableWithError 与FromIterable相同，但第一个非nil错误结束序列
func FromIterableWithError(seq iter.Seq2[interface{}, error], opts ...Option) *Observable {
	return NewObservable(func(subscriber *Subscriber) Teardown {
		if subscriber.IsStopped() {
			return nil
		}
		for value, err := range seq {
			if err != nil {
				subscriber.Error(err)
				return nil
			}
			subscriber.Next(value)
			if subscriber.IsStopped() {
				return nil
			}
		}
		subscriber.Complete()
		return nil
	}, opts...)
}

// FromAsyncIterable 在独立的goroutine上拉取，取消订阅时取消传给Next的ctx。
// 迭代器实现io.Closer时在结束后关闭它
func FromAsyncIterable(iterable AsyncIterable, opts ...Option) *Observable {
	return NewObservable(func(subscriber *Subscriber) Teardown {
		ctx, cancel := context.WithCancel(context.Background())
		iterator := iterable.AsyncIterator()

		go func() {
			defer closeIterator(iterator, subscriber)

			for {
				value, ok, err := iterator.Next(ctx)
				if err != nil {
					if ctx.Err() == nil {
						subscriber.Error(err)
					}
					return
				}
				if !ok {
					subscriber.Complete()
					return
				}
				subscriber.Next(value)
				if subscriber.IsStopped() {
					return
				}
			}
		}()

		return func() {
			cancel()
		}
	}, opts...)
}

func closeIterator(iterator AsyncIterator, subscriber *Subscriber) {
	if closer, ok := iterator.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			subscriber.cfg().reportUnhandledError(err)
		}
	}
}

// FromChannel 从通道读取直到通道关闭，取消订阅时停止读取
func FromChannel(ch <-chan interface{}, opts ...Option) *Observable {
	return NewObservable(func(subscriber *Subscriber) Teardown {
		done := make(chan struct{})

		go func() {
			for {
				select {
				case <-done:
					return
				case value, ok := <-ch:
					if !ok {
						subscriber.Complete()
						return
					}
					subscriber.Next(value)
				}
			}
		}()

		return func() {
			close(done)
		}
	}, opts...)
}

// ============================================================================
// 按能力分派
// ============================================================================

// From 根据input具备的能力选择适配方式，无法适配时返回ErrNotSubscribable
func From(input interface{}, opts ...Option) (*Observable, error) {
	switch v := input.(type) {
	case *Observable:
		return v, nil
	case interface{ AsObservable() *Observable }:
		return v.AsObservable(), nil
	case InteropObservable:
		return FromInterop(v, opts...), nil
	case Thenable:
		return FromThenable(v, opts...), nil
	case AsyncIterable:
		return FromAsyncIterable(v, opts...), nil
	case iter.Seq[interface{}]:
		return FromIterable(v, opts...), nil
	case func(yield func(interface{}) bool):
		return FromIterable(v, opts...), nil
	case iter.Seq2[interface{}, error]:
		return FromIterableWithError(v, opts...), nil
	case func(yield func(interface{}, error) bool):
		return FromIterableWithError(v, opts...), nil
	case <-chan interface{}:
		return FromChannel(v, opts...), nil
	case chan interface{}:
		return FromChannel(v, opts...), nil
	case []interface{}:
		return FromIterable(sliceSeq(v), opts...), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotSubscribable, input)
	}
}
