// Observable implementation for RxGo
// Observable是订阅时才执行的蓝图，Lift在不修改原值的情况下组合操作符
package rxgo

import (
	"context"
	"iter"
)

// ============================================================================
// Observable 核心实现
// ============================================================================

// SubscribeFunc 订阅时执行的初始化函数，返回的清理动作归subscriber所有
type SubscribeFunc func(subscriber *Subscriber) Teardown

// Observable 不可变的生产者。
//
// 要么持有一个初始化函数，要么（Lift之后）持有source与operator。
// 订阅是同步的，除非某个操作符引入了调度。
type Observable struct {
	subscribe SubscribeFunc
	source    *Observable
	operator  Operator
	config    *Config
}

// NewObservable 创建新的Observable
func NewObservable(subscribe SubscribeFunc, opts ...Option) *Observable {
	return &Observable{
		subscribe: subscribe,
		config:    newConfig(opts),
	}
}

// Create 创建Observable，等同于NewObservable
func Create(subscribe SubscribeFunc, opts ...Option) *Observable {
	return NewObservable(subscribe, opts...)
}

// Lift 返回以当前Observable为source、以operator为初始化逻辑的新Observable。
// a.Lift(op1).Lift(op2)订阅s时等价于op1.Call(op2包装后的s, a)
func (o *Observable) Lift(operator Operator) *Observable {
	return &Observable{
		source:   o,
		operator: operator,
		config:   o.config,
	}
}

// Pipe 从左到右依次应用操作符
func (o *Observable) Pipe(operators ...OperatorFunc) *Observable {
	result := o
	for _, op := range operators {
		result = op(result)
	}
	return result
}

// Subscribe 订阅观察者，返回的Subscriber即外部可见的订阅句柄。
// 传入*Subscriber时直接使用它，否则包装为新的Subscriber
func (o *Observable) Subscribe(observer Observer) *Subscriber {
	subscriber := o.toSubscriber(observer)
	subscriber.Add(o.trySubscribe(subscriber))
	return subscriber
}

// SubscribeWithCallbacks 使用回调函数订阅
func (o *Observable) SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) *Subscriber {
	return o.Subscribe(ObserverFuncs{
		OnNext:     onNext,
		OnError:    onError,
		OnComplete: onComplete,
	})
}

// AsObservable 返回自身
func (o *Observable) AsObservable() *Observable {
	return o
}

// AsyncIterator 把Observable转换为拉取式迭代器
func (o *Observable) AsyncIterator() AsyncIterator {
	return ToIterator(o)
}

// Values 以range-over-func的方式拉取所有值，提前结束循环会取消订阅
func (o *Observable) Values(ctx context.Context) iter.Seq2[interface{}, error] {
	return ToIterator(o).All(ctx)
}

func (o *Observable) toSubscriber(observer Observer) *Subscriber {
	if s, ok := observer.(*Subscriber); ok && s != nil {
		return s
	}
	return newSubscriber(observer, o.config)
}

// trySubscribe 初始化函数中的panic在subscriber停止前转为错误通知，停止后重新抛出
func (o *Observable) trySubscribe(subscriber *Subscriber) (teardown Teardown) {
	defer func() {
		if r := recover(); r != nil {
			if subscriber.IsStopped() {
				panic(r)
			}
			subscriber.Error(toError(r))
			teardown = nil
		}
	}()

	if o.operator != nil {
		return o.operator.Call(subscriber, o.source)
	}
	if o.subscribe == nil {
		return nil
	}
	return o.subscribe(subscriber)
}
