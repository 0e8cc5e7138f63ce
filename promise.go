// Promise conversions for RxGo
// 把Observable转换为单个结果：ToPromise、FirstValueFrom、LastValueFrom
package rxgo

import (
	"context"
	"errors"
	"fmt"
)

// ToPromise 订阅并在完成时以最后一个值结算（没有值时为nil），出错时以错误结算。
// Promise由配置中的构造函数创建，默认为Deferred
func (o *Observable) ToPromise() Promise {
	promise := resolveConfig(o.config).newPromise()

	var last interface{}
	o.Subscribe(ObserverFuncs{
		OnNext: func(value interface{}) {
			last = value
		},
		OnError: func(err error) {
			promise.Reject(err)
		},
		OnComplete: func() {
			promise.Resolve(last)
		},
	})
	return promise
}

// FirstValueFrom 等待第一个值后取消订阅。
// 没有任何值就完成时返回ErrEmpty；ctx结束时取消订阅并返回ctx.Err()，
// 超时的错误同时匹配ErrTimeout
func FirstValueFrom(ctx context.Context, source *Observable) (interface{}, error) {
	deferred := NewDeferred()

	var subscriber *Subscriber
	subscriber = newSubscriber(ObserverFuncs{
		OnNext: func(value interface{}) {
			deferred.Resolve(value)
			_ = subscriber.Unsubscribe()
		},
		OnError: func(err error) {
			deferred.Reject(err)
		},
		OnComplete: func() {
			deferred.Reject(ErrEmpty)
		},
	}, source.config)
	source.Subscribe(subscriber)

	value, err := deferred.Await(ctx)
	if uerr := subscriber.Unsubscribe(); uerr != nil {
		resolveConfig(source.config).reportUnhandledError(uerr)
	}
	return value, awaitError(ctx, err)
}

// LastValueFrom 等待完成并返回最后一个值。
// 没有任何值就完成时返回ErrEmpty；ctx结束时取消订阅并返回ctx.Err()，
// 超时的错误同时匹配ErrTimeout
func LastValueFrom(ctx context.Context, source *Observable) (interface{}, error) {
	deferred := NewDeferred()

	var (
		last     interface{}
		hasValue bool
	)
	subscriber := source.Subscribe(ObserverFuncs{
		OnNext: func(value interface{}) {
			last, hasValue = value, true
		},
		OnError: func(err error) {
			deferred.Reject(err)
		},
		OnComplete: func() {
			if !hasValue {
				deferred.Reject(ErrEmpty)
				return
			}
			deferred.Resolve(last)
		},
	})

	value, err := deferred.Await(ctx)
	if uerr := subscriber.Unsubscribe(); uerr != nil {
		resolveConfig(source.config).reportUnhandledError(uerr)
	}
	return value, awaitError(ctx, err)
}

// awaitError ctx超时映射为ErrTimeout，保留context.DeadlineExceeded
func awaitError(ctx context.Context, err error) error {
	if err != nil && err == ctx.Err() && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
