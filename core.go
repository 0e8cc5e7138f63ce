// Package rxgo provides a push-based reactive-stream runtime for Go
// 推送式响应流运行时：订阅生命周期、操作符组合、调度器、Subject多播以及推拉桥接
package rxgo

import "fmt"

// ============================================================================
// 通知类型定义
// ============================================================================

// ItemKind 通知的种类
type ItemKind int

const (
	// NextKind 值通知
	NextKind ItemKind = iota
	// ErrorKind 错误通知（终止）
	ErrorKind
	// CompleteKind 完成通知（终止）
	CompleteKind
)

func (k ItemKind) String() string {
	switch k {
	case NextKind:
		return "next"
	case ErrorKind:
		return "error"
	case CompleteKind:
		return "complete"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
}

// Item 表示流中的一个通知：值、错误或完成
type Item struct {
	Kind  ItemKind    // 通知种类
	Value interface{} // 数据值，仅NextKind有效
	Error error       // 错误信息，仅ErrorKind有效
}

// IsError 检查是否为错误通知
func (item Item) IsError() bool {
	return item.Kind == ErrorKind
}

// IsComplete 检查是否为完成通知
func (item Item) IsComplete() bool {
	return item.Kind == CompleteKind
}

// IsTerminal 检查是否为终止通知
func (item Item) IsTerminal() bool {
	return item.Kind != NextKind
}

// Accept 将通知投递给观察者
func (item Item) Accept(observer Observer) {
	switch item.Kind {
	case NextKind:
		observer.Next(item.Value)
	case ErrorKind:
		observer.Error(item.Error)
	case CompleteKind:
		observer.Complete()
	}
}

func (item Item) String() string {
	switch item.Kind {
	case NextKind:
		return fmt.Sprintf("next(%v)", item.Value)
	case ErrorKind:
		return fmt.Sprintf("error(%v)", item.Error)
	default:
		return item.Kind.String()
	}
}

// CreateItem 创建值通知
func CreateItem(value interface{}) Item {
	return Item{Kind: NextKind, Value: value}
}

// CreateErrorItem 创建错误通知
func CreateErrorItem(err error) Item {
	return Item{Kind: ErrorKind, Error: err}
}

// CreateCompleteItem 创建完成通知
func CreateCompleteItem() Item {
	return Item{Kind: CompleteKind}
}

// ============================================================================
// 函数类型定义
// ============================================================================

// OnNext 处理下一个值的函数
type OnNext func(value interface{})

// OnError 处理错误的函数
type OnError func(err error)

// OnComplete 处理完成的函数
type OnComplete func()

// Predicate 谓词函数，用于过滤
type Predicate func(value interface{}) bool

// Transformer 转换函数，用于映射。返回的错误会作为错误通知向下游传递
type Transformer func(value interface{}) (interface{}, error)

// ============================================================================
// Observer 观察者
// ============================================================================

// Observer 接收next/error/complete三种通知的接收端
type Observer interface {
	Next(value interface{})
	Error(err error)
	Complete()
}

// ObserverFuncs 由可选回调组成的观察者，nil字段表示缺少该能力。
// 缺少OnError时错误不会被静默丢弃，而是上报到Config的未处理错误通道，
// Config为nil时使用全局配置。作为订阅者的目标时使用订阅者自己的配置
type ObserverFuncs struct {
	OnNext     OnNext
	OnError    OnError
	OnComplete OnComplete
	Config     *Config
}

// Next 实现Observer
func (o ObserverFuncs) Next(value interface{}) {
	if o.OnNext != nil {
		o.OnNext(value)
	}
}

// Error 实现Observer
func (o ObserverFuncs) Error(err error) {
	if o.OnError == nil {
		resolveConfig(o.Config).reportUnhandledError(err)
		return
	}
	o.OnError(err)
}

// Complete 实现Observer
func (o ObserverFuncs) Complete() {
	if o.OnComplete != nil {
		o.OnComplete()
	}
}

// consumerObserver 包装最终消费者，消费者回调中的panic不会回卷到生产者
type consumerObserver struct {
	onNext     OnNext
	onError    OnError
	onComplete OnComplete
	config     *Config
}

func newConsumerObserver(observer Observer, config *Config) *consumerObserver {
	c := &consumerObserver{config: config}
	c.onNext, c.onError, c.onComplete = observerCallbacks(observer)
	return c
}

// observerCallbacks 拆分观察者的回调，ObserverFuncs中的nil字段保持为nil
func observerCallbacks(observer Observer) (OnNext, OnError, OnComplete) {
	switch o := observer.(type) {
	case nil:
		return nil, nil, nil
	case ObserverFuncs:
		return o.OnNext, o.OnError, o.OnComplete
	case *ObserverFuncs:
		if o == nil {
			return nil, nil, nil
		}
		return o.OnNext, o.OnError, o.OnComplete
	default:
		return o.Next, o.Error, o.Complete
	}
}

func (c *consumerObserver) Next(value interface{}) {
	if c.onNext != nil {
		c.guard(func() { c.onNext(value) })
	}
}

func (c *consumerObserver) Error(err error) {
	if c.onError == nil {
		resolveConfig(c.config).reportUnhandledError(err)
		return
	}
	c.guard(func() { c.onError(err) })
}

func (c *consumerObserver) Complete() {
	if c.onComplete != nil {
		c.guard(c.onComplete)
	}
}

func (c *consumerObserver) guard(fn func()) {
	if err := SafeExecute(fn); err != nil {
		resolveConfig(c.config).reportUnhandledError(err)
	}
}

// ============================================================================
// 工具函数
// ============================================================================

// SafeExecute 安全执行函数，捕获panic并转换为error
func SafeExecute(action func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toError(r)
		}
	}()

	action()
	return nil
}

// safeExecuteErr 与SafeExecute相同，但同时返回函数自身的错误
func safeExecuteErr(action func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toError(r)
		}
	}()

	return action()
}
