// Operator contract for RxGo
// 所有管道阶段实现的操作符契约，以及构造内部Subscriber的标准方式
package rxgo

// ============================================================================
// 操作符契约
// ============================================================================

// Operator 管道阶段：用source驱动subscriber，返回的清理动作由subscriber持有
type Operator interface {
	Call(subscriber *Subscriber, source *Observable) Teardown
}

// OperatorFunc 可用于Pipe的操作符
type OperatorFunc func(source *Observable) *Observable

// FuncOperator 函数形式的Operator
type FuncOperator func(subscriber *Subscriber, source *Observable) Teardown

// Call 实现Operator
func (f FuncOperator) Call(subscriber *Subscriber, source *Observable) Teardown {
	return f(subscriber, source)
}

// Operate 把Operator转换为OperatorFunc
func Operate(operator Operator) OperatorFunc {
	return func(source *Observable) *Observable {
		return source.Lift(operator)
	}
}

// ============================================================================
// 操作符内部Subscriber
// ============================================================================

// OperatorHandlers 内部Subscriber的处理函数，nil表示原样转发给下游
type OperatorHandlers struct {
	// OnNext 返回的错误会作为错误通知发给下游
	OnNext     func(value interface{}) error
	OnError    func(err error)
	OnComplete func()
	// OnFinalize 内部Subscriber释放时执行
	OnFinalize func()
}

// NewOperatorSubscriber 构造订阅source用的内部Subscriber。
//
// 处理函数在保护区内执行：返回的错误或panic转换为destination.Error，
// 随后内部Subscriber取消对source的订阅，用户代码不会让panic逃出管道。
// 内部Subscriber作为子节点加入destination。
func NewOperatorSubscriber(destination *Subscriber, handlers OperatorHandlers) *Subscriber {
	observer := &operatorObserver{
		destination: destination,
		handlers:    handlers,
	}
	subscriber := newRawSubscriber(observer, destination.config)
	observer.self = subscriber
	if handlers.OnFinalize != nil {
		subscriber.Add(handlers.OnFinalize)
	}
	destination.Add(subscriber)
	return subscriber
}

type operatorObserver struct {
	destination *Subscriber
	handlers    OperatorHandlers
	self        *Subscriber
}

func (o *operatorObserver) Next(value interface{}) {
	if o.handlers.OnNext == nil {
		o.destination.Next(value)
		return
	}
	if err := safeExecuteErr(func() error { return o.handlers.OnNext(value) }); err != nil {
		o.fail(err)
	}
}

func (o *operatorObserver) Error(err error) {
	if o.handlers.OnError == nil {
		o.destination.Error(err)
		return
	}
	if perr := SafeExecute(func() { o.handlers.OnError(err) }); perr != nil {
		o.destination.Error(perr)
	}
}

func (o *operatorObserver) Complete() {
	if o.handlers.OnComplete == nil {
		o.destination.Complete()
		return
	}
	if err := SafeExecute(o.handlers.OnComplete); err != nil {
		o.destination.Error(err)
	}
}

// fail 转换错误后取消对source的订阅
func (o *operatorObserver) fail(err error) {
	o.destination.Error(err)
	if uerr := o.self.Unsubscribe(); uerr != nil {
		resolveConfig(o.self.config).reportUnhandledError(uerr)
	}
}
