// Subscription implementation for RxGo
// 订阅与清理动作的所有权树
package rxgo

import (
	"fmt"
	"reflect"
	"sync"
)

// ============================================================================
// 生命周期管理
// ============================================================================

// Unsubscribable 可以取消订阅的资源
type Unsubscribable interface {
	// Unsubscribe 取消订阅，返回清理过程中出现的错误
	Unsubscribe() error
}

// Teardown 一个清理动作，可以是以下之一：
//   - nil（无操作）
//   - func() 或 func() error（任何无参数的具名函数类型也可以，例如context.CancelFunc）
//   - Unsubscribable，包括*Subscription与*Subscriber
type Teardown interface{}

// subscriptionHolder 由*Subscription以及嵌入它的类型实现
type subscriptionHolder interface {
	subscription() *Subscription
}

// Subscription 拥有一组有序的子清理动作。
//
// 状态只有活动与关闭两种，关闭是永久且幂等的。子Subscription关闭时
// 会把自己从所有父节点中移除，因此独立结束的分支不会在父节点中泄漏。
type Subscription struct {
	mu              sync.Mutex
	closed          bool
	initialTeardown func() error
	teardowns       []Unsubscribable
	parents         []*Subscription
	owner           Unsubscribable // 登记在父节点中的值（自身或嵌入它的Subscriber）
	config          *Config
}

// NewSubscription 创建订阅，initial在Unsubscribe时最先执行
func NewSubscription(initial Teardown) *Subscription {
	s := &Subscription{}
	s.init(initial, s, nil)
	return s
}

func (s *Subscription) init(initial Teardown, owner Unsubscribable, config *Config) {
	s.owner = owner
	s.config = config
	if initial != nil {
		fn, ok := teardownFunc(initial)
		if !ok {
			panic(fmt.Errorf("rxgo: unsupported teardown type %T", initial))
		}
		s.initialTeardown = fn
	}
	globalStats.subscriptionsOpened.Add(1)
}

func (s *Subscription) subscription() *Subscription {
	return s
}

// Closed 检查是否已关闭
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Add 添加子清理动作。
//
// 在已关闭的Subscription上添加会立即执行该清理动作；添加自身或nil不做任何事。
// 函数类型的清理动作不可比较，若之后需要Remove，请先用NewSubscription包装。
func (s *Subscription) Add(teardown Teardown) {
	child, ok := asUnsubscribable(teardown)
	if !ok {
		panic(fmt.Errorf("rxgo: unsupported teardown type %T", teardown))
	}
	if child == nil || child == s.owner {
		return
	}

	if holder, ok := child.(subscriptionHolder); ok {
		inner := holder.subscription()
		if inner == nil || inner == s {
			return
		}
		// 已关闭的子节点或重复添加
		if !inner.addParent(s) {
			return
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if err := safeExecuteErr(child.Unsubscribe); err != nil {
			resolveConfig(s.config).reportUnhandledError(err)
		}
		return
	}
	s.teardowns = append(s.teardowns, child)
	s.mu.Unlock()
}

// Remove 移除子清理动作但不执行它
func (s *Subscription) Remove(teardown Unsubscribable) {
	if teardown == nil || !reflect.TypeOf(teardown).Comparable() {
		return
	}

	s.mu.Lock()
	for i, t := range s.teardowns {
		if t == teardown {
			s.teardowns = append(s.teardowns[:i:i], s.teardowns[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if holder, ok := teardown.(subscriptionHolder); ok {
		if inner := holder.subscription(); inner != nil {
			inner.removeParent(s)
		}
	}
}

// Unsubscribe 关闭并执行所有清理动作。
//
// 每个清理动作都会被尝试，即使之前的动作失败。只有一个失败时原样返回该错误，
// 多个失败时返回*UnsubscriptionError。第二次调用不做任何事。
func (s *Subscription) Unsubscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	parents := s.parents
	initial := s.initialTeardown
	teardowns := s.teardowns
	s.parents, s.initialTeardown, s.teardowns = nil, nil, nil
	s.mu.Unlock()

	globalStats.subscriptionsClosed.Add(1)

	for _, parent := range parents {
		parent.Remove(s.owner)
	}

	var errs []error
	if initial != nil {
		errs = appendError(errs, safeExecuteErr(initial))
	}
	for _, t := range teardowns {
		errs = appendError(errs, safeExecuteErr(t.Unsubscribe))
	}
	return combineErrors(errs)
}

func (s *Subscription) addParent(parent *Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	for _, p := range s.parents {
		if p == parent {
			return false
		}
	}
	s.parents = append(s.parents, parent)
	return true
}

func (s *Subscription) removeParent(parent *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.parents {
		if p == parent {
			s.parents = append(s.parents[:i:i], s.parents[i+1:]...)
			return
		}
	}
}

// ============================================================================
// 清理动作转换
// ============================================================================

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func asUnsubscribable(teardown Teardown) (Unsubscribable, bool) {
	switch t := teardown.(type) {
	case nil:
		return nil, true
	case *Subscription:
		if t == nil {
			return nil, true
		}
		return t, true
	case Unsubscribable:
		return t, true
	}

	fn, ok := teardownFunc(teardown)
	if !ok {
		return nil, false
	}
	return NewSubscription(fn), true
}

func teardownFunc(teardown Teardown) (func() error, bool) {
	switch t := teardown.(type) {
	case func():
		return func() error {
			t()
			return nil
		}, true
	case func() error:
		return t, true
	case Unsubscribable:
		return t.Unsubscribe, true
	}

	rv := reflect.ValueOf(teardown)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, false
	}
	typ := rv.Type()
	if typ.NumIn() != 0 {
		return nil, false
	}
	switch {
	case typ.NumOut() == 0:
		return func() error {
			rv.Call(nil)
			return nil
		}, true
	case typ.NumOut() == 1 && typ.Out(0) == errorType:
		return func() error {
			err, _ := rv.Call(nil)[0].Interface().(error)
			return err
		}, true
	}
	return nil, false
}
