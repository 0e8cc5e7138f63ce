// Test helpers for RxGo
// 测试辅助：记录所有通知的观察者
package rxgo

import (
	"errors"
	"sync"
	"testing"
)

var errBoom = errors.New("boom")

// recorder 记录收到的通知，可以安全地在多个goroutine中使用
type recorder struct {
	mu    sync.Mutex
	items []Item
	done  chan struct{}
	once  sync.Once
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{})}
}

func (r *recorder) Next(value interface{}) {
	r.mu.Lock()
	r.items = append(r.items, CreateItem(value))
	r.mu.Unlock()
}

func (r *recorder) Error(err error) {
	r.mu.Lock()
	r.items = append(r.items, CreateErrorItem(err))
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder) Complete() {
	r.mu.Lock()
	r.items = append(r.items, CreateCompleteItem())
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder) values() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := []interface{}{}
	for _, item := range r.items {
		if item.Kind == NextKind {
			values = append(values, item.Value)
		}
	}
	return values
}

func (r *recorder) completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items) > 0 && r.items[len(r.items)-1].IsComplete()
}

func (r *recorder) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.items {
		if item.IsError() {
			return item.Error
		}
	}
	return nil
}

// trace 所有通知的字符串形式
func (r *recorder) trace() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.items))
	for i, item := range r.items {
		out[i] = item.String()
	}
	return out
}

// captureUnhandled 替换全局配置，返回收集到的未处理错误
func captureUnhandled(t *testing.T) func() []error {
	t.Helper()

	var mu sync.Mutex
	var errs []error
	previous := GlobalConfig()
	config := DefaultConfig()
	config.OnUnhandledError = func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}
	SetGlobalConfig(config)
	t.Cleanup(func() { SetGlobalConfig(previous) })

	return func() []error {
		mu.Lock()
		defer mu.Unlock()
		return append([]error(nil), errs...)
	}
}

// recoverPanic 执行fn并返回panic的值
func recoverPanic(fn func()) (r interface{}) {
	defer func() {
		r = recover()
	}()
	fn()
	return nil
}
