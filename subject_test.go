// Subject tests for RxGo
// Subject家族测试：快照广播、迟到订阅者、销毁以及各变体的重放语义
package rxgo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Subject
// ============================================================================

func TestSubject(t *testing.T) {
	t.Run("向所有订阅者广播", func(t *testing.T) {
		subject := NewSubject()
		a, b := newRecorder(), newRecorder()
		subject.Subscribe(a)
		subject.Subscribe(b)

		subject.Next(1)
		subject.Complete()

		assert.Equal(t, []string{"next(1)", "complete"}, a.trace())
		assert.Equal(t, []string{"next(1)", "complete"}, b.trace())
		assert.False(t, subject.HasObservers())
	})

	t.Run("广播期间新增的订阅者不收到当前值", func(t *testing.T) {
		subject := NewSubject()
		late := newRecorder()
		subscribed := false
		subject.SubscribeWithCallbacks(func(interface{}) {
			if !subscribed {
				subscribed = true
				subject.Subscribe(late)
			}
		}, nil, nil)

		subject.Next(1)
		assert.Empty(t, late.values())
		subject.Next(2)
		assert.Equal(t, []interface{}{2}, late.values())
	})

	t.Run("广播期间取消的订阅者不再收到通知", func(t *testing.T) {
		subject := NewSubject()
		second := newRecorder()
		var secondSub *Subscriber
		subject.SubscribeWithCallbacks(func(interface{}) {
			if secondSub != nil {
				_ = secondSub.Unsubscribe()
			}
		}, nil, nil)
		secondSub = subject.Subscribe(second)

		subject.Next(1)
		subject.Next(2)

		// 快照中仍包含second，但它的Subscriber已停止
		assert.Equal(t, []interface{}{}, second.values())
		assert.Equal(t, 1, subject.ObserverCount())
	})

	t.Run("取消订阅后从登记表移除", func(t *testing.T) {
		subject := NewSubject()
		rec := newRecorder()
		sub := subject.Subscribe(rec)
		require.Equal(t, 1, subject.ObserverCount())

		require.NoError(t, sub.Unsubscribe())
		assert.Equal(t, 0, subject.ObserverCount())

		subject.Next(1)
		assert.Empty(t, rec.trace())
	})

	t.Run("完成后到达的订阅者立即收到完成", func(t *testing.T) {
		subject := NewSubject()
		subject.Next(1)
		subject.Complete()

		rec := newRecorder()
		sub := subject.Subscribe(rec)
		assert.Equal(t, []string{"complete"}, rec.trace())
		assert.True(t, sub.Closed())
	})

	t.Run("出错后到达的订阅者立即收到错误", func(t *testing.T) {
		subject := NewSubject()
		subject.Error(errBoom)

		rec := newRecorder()
		subject.Subscribe(rec)
		assert.Equal(t, []string{"error(boom)"}, rec.trace())
	})

	t.Run("停止之后的通知被忽略", func(t *testing.T) {
		subject := NewSubject()
		rec := newRecorder()
		subject.Subscribe(rec)

		subject.Complete()
		subject.Next(1)
		subject.Error(errBoom)
		subject.Complete()

		assert.Equal(t, []string{"complete"}, rec.trace())
		assert.True(t, subject.IsStopped())
	})

	t.Run("销毁后推送会panic", func(t *testing.T) {
		subject := NewSubject()
		require.NoError(t, subject.Unsubscribe())

		assert.True(t, subject.Closed())
		assert.PanicsWithError(t, ErrObjectUnsubscribed.Error(), func() { subject.Next(1) })
		assert.PanicsWithError(t, ErrObjectUnsubscribed.Error(), func() { subject.Error(errBoom) })
		assert.PanicsWithError(t, ErrObjectUnsubscribed.Error(), func() { subject.Complete() })
	})

	t.Run("销毁后订阅收到错误通知", func(t *testing.T) {
		subject := NewSubject()
		require.NoError(t, subject.Unsubscribe())

		rec := newRecorder()
		subject.Subscribe(rec)
		assert.ErrorIs(t, rec.err(), ErrObjectUnsubscribed)
	})

	t.Run("AsObservable只暴露订阅能力", func(t *testing.T) {
		subject := NewSubject()
		rec := newRecorder()
		subject.AsObservable().Pipe(Map(func(v interface{}) (interface{}, error) {
			return v.(int) + 1, nil
		})).Subscribe(rec)

		subject.Next(1)
		assert.Equal(t, []interface{}{2}, rec.values())
	})
}

// ============================================================================
// BehaviorSubject
// ============================================================================

func TestBehaviorSubject(t *testing.T) {
	t.Run("新订阅者先收到当前值", func(t *testing.T) {
		subject := NewBehaviorSubject(0)
		a := newRecorder()
		subject.Subscribe(a)
		subject.Next(1)
		subject.Next(2)

		b := newRecorder()
		subject.Subscribe(b)
		subject.Next(3)

		assert.Equal(t, []interface{}{0, 1, 2, 3}, a.values())
		assert.Equal(t, []interface{}{2, 3}, b.values())
	})

	t.Run("Value返回当前值", func(t *testing.T) {
		subject := NewBehaviorSubject("init")
		v, err := subject.Value()
		require.NoError(t, err)
		assert.Equal(t, "init", v)

		subject.Next("next")
		v, err = subject.Value()
		require.NoError(t, err)
		assert.Equal(t, "next", v)
	})

	t.Run("完成后保留最后的值但不再发送给新订阅者", func(t *testing.T) {
		subject := NewBehaviorSubject(1)
		subject.Complete()
		subject.Next(2)

		v, err := subject.Value()
		require.NoError(t, err)
		assert.Equal(t, 1, v)

		rec := newRecorder()
		subject.Subscribe(rec)
		assert.Equal(t, []string{"complete"}, rec.trace())
	})

	t.Run("出错后Value返回错误", func(t *testing.T) {
		subject := NewBehaviorSubject(1)
		subject.Error(errBoom)

		_, err := subject.Value()
		assert.Same(t, errBoom, err)
	})

	t.Run("销毁后Value返回ErrObjectUnsubscribed", func(t *testing.T) {
		subject := NewBehaviorSubject(1)
		require.NoError(t, subject.Unsubscribe())

		_, err := subject.Value()
		assert.ErrorIs(t, err, ErrObjectUnsubscribed)
		assert.Panics(t, func() { subject.Next(2) })
	})
}

// ============================================================================
// ReplaySubject
// ============================================================================

func TestReplaySubject(t *testing.T) {
	t.Run("按缓冲大小重放最近的值", func(t *testing.T) {
		subject := NewReplaySubject(2, 0)
		subject.Next(1)
		subject.Next(2)
		subject.Next(3)

		rec := newRecorder()
		subject.Subscribe(rec)
		subject.Next(4)

		assert.Equal(t, []interface{}{2, 3, 4}, rec.values())
		assert.Equal(t, 2, subject.BufferedCount())
	})

	t.Run("不限数量时重放全部历史", func(t *testing.T) {
		subject := NewReplaySubject(0, 0)
		for i := 0; i < 5; i++ {
			subject.Next(i)
		}

		rec := newRecorder()
		subject.Subscribe(rec)
		assert.Equal(t, []interface{}{0, 1, 2, 3, 4}, rec.values())
	})

	t.Run("时间窗口由调度器的时钟驱动", func(t *testing.T) {
		scheduler := NewVirtualTimeScheduler(0)
		subject := NewReplaySubject(0, 100*time.Millisecond, WithScheduler(scheduler))

		subject.Next(1)
		require.NoError(t, scheduler.AdvanceBy(50*time.Millisecond))
		subject.Next(2)
		require.NoError(t, scheduler.AdvanceBy(60*time.Millisecond))

		rec := newRecorder()
		subject.Subscribe(rec)
		assert.Equal(t, []interface{}{2}, rec.values())

		require.NoError(t, scheduler.AdvanceBy(50*time.Millisecond))
		assert.Equal(t, 0, subject.BufferedCount())
	})

	t.Run("完成后先重放历史再发送完成", func(t *testing.T) {
		subject := NewReplaySubject(0, 0)
		subject.Next(1)
		subject.Next(2)
		subject.Complete()

		rec := newRecorder()
		subject.Subscribe(rec)
		assert.Equal(t, []string{"next(1)", "next(2)", "complete"}, rec.trace())
	})

	t.Run("出错后先重放历史再发送错误", func(t *testing.T) {
		subject := NewReplaySubject(1, 0)
		subject.Next(1)
		subject.Next(2)
		subject.Error(errBoom)

		rec := newRecorder()
		subject.Subscribe(rec)
		assert.Equal(t, []string{"next(2)", "error(boom)"}, rec.trace())
	})

	t.Run("重放期间取消订阅时停止重放", func(t *testing.T) {
		subject := NewReplaySubject(0, 0)
		subject.Next(1)
		subject.Next(2)
		subject.Next(3)

		rec := newRecorder()
		subject.Pipe(Take(1)).Subscribe(rec)
		assert.Equal(t, []string{"next(1)", "complete"}, rec.trace())
		assert.Equal(t, 0, subject.ObserverCount())
	})
}

// ============================================================================
// AsyncSubject
// ============================================================================

func TestAsyncSubject(t *testing.T) {
	t.Run("完成时只发送最后的值", func(t *testing.T) {
		subject := NewAsyncSubject()
		rec := newRecorder()
		subject.Subscribe(rec)

		subject.Next(1)
		subject.Next(2)
		assert.Empty(t, rec.trace())

		subject.Complete()
		assert.Equal(t, []string{"next(2)", "complete"}, rec.trace())
	})

	t.Run("完成后的订阅者收到最后的值和完成", func(t *testing.T) {
		subject := NewAsyncSubject()
		subject.Next("v")
		subject.Complete()

		rec := newRecorder()
		subject.Subscribe(rec)
		assert.Equal(t, []string{"next(v)", "complete"}, rec.trace())
	})

	t.Run("没有值时只发送完成", func(t *testing.T) {
		subject := NewAsyncSubject()
		rec := newRecorder()
		subject.Subscribe(rec)
		subject.Complete()

		assert.Equal(t, []string{"complete"}, rec.trace())
	})

	t.Run("出错时只发送错误", func(t *testing.T) {
		subject := NewAsyncSubject()
		rec := newRecorder()
		subject.Subscribe(rec)
		subject.Next(1)
		subject.Error(errBoom)

		assert.Equal(t, []string{"error(boom)"}, rec.trace())

		late := newRecorder()
		subject.Subscribe(late)
		assert.Equal(t, []string{"error(boom)"}, late.trace())
	})

	t.Run("重复完成只发送一次", func(t *testing.T) {
		subject := NewAsyncSubject()
		rec := newRecorder()
		subject.Subscribe(rec)
		subject.Next(1)
		subject.Complete()
		subject.Complete()

		assert.Equal(t, []string{"next(1)", "complete"}, rec.trace())
	})
}
