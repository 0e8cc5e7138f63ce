// Subscriber tests for RxGo
// Subscriber测试：停止状态、终止通知、直通与未处理错误
package rxgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriber(t *testing.T) {
	t.Run("停止之后的通知全部丢弃", func(t *testing.T) {
		count := 0
		s := NewSubscriber(ObserverFuncs{
			OnNext:  func(interface{}) { count++ },
			OnError: func(error) { count += 100 },
		})

		s.Next(1)
		s.Next(2)
		require.NoError(t, s.Unsubscribe())
		s.Next(3)
		s.Error(errBoom)
		s.Complete()

		assert.Equal(t, 2, count)
	})

	t.Run("同一个观察者上的Subscriber相互独立", func(t *testing.T) {
		observer := newRecorder()
		s1 := NewSubscriber(observer)
		s2 := NewSubscriber(observer)

		s1.Complete()
		assert.True(t, s1.Closed())
		assert.False(t, s2.Closed())
	})

	t.Run("终止通知只投递一次并释放资源", func(t *testing.T) {
		rec := newRecorder()
		s := NewSubscriber(rec)
		released := 0
		s.Add(func() { released++ })

		s.Error(errBoom)
		s.Error(errBoom)
		s.Complete()

		assert.Equal(t, []string{"error(boom)"}, rec.trace())
		assert.Equal(t, 1, released)
		assert.True(t, s.Closed())
		assert.True(t, s.IsStopped())
	})

	t.Run("缺少错误处理时上报未处理错误", func(t *testing.T) {
		var captured error
		s := NewSubscriber(ObserverFuncs{}, WithUnhandledErrorHandler(func(err error) {
			captured = err
		}))

		s.Error(errBoom)
		assert.Same(t, errBoom, captured)
	})

	t.Run("缺少值与完成处理时静默丢弃", func(t *testing.T) {
		unhandled := captureUnhandled(t)
		s := NewSubscriber(ObserverFuncs{})

		s.Next(1)
		s.Complete()
		assert.True(t, s.Closed())
		assert.Empty(t, unhandled())
	})

	t.Run("消费者的panic不会回卷到生产者", func(t *testing.T) {
		unhandled := captureUnhandled(t)
		s := NewSubscriber(ObserverFuncs{
			OnNext: func(interface{}) { panic("consumer") },
		})

		assert.NotPanics(t, func() { s.Next(1) })
		errs := unhandled()
		require.Len(t, errs, 1)

		var perr *PanicError
		require.ErrorAs(t, errs[0], &perr)
		assert.Equal(t, "consumer", perr.Value)
	})

	t.Run("直通Subscriber共享下游的停止状态", func(t *testing.T) {
		rec := newRecorder()
		inner := NewSubscriber(rec)
		outer := NewSubscriber(inner)

		outer.Next(1)
		require.NoError(t, inner.Unsubscribe())
		outer.Next(2)

		assert.Equal(t, []interface{}{1}, rec.values())
		assert.True(t, outer.Closed())
	})

	t.Run("已停止时的通知交给钩子", func(t *testing.T) {
		var dropped []Item
		s := NewSubscriber(newRecorder(), WithStoppedNotificationHandler(func(item Item, _ *Subscriber) {
			dropped = append(dropped, item)
		}))

		s.Complete()
		s.Next(5)
		s.Error(errBoom)

		assert.Equal(t, []Item{CreateItem(5), CreateErrorItem(errBoom)}, dropped)
	})

	t.Run("ObserverFuncs指针", func(t *testing.T) {
		var got []interface{}
		s := NewSubscriber(&ObserverFuncs{OnNext: func(v interface{}) { got = append(got, v) }})
		s.Next("x")
		assert.Equal(t, []interface{}{"x"}, got)
	})
}
