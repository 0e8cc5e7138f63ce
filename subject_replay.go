// ReplaySubject implementation for RxGo
// 重放主题：缓冲历史值，按数量和时间窗口裁剪
package rxgo

import (
	"time"

	"github.com/eapache/queue"
)

// ReplaySubject 向新订阅者按从旧到新的顺序重放缓冲的值，然后加入实时广播。
// 完成或出错之后的订阅者先收到历史值，再收到终止通知
type ReplaySubject struct {
	Subject
	buffer     *queue.Queue // replayEntry
	bufferSize int
	window     time.Duration
}

type replayEntry struct {
	value     interface{}
	timestamp time.Time
}

// NewReplaySubject 创建重放主题。
// bufferSize<=0表示不限数量，window<=0表示不限时间；时间戳取自配置的调度器，
// 因此虚拟时间调度器可以驱动时间窗口
func NewReplaySubject(bufferSize int, window time.Duration, opts ...Option) *ReplaySubject {
	return newReplaySubject(bufferSize, window, newConfig(opts))
}

func newReplaySubject(bufferSize int, window time.Duration, config *Config) *ReplaySubject {
	r := &ReplaySubject{
		buffer:     queue.New(),
		bufferSize: bufferSize,
		window:     window,
	}
	r.Subject.init(config, r.subscribe)
	return r
}

// Next 缓冲值并广播
func (r *ReplaySubject) Next(value interface{}) {
	r.mu.Lock()
	r.throwIfClosedLocked()
	if !r.isStopped {
		r.buffer.Add(replayEntry{value: value, timestamp: r.now()})
		r.trimBufferLocked()
	}
	r.mu.Unlock()

	r.Subject.Next(value)
}

// BufferedCount 当前缓冲（裁剪后）的值数量
func (r *ReplaySubject) BufferedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trimBufferLocked()
	return r.buffer.Length()
}

func (r *ReplaySubject) subscribe(subscriber *Subscriber) Teardown {
	r.mu.Lock()
	r.throwIfClosedLocked()
	r.trimBufferLocked()
	values := make([]interface{}, r.buffer.Length())
	for i := range values {
		values[i] = r.buffer.Get(i).(replayEntry).value
	}
	var teardown Teardown
	stopped := r.isStopped
	if !stopped {
		teardown = r.addObserverLocked(subscriber)
	}
	r.mu.Unlock()

	for _, v := range values {
		if subscriber.IsStopped() {
			break
		}
		subscriber.Next(v)
	}
	if stopped {
		r.checkFinalizedStatuses(subscriber)
	}
	return teardown
}

func (r *ReplaySubject) now() time.Time {
	return resolveConfig(r.config).scheduler().Now()
}

// trimBufferLocked 调用方持有锁
func (r *ReplaySubject) trimBufferLocked() {
	if r.bufferSize > 0 {
		for r.buffer.Length() > r.bufferSize {
			r.buffer.Remove()
		}
	}
	if r.window > 0 {
		cutoff := r.now().Add(-r.window)
		for r.buffer.Length() > 0 && !r.buffer.Peek().(replayEntry).timestamp.After(cutoff) {
			r.buffer.Remove()
		}
	}
}
