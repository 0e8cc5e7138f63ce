// Virtual time scheduler for RxGo
// 虚拟时间调度器：不接触真实时间，使依赖相对延迟的管道在测试中完全可重现
package rxgo

import (
	"container/heap"
	"math"
	"sync"
	"time"
)

// ============================================================================
// 虚拟时间调度器 - Virtual Time Scheduler
// ============================================================================

// VirtualTimeScheduler 持有按(到期时间, 插入序号)排序的待执行动作和一个单调递增的虚拟时钟。
// 到期时间相同的动作按调度顺序执行
type VirtualTimeScheduler struct {
	mu        sync.Mutex
	actions   actionHeap
	frame     time.Duration
	maxFrames time.Duration
	seq       int64
}

// NewVirtualTimeScheduler 创建虚拟时间调度器，maxFrames<=0表示不限制
func NewVirtualTimeScheduler(maxFrames time.Duration) *VirtualTimeScheduler {
	if maxFrames <= 0 {
		maxFrames = math.MaxInt64
	}
	return &VirtualTimeScheduler{maxFrames: maxFrames}
}

// virtualEpoch 虚拟时钟的零点
var virtualEpoch = time.Unix(0, 0).UTC()

// Now 虚拟时钟对应的时间
func (s *VirtualTimeScheduler) Now() time.Time {
	return virtualEpoch.Add(s.Frame())
}

// Frame 当前虚拟时钟
func (s *VirtualTimeScheduler) Frame() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Pending 尚未执行且未取消的动作数量
func (s *VirtualTimeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, a := range s.actions {
		if !a.handle.Closed() {
			n++
		}
	}
	return n
}

// Schedule 调度工作，到期时间为当前虚拟时钟加上delay
func (s *VirtualTimeScheduler) Schedule(work Work, delay time.Duration, state interface{}) *Subscription {
	return scheduleAction(s, work, delay, state)
}

func (s *VirtualTimeScheduler) enqueue(action *Action) {
	delay := action.delay
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	s.seq++
	action.seq = s.seq
	action.due = s.frame + delay
	heap.Push(&s.actions, action)
	s.mu.Unlock()
}

// Flush 执行所有到期时间不超过maxFrames的动作。
// 动作失败时剩余的动作全部取消，错误原样返回
func (s *VirtualTimeScheduler) Flush() error {
	return s.flushUntil(s.maxFrames)
}

// AdvanceTo 执行到期时间不超过frame的动作，然后把时钟推进到frame
func (s *VirtualTimeScheduler) AdvanceTo(frame time.Duration) error {
	if err := s.flushUntil(frame); err != nil {
		return err
	}
	s.mu.Lock()
	if frame > s.frame {
		s.frame = frame
	}
	s.mu.Unlock()
	return nil
}

// AdvanceBy 把时钟向前推进d
func (s *VirtualTimeScheduler) AdvanceBy(d time.Duration) error {
	return s.AdvanceTo(s.Frame() + d)
}

func (s *VirtualTimeScheduler) flushUntil(limit time.Duration) error {
	for {
		s.mu.Lock()
		if len(s.actions) == 0 || s.actions[0].due > limit {
			s.mu.Unlock()
			return nil
		}
		action := heap.Pop(&s.actions).(*Action)
		// 已取消的动作不推进时钟
		if action.handle.Closed() {
			s.mu.Unlock()
			continue
		}
		s.frame = action.due
		s.mu.Unlock()

		if err := action.execute(); err != nil {
			s.mu.Lock()
			rest := s.actions
			s.actions = nil
			s.mu.Unlock()

			for _, a := range rest {
				_ = a.handle.Unsubscribe()
			}
			return err
		}
	}
}

// ============================================================================
// 优先队列
// ============================================================================

type actionHeap []*Action

func (h actionHeap) Len() int { return len(h) }

func (h actionHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h actionHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *actionHeap) Push(x interface{}) {
	action := x.(*Action)
	action.index = len(*h)
	*h = append(*h, action)
}

func (h *actionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	action := old[n-1]
	old[n-1] = nil
	action.index = -1
	*h = old[:n-1]
	return action
}
