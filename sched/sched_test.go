package sched

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akitasoftware/flowcore/packet"
)

func TestLoopRunsTaskUntilItReturnsFalse(t *testing.T) {
	rt := NewRuntime(1)
	loop := rt.Loop(0)

	var mu sync.Mutex
	count := 0
	done := make(chan struct{})

	task := NewTask(func() bool {
		mu.Lock()
		count++
		c := count
		mu.Unlock()
		if c >= 3 {
			close(done)
			return false
		}
		return true
	})
	loop.AddTask(task)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go rt.Run(ctx)

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("task did not run to completion")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, count)
}

func TestTimerWheelFiresInOrder(t *testing.T) {
	w := NewTimerWheel()
	var mu sync.Mutex
	var order []int

	w.ScheduleAfter(20*time.Millisecond, func() {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
	})
	w.ScheduleAfter(5*time.Millisecond, func() {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
	})

	time.Sleep(30 * time.Millisecond)
	fired := w.Advance(time.Now())
	require.Equal(t, 2, fired)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, order)
}

func TestTimerUnschedule(t *testing.T) {
	w := NewTimerWheel()
	fired := false
	timer := w.ScheduleAfter(time.Millisecond, func() { fired = true })
	w.Unschedule(timer)

	time.Sleep(5 * time.Millisecond)
	w.Advance(time.Now())
	assert.False(t, fired)
}

func TestNotifierFiresOnlyOnRisingEdge(t *testing.T) {
	n := NewNotifier()
	calls := 0
	n.Listen(func() { calls++ })

	n.Signal()
	n.Signal() // already active; must not refire
	assert.Equal(t, 1, calls)

	n.Clear()
	n.Listen(func() { calls++ })
	n.Signal()
	assert.Equal(t, 2, calls)
}

func mkBatch(payload string) *packet.PacketBatch {
	return packet.MakeFromPacket(packet.New([]byte(payload), 0, 0, nil))
}

func TestPipelinerPreservesPerProducerOrder(t *testing.T) {
	p := NewPipeliner(2)
	p.Push(0, mkBatch("p0-a"))
	p.Push(0, mkBatch("p0-b"))
	p.Push(1, mkBatch("p1-a"))

	var got []string
	for {
		b := p.PullNext()
		if b == nil {
			break
		}
		got = append(got, string(b.Data()))
	}

	require.Len(t, got, 3)
	// Producer 0's two batches must appear in push order relative to
	// each other, regardless of producer 1's interleaving.
	idxA, idxB := -1, -1
	for i, s := range got {
		if s == "p0-a" {
			idxA = i
		}
		if s == "p0-b" {
			idxB = i
		}
	}
	assert.Less(t, idxA, idxB)
}
