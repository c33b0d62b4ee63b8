package reconcile

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsyncSink_DeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []int

	send, stop := NewAsyncSink(func(ev ProgressEvent) {
		mu.Lock()
		got = append(got, ev.Current)
		mu.Unlock()
	}, 100)

	for i := 0; i < 50; i++ {
		send(ProgressEvent{Phase: PhaseSyncing, Current: i})
	}
	stop()

	assert.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestAsyncSink_NeverDropsItemEndOrTerminal(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var delivered []ProgressEvent

	sink := StartAsyncSink(func(ev ProgressEvent) {
		<-release
		mu.Lock()
		delivered = append(delivered, ev)
		mu.Unlock()
	}, 1)

	ok := true
	sent := make(chan struct{})
	go func() {
		defer close(sent)
		for i := 1; i <= 5; i++ {
			sink.Send(ProgressEvent{Phase: PhaseSyncing, ItemIndex: i})
			sink.Send(ProgressEvent{Phase: PhaseSyncing, ItemIndex: i, Succeeded: &ok})
		}
		sink.Send(ProgressEvent{Phase: PhaseDone})
	}()

	close(release)
	<-sent
	sink.Stop()

	ends := 0
	terminal := 0
	for _, ev := range delivered {
		if ev.ItemEnd() {
			ends++
		}
		if ev.Phase.Terminal() {
			terminal++
		}
	}
	assert.Equal(t, 5, ends)
	assert.Equal(t, 1, terminal)
	assert.Equal(t, int64(len(delivered)+int(sink.Dropped())), int64(11))
}

func TestAsyncSink_StopIsIdempotent(t *testing.T) {
	calls := 0
	send, stop := NewAsyncSink(func(ProgressEvent) { calls++ }, 0)

	send(ProgressEvent{Phase: PhaseDone})
	stop()
	stop()
	send(ProgressEvent{Phase: PhaseDone})

	assert.Equal(t, 1, calls)
}
