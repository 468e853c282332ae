package mailbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestValueWins(t *testing.T) {
	m := New[int]()
	m.Publish(1)
	m.Publish(2)

	v, err := m.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, ok := m.TryReceive()
	assert.False(t, ok, "no backlog after the latest value was taken")

	s := m.Stats()
	assert.Equal(t, Stats{Published: 2, Consumed: 1, Overwritten: 1}, s)
}

func TestPending(t *testing.T) {
	m := New[string]()
	assert.False(t, m.Pending())
	m.Publish("a")
	assert.True(t, m.Pending())
	_, _ = m.TryReceive()
	assert.False(t, m.Pending())
}

func TestReceiveBlocksUntilPublish(t *testing.T) {
	m := New[int]()
	got := make(chan int, 1)
	go func() {
		v, err := m.Receive(context.Background())
		if err == nil {
			got <- v
		}
	}()

	select {
	case <-got:
		t.Fatal("receive returned before any publish")
	case <-time.After(20 * time.Millisecond):
	}

	m.Publish(42)
	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("receive did not wake up")
	}
}

func TestReceiveHonorsContext(t *testing.T) {
	m := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConcurrentProducerConsumer(t *testing.T) {
	m := New[int]()
	const n = 1000
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	last := -1
	go func() {
		defer wg.Done()
		for {
			v, err := m.Receive(ctx)
			if err != nil {
				return
			}
			if v <= last {
				t.Errorf("received %d after %d", v, last)
			}
			last = v
			if v == n-1 {
				return
			}
		}
	}()

	for i := 0; i < n; i++ {
		m.Publish(i)
	}
	wg.Wait()
	assert.Equal(t, n-1, last)
	s := m.Stats()
	assert.Equal(t, uint64(n), s.Published)
	assert.Equal(t, s.Published, s.Consumed+s.Overwritten)
}
