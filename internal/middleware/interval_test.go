package middleware

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalCollector_CoalescesBurst(t *testing.T) {
	flushed := make(chan []string, 4)
	c := NewIntervalCollector(50*time.Millisecond, func(jobs []string) { flushed <- jobs })
	defer c.Close()

	c.Add("a")
	c.Add("b")
	c.Add("a")

	select {
	case jobs := <-flushed:
		assert.Equal(t, []string{"a", "b"}, jobs)
	case <-time.After(time.Second):
		t.Fatal("collector did not flush")
	}

	c.Add("c")
	select {
	case jobs := <-flushed:
		assert.Equal(t, []string{"c"}, jobs)
	case <-time.After(time.Second):
		t.Fatal("collector did not flush second burst")
	}
}

func TestIntervalCollector_ZeroIntervalIsImmediate(t *testing.T) {
	var mu sync.Mutex
	var got [][]string
	c := NewIntervalCollector(0, func(jobs []string) {
		mu.Lock()
		got = append(got, jobs)
		mu.Unlock()
	})

	c.Add("a")
	c.Add("a")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"a"}, {"a"}}, got)
}

func TestIntervalCollector_CloseDropsPending(t *testing.T) {
	flushed := make(chan []string, 1)
	c := NewIntervalCollector(20*time.Millisecond, func(jobs []string) { flushed <- jobs })

	c.Add("a")
	c.Close()
	c.Add("b")

	select {
	case jobs := <-flushed:
		t.Fatalf("unexpected flush %v", jobs)
	case <-time.After(100 * time.Millisecond):
	}
}
