package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_Coalesces(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := New(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, d.Pending())

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_Stop(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := New(10*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDebouncer_Flush(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := New(time.Hour, func() { calls.Add(1) })

	d.Flush()
	assert.Equal(t, int32(0), calls.Load())

	d.Trigger()
	d.Flush()
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
}
