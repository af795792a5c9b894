package listener

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/opskit/pkg/errs"
)

// counter sums every event it observes and records when it is released.
type counter struct {
	sum    atomic.Int64
	closed atomic.Bool
}

func (c *counter) Observe(v int) error {
	c.sum.Add(int64(v))
	return nil
}

func (c *counter) Close() error {
	c.closed.Store(true)
	return nil
}

func TestRegistry_SumPattern(t *testing.T) {
	const n = 16
	reg := New[int]()

	counters := make([]*counter, n)
	handles := make([]*Handle, n)
	for i := range n {
		counters[i] = &counter{}
		h, err := reg.Register(strconv.Itoa(i), counters[i])
		require.NoError(t, err)
		handles[i] = h
	}
	require.Equal(t, n, reg.Len())

	results := make([]int64, n)
	for i := range n {
		require.NoError(t, reg.Notify(i))
		results[i] = counters[i].sum.Load()
		require.True(t, reg.Unregister(handles[i]))
		assert.True(t, counters[i].closed.Load(), "observer %d not released", i)
	}

	for i := range n {
		assert.Equal(t, int64(i*(i+1)/2), results[i], "observer %d", i)
	}
	assert.Zero(t, reg.Len())
}

func TestRegistry_NotifyContinuesAfterFailure(t *testing.T) {
	reg := New[int]()
	boom := errors.New("boom")

	var calls atomic.Int32
	_, err := reg.RegisterFunc("first", func(int) error { calls.Add(1); return boom })
	require.NoError(t, err)
	_, err = reg.RegisterFunc("second", func(int) error { calls.Add(1); return errors.New("later") })
	require.NoError(t, err)
	_, err = reg.RegisterFunc("third", func(int) error { calls.Add(1); return nil })
	require.NoError(t, err)

	err = reg.Notify(1)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"first"`)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, reg.Len(), "failing observers stay registered")
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	reg := New[int]()

	_, err := reg.Register("nil", nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = reg.RegisterFunc("nil", nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestRegistry_Close(t *testing.T) {
	reg := New[int]()
	a, b := &counter{}, &counter{}
	_, err := reg.Register("a", a)
	require.NoError(t, err)
	hb, err := reg.Register("b", b)
	require.NoError(t, err)

	require.NoError(t, reg.Close())
	assert.True(t, a.closed.Load())
	assert.True(t, b.closed.Load())
	assert.False(t, reg.Unregister(hb))

	// ownership still transfers when registration fails
	late := &counter{}
	_, err = reg.Register("late", late)
	assert.ErrorIs(t, err, errs.ErrInvalid)
	assert.True(t, late.closed.Load())
}

func TestRegistry_UnregisterUnknown(t *testing.T) {
	reg := New[int]()
	assert.False(t, reg.Unregister(nil))
	assert.False(t, reg.Unregister(&Handle{name: "stranger"}))
}

func TestRegistry_Names(t *testing.T) {
	reg := New[int]()
	for _, name := range []string{"x", "y", "x"} {
		_, err := reg.RegisterFunc(name, func(int) error { return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"x", "y", "x"}, reg.Names())
}

func TestRegistry_ConcurrentRegisterNotify(t *testing.T) {
	reg := New[int]()
	var total atomic.Int64

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				h, err := reg.RegisterFunc(strconv.Itoa(w), func(v int) error {
					total.Add(int64(v))
					return nil
				})
				if err != nil {
					t.Error(err)
					return
				}
				if err := reg.Notify(1); err != nil {
					t.Error(err)
				}
				if i%2 == 0 {
					reg.Unregister(h)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8*50, reg.Len())
	assert.Positive(t, total.Load())
}
