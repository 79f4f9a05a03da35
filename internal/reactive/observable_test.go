package reactive

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestObservable_EmitsInOrder(t *testing.T) {
	obs := Create(func(emit func(int), _ func(error)) func() {
		for i := 1; i <= 3; i++ {
			emit(i)
		}
		return nil
	})

	var got []int
	sub := obs.Subscribe(func(v int) { got = append(got, v) }, nil)
	defer sub.Dispose()

	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestObservable_IsCold(t *testing.T) {
	var subscribes atomic.Int32
	obs := Create(func(emit func(int), _ func(error)) func() {
		subscribes.Add(1)
		return nil
	})

	a := obs.Subscribe(nil, nil)
	b := obs.Subscribe(nil, nil)
	defer a.Dispose()
	defer b.Dispose()

	assert.Equal(t, int32(2), subscribes.Load())
}

func TestSubscription_DisposeRunsTeardownOnce(t *testing.T) {
	var teardowns atomic.Int32
	var emitFn func(int)
	obs := Create(func(emit func(int), _ func(error)) func() {
		emitFn = emit
		return func() { teardowns.Add(1) }
	})

	var got []int
	sub := obs.Subscribe(func(v int) { got = append(got, v) }, nil)
	emitFn(1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Dispose()
		}()
	}
	wg.Wait()

	emitFn(2)
	assert.Equal(t, []int{1}, got)
	assert.Equal(t, int32(1), teardowns.Load())
	assert.True(t, sub.Disposed())
}

func TestSubscription_FailIsTerminal(t *testing.T) {
	cause := errors.New("boom")
	var teardowns atomic.Int32
	var emitFn func(int)
	var failFn func(error)
	obs := Create(func(emit func(int), fail func(error)) func() {
		emitFn, failFn = emit, fail
		return func() { teardowns.Add(1) }
	})

	var got []int
	var errs []error
	sub := obs.Subscribe(func(v int) { got = append(got, v) }, func(err error) { errs = append(errs, err) })

	emitFn(1)
	failFn(cause)
	failFn(errors.New("second"))
	emitFn(2)
	sub.Dispose()

	assert.Equal(t, []int{1}, got)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cause)
	assert.ErrorIs(t, sub.Err(), cause)
	assert.Equal(t, int32(1), teardowns.Load())
}

func TestSubscription_FailDuringSubscribe(t *testing.T) {
	cause := errors.New("bad query")
	var teardowns atomic.Int32
	obs := Create(func(_ func(int), fail func(error)) func() {
		fail(cause)
		return func() { teardowns.Add(1) }
	})

	var errs []error
	sub := obs.Subscribe(nil, func(err error) { errs = append(errs, err) })

	require.Len(t, errs, 1)
	assert.True(t, sub.Disposed())
	assert.Equal(t, int32(1), teardowns.Load())

	sub.Dispose()
	assert.Equal(t, int32(1), teardowns.Load())
}

func TestObservable_NilSubscribeFunc(t *testing.T) {
	var obs *Observable[int]
	sub := obs.Subscribe(nil, nil)
	assert.NotPanics(t, sub.Dispose)
}
