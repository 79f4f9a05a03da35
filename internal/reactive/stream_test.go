package reactive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type source struct {
	emit func(int)
	fail func(error)
	torn chan struct{}
}

func newSource() (*source, *Observable[int]) {
	src := &source{torn: make(chan struct{})}
	obs := Create(func(emit func(int), fail func(error)) func() {
		src.emit, src.fail = emit, fail
		return func() { close(src.torn) }
	})
	return src, obs
}

func TestStream_RecvInOrder(t *testing.T) {
	src, obs := newSource()
	s := obs.Stream(context.Background(), 4)
	defer s.Close()

	src.emit(1)
	src.emit(2)

	v, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = s.Recv()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestStream_CloseDrainsThenEOF(t *testing.T) {
	src, obs := newSource()
	s := obs.Stream(context.Background(), 4)

	src.emit(7)
	s.Close()
	src.emit(8)

	v, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = s.Recv()
	assert.ErrorIs(t, err, io.EOF)

	select {
	case <-src.torn:
	default:
		t.Fatal("teardown did not run")
	}
	s.Close()
}

func TestStream_FailureEndsStream(t *testing.T) {
	cause := errors.New("fetch failed")
	src, obs := newSource()
	s := obs.Stream(context.Background(), 4)
	defer s.Close()

	src.emit(1)
	src.fail(cause)

	v, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = s.Recv()
	assert.ErrorIs(t, err, cause)
	<-s.Done()
	<-src.torn
}

func TestStream_ContextCancel(t *testing.T) {
	src, obs := newSource()
	ctx, cancel := context.WithCancel(context.Background())
	s := obs.Stream(ctx, 1)

	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("stream did not end on cancel")
	}
	_, err := s.Recv()
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-src.torn:
	case <-time.After(time.Second):
		t.Fatal("teardown did not run")
	}
	s.Close()
}

func TestStream_PushUnblocksOnClose(t *testing.T) {
	src, obs := newSource()
	s := obs.Stream(context.Background(), 1)

	src.emit(1)
	pushed := make(chan struct{})
	go func() {
		defer close(pushed)
		src.emit(2)
	}()

	s.Close()
	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("blocked producer was not released")
	}
}

func TestStream_DefaultBuffer(t *testing.T) {
	src, obs := newSource()
	s := obs.Stream(context.Background(), 0)
	defer s.Close()

	for i := 0; i < DefaultBufferSize; i++ {
		src.emit(i)
	}
	v, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}
