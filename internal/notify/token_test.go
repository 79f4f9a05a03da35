package notify

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken_DoesNotSubscribe(t *testing.T) {
	src := newFakeSource()
	tok := NewToken(func(string, Source) {})

	assert.NotEmpty(t, tok.ID())
	assert.False(t, tok.Stopped())
	assert.Equal(t, 0, src.count())
}

func TestSubscribe_DeliversEverySave(t *testing.T) {
	src := newFakeSource()
	var calls atomic.Int32
	var gotName string
	var gotSource Source

	tok := Subscribe(src, func(name string, s Source) {
		calls.Add(1)
		gotName = name
		gotSource = s
	})
	defer tok.Stop()

	src.save()
	src.save()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, DidSaveNotification, gotName)
	assert.Same(t, src, gotSource)
}

func TestToken_StopEndsDelivery(t *testing.T) {
	src := newFakeSource()
	var calls atomic.Int32
	tok := Subscribe(src, func(string, Source) { calls.Add(1) })

	src.save()
	tok.Stop()
	src.save()

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, tok.Stopped())
	assert.Equal(t, 0, src.count())
}

func TestToken_StopIsIdempotent(t *testing.T) {
	src := newFakeSource()
	tok := Subscribe(src, func(string, Source) {})

	tok.Stop()
	tok.Stop()
	assert.True(t, tok.Stopped())
	assert.Equal(t, 0, src.count())
}

func TestToken_ConcurrentStop(t *testing.T) {
	src := newFakeSource()
	tok := Subscribe(src, func(string, Source) {})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok.Stop()
		}()
	}
	wg.Wait()

	assert.True(t, tok.Stopped())
	assert.Equal(t, 0, src.count())
}

func TestToken_StopFromOwnCallback(t *testing.T) {
	src := newFakeSource()
	var calls atomic.Int32
	var tok *Token
	tok = Subscribe(src, func(string, Source) {
		calls.Add(1)
		tok.Stop()
	})

	src.save()
	src.save()

	assert.Equal(t, int32(1), calls.Load())
}

func TestToken_RegisterAfterStop(t *testing.T) {
	src := newFakeSource()
	tok := NewToken(func(string, Source) {})
	tok.Stop()

	tok.Register(src)
	assert.Equal(t, 0, src.count())
}

func TestToken_MultipleSources(t *testing.T) {
	a, b := newFakeSource(), newFakeSource()
	var calls atomic.Int32
	tok := NewToken(func(string, Source) { calls.Add(1) })
	tok.Register(a)
	tok.Register(b)

	a.save()
	b.save()
	assert.Equal(t, int32(2), calls.Load())

	tok.Stop()
	assert.Equal(t, 0, a.count())
	assert.Equal(t, 0, b.count())
}

func TestToken_DropsNonSourcePayload(t *testing.T) {
	src := newFakeSource()
	var calls atomic.Int32
	tok := Subscribe(src, func(string, Source) { calls.Add(1) })
	defer tok.Stop()

	src.post(Notification{Name: DidSaveNotification, Object: "not a store"})
	assert.Equal(t, int32(0), calls.Load())
}

func TestNotificationToken_ReceivesPayload(t *testing.T) {
	src := newFakeSource()
	var got []Notification
	tok := SubscribeNotifications(src, func(n Notification) { got = append(got, n) })
	defer tok.Stop()

	src.post(Notification{Name: DidSaveNotification, Object: src, Info: 3})

	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Info)
}

func TestToken_NilCallback(t *testing.T) {
	src := newFakeSource()
	tok := Subscribe(src, nil)
	defer tok.Stop()

	assert.NotPanics(t, src.save)
}
