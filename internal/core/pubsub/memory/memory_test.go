package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/storenotify/internal/core/pubsub"
)

func receive(t *testing.T, ch <-chan pubsub.Message) pubsub.Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestEngine_Lifecycle(t *testing.T) {
	engine := New()
	assert.False(t, engine.IsClosed())

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())
	assert.True(t, engine.IsClosed())

	_, err := engine.NewPublisher(pubsub.PublisherOptions{})
	assert.ErrorIs(t, err, ErrEngineClosed)
	_, err = engine.NewConsumer(pubsub.ConsumerOptions{})
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestEngine_PublishSubscribe(t *testing.T) {
	engine := New()
	defer engine.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{FilterSubject: "storenotify.*.saved"})
	require.NoError(t, err)
	ch, err := consumer.Subscribe(ctx)
	require.NoError(t, err)

	pub, err := engine.NewPublisher(pubsub.PublisherOptions{SubjectPrefix: "storenotify"})
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, "main.saved", []byte(`{"store":"main"}`)))
	require.NoError(t, pub.Publish(ctx, "main.other", []byte("ignored")))
	require.NoError(t, pub.Publish(ctx, "audit.saved", []byte(`{"store":"audit"}`)))

	msg := receive(t, ch)
	assert.Equal(t, "storenotify.main.saved", msg.Subject())
	assert.Equal(t, `{"store":"main"}`, string(msg.Data()))
	assert.False(t, msg.Timestamp().IsZero())

	msg = receive(t, ch)
	assert.Equal(t, "storenotify.audit.saved", msg.Subject())
}

func TestEngine_FanOut(t *testing.T) {
	engine := New()
	defer engine.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var chans []<-chan pubsub.Message
	for i := 0; i < 3; i++ {
		consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{})
		require.NoError(t, err)
		ch, err := consumer.Subscribe(ctx)
		require.NoError(t, err)
		chans = append(chans, ch)
	}

	pub, err := engine.NewPublisher(pubsub.PublisherOptions{})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(ctx, "a.b", []byte("x")))

	for _, ch := range chans {
		assert.Equal(t, "a.b", receive(t, ch).Subject())
	}
}

func TestConsumer_ContextCancelClosesChannel(t *testing.T) {
	engine := New()
	defer engine.Close()

	consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := consumer.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, engine.SubscriberCount())
}

func TestEngine_CloseClosesChannels(t *testing.T) {
	engine := New()
	consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{})
	require.NoError(t, err)
	ch, err := consumer.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, engine.Close())
	_, ok := <-ch
	assert.False(t, ok)

	_, err = consumer.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestPublisher_BlockedPublishHonorsContext(t *testing.T) {
	engine := New()
	defer engine.Close()

	consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{ChannelBufSize: 1})
	require.NoError(t, err)
	subCtx, cancelSub := context.WithCancel(context.Background())
	defer cancelSub()
	_, err = consumer.Subscribe(subCtx)
	require.NoError(t, err)

	pub, err := engine.NewPublisher(pubsub.PublisherOptions{})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), "a", []byte("1")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = pub.Publish(ctx, "a", []byte("2"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPublisher_UnsubscribeReleasesBlockedPublish(t *testing.T) {
	engine := New()
	defer engine.Close()

	consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{ChannelBufSize: 1})
	require.NoError(t, err)
	subCtx, cancelSub := context.WithCancel(context.Background())
	_, err = consumer.Subscribe(subCtx)
	require.NoError(t, err)

	pub, err := engine.NewPublisher(pubsub.PublisherOptions{})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), "a", []byte("1")))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, pub.Publish(context.Background(), "a", []byte("2")))
	}()

	time.Sleep(10 * time.Millisecond)
	cancelSub()
	wg.Wait()
}

func TestPublisher_OnPublishAndClose(t *testing.T) {
	engine := New()
	defer engine.Close()

	var subjects []string
	pub, err := engine.NewPublisher(pubsub.PublisherOptions{
		SubjectPrefix: "p",
		OnPublish: func(subject string, err error, _ time.Duration) {
			assert.NoError(t, err)
			subjects = append(subjects, subject)
		},
	})
	require.NoError(t, err)

	require.NoError(t, pub.Publish(context.Background(), "s", nil))
	assert.Equal(t, []string{"p.s"}, subjects)

	require.NoError(t, pub.Close())
	assert.ErrorIs(t, pub.Publish(context.Background(), "s", nil), ErrPublisherClosed)
}

func TestEngine_CloseReleasesBlockedPublish(t *testing.T) {
	engine := New()

	consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{ChannelBufSize: 1})
	require.NoError(t, err)
	_, err = consumer.Subscribe(context.Background())
	require.NoError(t, err)

	pub, err := engine.NewPublisher(pubsub.PublisherOptions{})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), "a", []byte("1")))

	errCh := make(chan error, 1)
	go func() {
		errCh <- pub.Publish(context.Background(), "a", []byte("2"))
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, engine.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrEngineClosed)
	case <-time.After(time.Second):
		t.Fatal("publish still blocked after Close")
	}
	assert.Equal(t, 0, engine.SubscriberCount())
}
