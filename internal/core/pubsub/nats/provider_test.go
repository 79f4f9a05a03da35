package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/syntrixbase/storenotify/internal/core/pubsub"
)

func connectedProvider(t *testing.T, conn *MockConn) *Provider {
	t.Helper()
	p := NewProvider("nats://localhost:4222", "storenotify-test")
	p.natsConnect = func(url string, opts ...nats.Option) (natsConnection, error) {
		assert.Equal(t, "nats://localhost:4222", url)
		return conn, nil
	}
	require.NoError(t, p.Connect(context.Background()))
	return p
}

func TestNewProvider(t *testing.T) {
	p := NewProvider("nats://localhost:4222", "")
	assert.Equal(t, "nats://localhost:4222", p.url)
	assert.Nil(t, p.nc)
	assert.Nil(t, p.js)
}

func TestProvider_NewPublisher_NotConnected(t *testing.T) {
	p := NewProvider("nats://localhost:4222", "")

	_, err := p.NewPublisher(pubsub.PublisherOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATS not connected")
}

func TestProvider_Connect_Error(t *testing.T) {
	p := NewProvider("nats://localhost:4222", "")
	p.natsConnect = func(string, ...nats.Option) (natsConnection, error) {
		return nil, errors.New("no servers available")
	}

	err := p.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
	assert.Nil(t, p.nc)
}

func TestProvider_Connect_CancelledContext(t *testing.T) {
	p := NewProvider("nats://localhost:4222", "")
	called := false
	p.natsConnect = func(string, ...nats.Option) (natsConnection, error) {
		called = true
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Connect(ctx), context.Canceled)
	assert.False(t, called)
}

func TestProvider_NewPublisher_Core(t *testing.T) {
	conn := new(MockConn)
	p := connectedProvider(t, conn)

	pub, err := p.NewPublisher(pubsub.PublisherOptions{SubjectPrefix: "storenotify"})
	require.NoError(t, err)
	assert.IsType(t, &corePublisher{}, pub)
	assert.Nil(t, p.js)
}

func TestProvider_NewPublisher_Stream(t *testing.T) {
	conn := new(MockConn)
	p := connectedProvider(t, conn)

	js := new(MockJetStream)
	js.On("CreateOrUpdateStream", mock.Anything, mock.MatchedBy(func(cfg jetstream.StreamConfig) bool {
		return cfg.Name == "SAVES" && cfg.Subjects[0] == "storenotify.>"
	})).Return(nil, nil).Once()

	factoryCalls := 0
	p.natsConnCaster = func(natsConnection) (*nats.Conn, bool) { return &nats.Conn{}, true }
	p.jetStreamFactory = func(*nats.Conn) (JetStream, error) {
		factoryCalls++
		return js, nil
	}

	pub, err := p.NewPublisher(pubsub.PublisherOptions{StreamName: "SAVES", SubjectPrefix: "storenotify"})
	require.NoError(t, err)
	assert.IsType(t, &streamPublisher{}, pub)

	js.On("CreateOrUpdateStream", mock.Anything, mock.Anything).Return(nil, nil).Once()
	_, err = p.NewPublisher(pubsub.PublisherOptions{StreamName: "SAVES", SubjectPrefix: "storenotify"})
	require.NoError(t, err)

	assert.Equal(t, 1, factoryCalls, "jetstream context is created once")
	js.AssertExpectations(t)
}

func TestProvider_NewPublisher_StreamErrors(t *testing.T) {
	t.Run("not a nats connection", func(t *testing.T) {
		p := connectedProvider(t, new(MockConn))

		_, err := p.NewPublisher(pubsub.PublisherOptions{StreamName: "SAVES"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not support JetStream")
	})

	t.Run("factory fails", func(t *testing.T) {
		p := connectedProvider(t, new(MockConn))
		p.natsConnCaster = func(natsConnection) (*nats.Conn, bool) { return &nats.Conn{}, true }
		p.jetStreamFactory = func(*nats.Conn) (JetStream, error) {
			return nil, errors.New("jetstream not enabled")
		}

		_, err := p.NewPublisher(pubsub.PublisherOptions{StreamName: "SAVES"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create JetStream")
	})
}

func TestProvider_Close(t *testing.T) {
	conn := new(MockConn)
	conn.On("Close").Return().Once()
	p := connectedProvider(t, conn)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Nil(t, p.nc)
	conn.AssertExpectations(t)
}
