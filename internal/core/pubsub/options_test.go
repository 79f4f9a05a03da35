package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConsumerOptions(t *testing.T) {
	defaults := DefaultConsumerOptions()

	assert.Equal(t, ">", defaults.FilterSubject)
	assert.Equal(t, 100, defaults.ChannelBufSize)
}

func TestFullSubject(t *testing.T) {
	assert.Equal(t, "saved", FullSubject("", "saved"))
	assert.Equal(t, "storenotify.main.saved", FullSubject("storenotify", "main.saved"))
}

func TestParseStorage(t *testing.T) {
	tests := []struct {
		in      string
		want    StorageType
		wantErr bool
	}{
		{"", StorageMemory, false},
		{"memory", StorageMemory, false},
		{"file", StorageFile, false},
		{"disk", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStorage(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
