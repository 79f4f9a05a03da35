package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syntrixbase/storenotify/pkg/model"
)

func TestNormalizeDocument(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	oid := primitive.NewObjectID()

	in := model.Document{
		"name":  "Oslo",
		"count": int32(7),
		"big":   int64(1 << 40),
		"when":  primitive.NewDateTimeFromTime(at),
		"ref":   oid,
		"geo":   primitive.M{"lat": 59.9, "tags": primitive.A{"a", int32(1)}},
		"order": primitive.D{{Key: "x", Value: int32(2)}},
		"list":  []interface{}{primitive.M{"k": "v"}},
	}

	assert.Equal(t, model.Document{
		"name":  "Oslo",
		"count": int64(7),
		"big":   int64(1 << 40),
		"when":  at,
		"ref":   oid.Hex(),
		"geo":   map[string]interface{}{"lat": 59.9, "tags": []interface{}{"a", int64(1)}},
		"order": map[string]interface{}{"x": int64(2)},
		"list":  []interface{}{map[string]interface{}{"k": "v"}},
	}, normalizeDocument(in))
}

func TestNormalizeDocument_Nil(t *testing.T) {
	assert.Equal(t, model.Document{}, normalizeDocument(nil))
}
