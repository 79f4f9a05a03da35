package mongo

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syntrixbase/storenotify/pkg/model"
)

// normalizeDocument converts driver-specific value types into the plain Go
// types the rest of the store compares and filters on.
func normalizeDocument(doc model.Document) model.Document {
	if doc == nil {
		return model.Document{}
	}
	out := make(model.Document, len(doc))
	for k, v := range doc {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.M:
		return map[string]interface{}(normalizeDocument(model.Document(val)))
	case map[string]interface{}:
		return map[string]interface{}(normalizeDocument(model.Document(val)))
	case primitive.D:
		m := make(map[string]interface{}, len(val))
		for _, e := range val {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case primitive.A:
		return normalizeSlice(val)
	case []interface{}:
		return normalizeSlice(val)
	case int32:
		return int64(val)
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	default:
		return v
	}
}

func normalizeSlice(in []interface{}) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = normalizeValue(v)
	}
	return out
}
