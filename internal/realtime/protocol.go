package realtime

import (
	"encoding/json"

	"github.com/syntrixbase/storenotify/internal/notify"
	"github.com/syntrixbase/storenotify/internal/store"
	"github.com/syntrixbase/storenotify/pkg/model"
)

// Message types
const (
	TypeSubscribe      = "subscribe"
	TypeSubscribeAck   = "subscribe_ack"
	TypeUnsubscribe    = "unsubscribe"
	TypeUnsubscribeAck = "unsubscribe_ack"
	TypeChange         = "change"
	TypeError          = "error"
)

// Error codes
const (
	CodeBadRequest    = "bad_request"
	CodeDuplicateID   = "duplicate_id"
	CodeUnknownID     = "unknown_id"
	CodeQueryFailed   = "query_failed"
	CodeUnknownType   = "unknown_type"
	CodeInvalidFormat = "invalid_format"
)

// BaseMessage is the envelope for all messages
type BaseMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribePayload (Client -> Server). The envelope ID names the
// subscription.
type SubscribePayload struct {
	Query model.Query `json:"query"`
}

// UnsubscribePayload (Client -> Server)
type UnsubscribePayload struct {
	ID string `json:"id"`
}

// ChangePayload (Server -> Client) carries one change event of a
// subscription. Items is the complete list after the change.
type ChangePayload struct {
	SubID string           `json:"subId"`
	Type  string           `json:"type"`
	Items []*store.Object  `json:"items"`
	At    *notify.Position `json:"at,omitempty"`
	From  *notify.Position `json:"from,omitempty"`
	To    *notify.Position `json:"to,omitempty"`
}

// ErrorPayload (Server -> Client)
type ErrorPayload struct {
	SubID   string `json:"subId,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func changeMessage(subID string, ev notify.ChangeEvent[[]*store.Object]) BaseMessage {
	items := ev.Items
	if items == nil {
		items = []*store.Object{}
	}
	return BaseMessage{
		ID:   subID,
		Type: TypeChange,
		Payload: mustMarshal(ChangePayload{
			SubID: subID,
			Type:  ev.Type.String(),
			Items: items,
			At:    ev.At,
			From:  ev.From,
			To:    ev.To,
		}),
	}
}

func errorMessage(id, code, message string) BaseMessage {
	return BaseMessage{
		ID:      id,
		Type:    TypeError,
		Payload: mustMarshal(ErrorPayload{SubID: id, Code: code, Message: message}),
	}
}

func mustMarshal(v interface{}) []byte {
	b, _ := json.Marshal(v) // Should not fail for internal types
	return b
}
