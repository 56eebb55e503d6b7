package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordKind names the kind of record a change refers to.
type RecordKind string

const (
	KindExpense    RecordKind = "expense"
	KindInvestment RecordKind = "investment"
)

// Op is the mutation applied to a record.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// RecordChangedMessage announces that one of a user's records changed. It
// carries identifiers only; consumers reload whatever they need.
type RecordChangedMessage struct {
	UserID    uuid.UUID  `json:"user_id"`
	Kind      RecordKind `json:"kind"`
	RecordID  uuid.UUID  `json:"record_id"`
	Op        Op         `json:"op"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewRecordChangedMessage(userID uuid.UUID, kind RecordKind, recordID uuid.UUID, op Op, at time.Time) *RecordChangedMessage {
	return &RecordChangedMessage{
		UserID:    userID,
		Kind:      kind,
		RecordID:  recordID,
		Op:        op,
		Timestamp: at,
	}
}

func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes and checks a message body.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == uuid.Nil {
		return nil, fmt.Errorf("message has no user_id")
	}
	switch msg.Kind {
	case KindExpense, KindInvestment:
	default:
		return nil, fmt.Errorf("unknown record kind %q", msg.Kind)
	}
	switch msg.Op {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return nil, fmt.Errorf("unknown op %q", msg.Op)
	}
	return &msg, nil
}
