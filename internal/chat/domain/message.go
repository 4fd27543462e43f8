package domain

// MessageKind definition message kind
type MessageKind string

const (
	// MessageKindUser a user-authored message, generates a notification
	MessageKindUser MessageKind = "user"
	// MessageKindSystem a system message, no notification
	MessageKindSystem MessageKind = "system"
)

// Message is one row of the append-only message log. Immutable after
// creation except for the read flag.
type Message struct {
	ID         string      `bson:"_id,omitempty" json:"id"`
	ThreadID   string      `bson:"thread_id" json:"thread_id"`
	SenderID   string      `bson:"sender_id" json:"sender_id"`
	ReceiverID string      `bson:"receiver_id" json:"receiver_id"`
	Text       string      `bson:"text" json:"text"`
	Kind       MessageKind `bson:"kind" json:"kind"`
	// ImageKey is set only on a thread-opening message originating from a
	// bid. It is an object key in the attachment store, resolved to a
	// presigned URL on the read path.
	ImageKey string `bson:"image_key,omitempty" json:"image_key,omitempty"`
	ImageURL string `bson:"-" json:"image_url,omitempty"`
	Read     bool   `bson:"read" json:"read"`
	// CreatedAt unix milliseconds, the authoritative ordering for history.
	CreatedAt int64 `bson:"created_at" json:"created_at"`
}

// DeliveryReceipt collects the best-effort side annotations of one
// delivery. The message itself is durable once Deliver returns without
// error; these flags only feed logs and the activity stream.
type DeliveryReceipt struct {
	PreviewUpdated bool `json:"preview_updated"`
	Notified       bool `json:"notified"`
	Pushed         bool `json:"pushed"`
}

// Degraded report whether any post-commit step failed
func (r DeliveryReceipt) Degraded() bool {
	return !r.PreviewUpdated || !r.Notified || !r.Pushed
}
