package domain

// Action websocket request action
type Action string

const (
	// JoinThread websocket action joinThread, subscribe a thread room
	JoinThread Action = "joinThread"
	// LeaveThread websocket action leaveThread
	LeaveThread Action = "leaveThread"
	// SendMessage websocket action sendMessage
	SendMessage Action = "sendMessage"
	// MarkRead websocket action markRead, mark thread messages read
	MarkRead Action = "markRead"
	// GetUnread websocket action getUnread, per-thread unread counts
	GetUnread Action = "getUnread"

	// NewMessage pushed event carrying a full message payload
	NewMessage Action = "newMessage"
	// NewNotification pushed event carrying a lightweight notification
	NewNotification Action = "newNotification"
)

// WSRequest websocket Request
type WSRequest struct {
	Action     string `json:"action"`
	ThreadID   string `json:"thread_id"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// NotificationPush is the lightweight notification event pushed to the
// receiver's room, no message body.
type NotificationPush struct {
	Type         NotificationType `json:"type"`
	Text         string           `json:"text"`
	ThreadID     string           `json:"thread_id,omitempty"`
	ProductTitle string           `json:"product_title,omitempty"`
}

// PushEvent is the envelope carried over the presence registry and the
// redis channels. Exactly one of Message/Notification is set. Origin
// names the publishing instance so subscribers can skip events they
// already delivered through their local registry.
type PushEvent struct {
	Event        Action            `json:"event"`
	Origin       string            `json:"origin,omitempty"`
	Message      *Message          `json:"message,omitempty"`
	Notification *NotificationPush `json:"notification,omitempty"`
}

// ActivityEvent is the fire-and-forget analytics record written to the
// kafka activity stream.
type ActivityEvent struct {
	Type      string `json:"type"` // message_sent | bid_placed | product_sold | delivery_degraded
	UserID    string `json:"user_id,omitempty"`
	ThreadID  string `json:"thread_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	At        int64  `json:"at"`
}
