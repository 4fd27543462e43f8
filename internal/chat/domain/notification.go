package domain

// NotificationType definition notification type
type NotificationType string

const (
	// NotificationBid a bid was placed on the user's product
	NotificationBid NotificationType = "bid"
	// NotificationMessage a new chat message arrived
	NotificationMessage NotificationType = "message"
	// NotificationSale a product was sold
	NotificationSale NotificationType = "sale"
	// NotificationAdmin a message from the admin console
	NotificationAdmin NotificationType = "admin_message"
)

// RelatedKind tags what a notification points at
type RelatedKind string

const (
	// RelatedNone no related entity
	RelatedNone RelatedKind = ""
	// RelatedThread related entity is a chat thread
	RelatedThread RelatedKind = "thread"
	// RelatedProduct related entity is a product
	RelatedProduct RelatedKind = "product"
)

// RelatedEntity is a tagged reference to the entity a notification is
// about. It replaces a free-form id string so grouping by thread cannot
// accidentally match product ids.
type RelatedEntity struct {
	Kind RelatedKind `bson:"kind" json:"kind"`
	ID   string      `bson:"id,omitempty" json:"id,omitempty"`
}

// ThreadRef build a thread-related reference
func ThreadRef(threadID string) RelatedEntity {
	return RelatedEntity{Kind: RelatedThread, ID: threadID}
}

// ProductRef build a product-related reference
func ProductRef(productID string) RelatedEntity {
	return RelatedEntity{Kind: RelatedProduct, ID: productID}
}

// AdminNotice is one queued admin_message job. The back office enqueues,
// the notice consumer turns each into a ledger row plus push.
type AdminNotice struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// Notification is one row of a user's inbox. It is a denormalized
// projection: deleting it never touches the message it describes.
type Notification struct {
	ID        string           `bson:"_id,omitempty" json:"id"`
	UserID    string           `bson:"user_id" json:"user_id"`
	Type      NotificationType `bson:"type" json:"type"`
	Text      string           `bson:"text" json:"text"`
	Related   RelatedEntity    `bson:"related" json:"related"`
	Read      bool             `bson:"read" json:"read"`
	CreatedAt int64            `bson:"created_at" json:"created_at"`
}

// ThreadUnreadInfo unread message-notification count for one thread
type ThreadUnreadInfo struct {
	ThreadID    string `bson:"_id" json:"thread_id"`
	UnreadCount int    `bson:"unread_count" json:"unread_count"`
}
