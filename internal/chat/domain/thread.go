package domain

// Thread is a persisted two-party conversation, optionally tied to a
// product. Buyer and seller roles are fixed at creation: a pair that first
// forms a thread as (A buyer, B seller) is distinct from (B buyer, A seller)
// for product-less threads. The unique index does not canonicalize the pair.
type Thread struct {
	ID       string `bson:"_id,omitempty" json:"id"`
	BuyerID  string `bson:"buyer_id" json:"buyer_id"`
	SellerID string `bson:"seller_id" json:"seller_id"`
	// ProductID is empty for feed-originated conversations.
	ProductID string `bson:"product_id" json:"product_id,omitempty"`

	// Denormalized preview fields, last-write-wins, not authoritative for
	// message ordering.
	LastMessage   string `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastMessageAt int64  `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`

	CreatedAt int64 `bson:"created_at" json:"created_at"`
}

// HasParticipant report whether userID is the thread buyer or seller
func (t *Thread) HasParticipant(userID string) bool {
	return userID == t.BuyerID || userID == t.SellerID
}

// OtherParticipant return the counterpart of userID, empty when userID is
// not a participant.
func (t *Thread) OtherParticipant(userID string) string {
	switch userID {
	case t.BuyerID:
		return t.SellerID
	case t.SellerID:
		return t.BuyerID
	}
	return ""
}
