package domain

// Bid records one swipe-to-bid action on a product. Placing a bid is also
// the first-contact path: it opens the product thread and delivers the
// thread-opening message.
type Bid struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	ProductID string `bson:"product_id" json:"product_id"`
	BidderID  string `bson:"bidder_id" json:"bidder_id"`
	Amount    int64  `bson:"amount" json:"amount"`
	// Message optional opening text, defaults to a generated line.
	Message string `bson:"message,omitempty" json:"message,omitempty"`
	// ImageKey optional attachment carried into the opening message.
	ImageKey  string `bson:"image_key,omitempty" json:"image_key,omitempty"`
	CreatedAt int64  `bson:"created_at" json:"created_at"`
}
