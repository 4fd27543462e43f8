package domain

// ProductStatus definition product status
type ProductStatus string

const (
	// ProductAvailable product can still be bid on
	ProductAvailable ProductStatus = "available"
	// ProductSold product was sold
	ProductSold ProductStatus = "sold"
)

// Product mirrors the marketplace products table. The chat service only
// reads it: titles enrich notification text and bid placement validates
// the product exists.
type Product struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Title    string `json:"title"`
	SellerID string `json:"seller_id"`
	Price    int64  `json:"price"`
	Status   string `json:"status"`
}

// UserProfile is the slice of the user record the chat service needs:
// display names for notification text composition.
type UserProfile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}
