package types

import "time"

// DefaultImageURL is used when a product is created without an image reference.
const DefaultImageURL = "https://via.placeholder.com/300"

// Categories is the fixed set of product categories accepted on write.
var Categories = []string{
	"Electronics",
	"Clothing",
	"Food",
	"Books",
	"Home",
	"Sports",
	"Beauty",
	"Toys",
	"Other",
}

// ValidCategory reports whether the given category is in the accepted set.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Product represents a product record owned by a single user.
type Product struct {
	// ID is the unique identifier of the product.
	ID int `json:"id" db:"id"`

	// Name is the human-readable name of the product.
	Name string `json:"name" db:"name"`

	// Description contains the full product description.
	Description string `json:"description" db:"description"`

	// Price is the product price. It is always positive.
	Price float64 `json:"price" db:"price"`

	// Category is the product category, one of Categories.
	Category string `json:"category" db:"category"`

	// ImageURL references the product image. Defaults to DefaultImageURL
	// when not provided at creation.
	ImageURL string `json:"imageUrl" db:"image_url"`

	// UserID is the identifier of the owning user. It is set at creation
	// and never changes afterwards.
	UserID int `json:"user" db:"user_id"`

	// CreatedAt is the timestamp at which the product was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the product.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
