package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a storefront account. Password holds the bcrypt hash and is never
// serialised to JSON.
type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name"          json:"name"`
	Email     string               `bson:"email"         json:"email"`
	Password  string               `bson:"password"      json:"-"`
	Role      string               `bson:"role"          json:"role"`
	Wishlist  []primitive.ObjectID `bson:"wishlist,omitempty" json:"wishlist,omitempty"`
	CreatedAt time.Time            `bson:"createdAt"     json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"     json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == "admin" }

// InWishlist reports whether productID is already on the user's wishlist.
func (u *User) InWishlist(productID primitive.ObjectID) bool {
	for _, id := range u.Wishlist {
		if id == productID {
			return true
		}
	}
	return false
}
