package domain

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the authorization level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// MinimumAge is the youngest age accepted at registration.
const MinimumAge = 18

// User represents a registered customer or administrator
type User struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	FirstName    string             `json:"first_name" bson:"first_name"`
	LastName     string             `json:"last_name" bson:"last_name"`
	Email        string             `json:"email" bson:"email"`
	Age          int                `json:"age" bson:"age"`
	PasswordHash string             `json:"-" bson:"password"`
	CartID       primitive.ObjectID `json:"-" bson:"cart"`
	Role         Role               `json:"role" bson:"role"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`

	// Cart is the joined cart document, if it was loaded.
	Cart *Cart `json:"-" bson:"-"`
}

// MarshalJSON never emits the password hash; cart is the joined document or its id.
func (u User) MarshalJSON() ([]byte, error) {
	type public User
	out := struct {
		public
		Cart any `json:"cart"`
	}{public: public(u), Cart: u.CartID.Hex()}
	if u.Cart != nil {
		out.Cart = u.Cart
	}
	return json.Marshal(out)
}
