package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LineItem is one product reference and its quantity inside a cart.
type LineItem struct {
	ProductID primitive.ObjectID `bson:"product"`
	Quantity  int                `bson:"quantity"`
	// Product is set once the reference has been joined with the catalog.
	Product *Product `bson:"-"`
}

type lineItemJSON struct {
	Product  any `json:"product"`
	Quantity int `json:"quantity"`
}

// MarshalJSON writes the joined product document when available, else the bare id.
func (li LineItem) MarshalJSON() ([]byte, error) {
	out := lineItemJSON{Product: li.ProductID.Hex(), Quantity: li.Quantity}
	if li.Product != nil {
		out.Product = li.Product
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts product as an id string or an object with an _id, and
// quantity as a number or a numeric string.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Product  json.RawMessage `json:"product"`
		Quantity json.RawMessage `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var ref string
	if err := json.Unmarshal(raw.Product, &ref); err != nil {
		var obj struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(raw.Product, &obj); err != nil {
			return InvalidArgument("invalid product reference")
		}
		ref = obj.ID
	}
	id, err := ParseID(ref)
	if err != nil {
		return err
	}

	qty, err := ParseQuantity(raw.Quantity)
	if err != nil {
		return err
	}
	li.ProductID = id
	li.Quantity = qty
	li.Product = nil
	return nil
}

// ParseQuantity reads a JSON number or numeric string. A missing value reads as zero.
func ParseQuantity(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, InvalidArgument("invalid quantity")
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if i, err := strconv.Atoi(n.String()); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != float64(int(f)) {
		return 0, InvalidArgument("invalid quantity %q", n.String())
	}
	return int(f), nil
}

// Cart is an anonymous shopping cart. It holds at most one line per product.
type Cart struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Products  []LineItem         `json:"products" bson:"products"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// NewCart returns an empty cart with a fresh id.
func NewCart(now time.Time) *Cart {
	return &Cart{
		ID:        NewID(),
		Products:  []LineItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Cart) indexOf(productID primitive.ObjectID) int {
	for i, li := range c.Products {
		if li.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add merges quantity into an existing line or appends a new one. A merge
// that would pass MaxQuantity leaves the cart untouched.
func (c *Cart) Add(productID primitive.ObjectID, quantity int) error {
	if err := ValidateQuantity(quantity); err != nil {
		return err
	}
	if i := c.indexOf(productID); i >= 0 {
		if quantity > MaxQuantity-c.Products[i].Quantity {
			return InvalidArgument("quantity must not exceed %d", MaxQuantity)
		}
		c.Products[i].Quantity += quantity
		return nil
	}
	c.Products = append(c.Products, LineItem{ProductID: productID, Quantity: quantity})
	return nil
}

// Remove drops the line for productID. Removing an absent product is a no-op.
func (c *Cart) Remove(productID primitive.ObjectID) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Products = append(c.Products[:i], c.Products[i+1:]...)
	return true
}

// SetQuantity overwrites the quantity of an existing line.
func (c *Cart) SetQuantity(productID primitive.ObjectID, quantity int) error {
	i := c.indexOf(productID)
	if i < 0 {
		return NotFound("product %s not found in cart", productID.Hex())
	}
	c.Products[i].Quantity = quantity
	return nil
}

// Replace swaps the whole line sequence, merging duplicate products. On error
// the previous lines are kept.
func (c *Cart) Replace(items []LineItem) error {
	next := &Cart{Products: make([]LineItem, 0, len(items))}
	for _, li := range items {
		if err := next.Add(li.ProductID, li.Quantity); err != nil {
			return err
		}
	}
	c.Products = next.Products
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Products = []LineItem{}
}

// Quantity returns the quantity held for productID, zero when absent.
func (c *Cart) Quantity(productID primitive.ObjectID) int {
	if i := c.indexOf(productID); i >= 0 {
		return c.Products[i].Quantity
	}
	return 0
}

// ProductIDs lists the referenced products in line order.
func (c *Cart) ProductIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(c.Products))
	for _, li := range c.Products {
		ids = append(ids, li.ProductID)
	}
	return ids
}

// Join attaches catalog documents to the lines that reference them.
// Lines whose product no longer exists keep the bare reference.
func (c *Cart) Join(products map[primitive.ObjectID]*Product) {
	for i := range c.Products {
		c.Products[i].Product = products[c.Products[i].ProductID]
	}
}

// Clone returns a deep copy of the line sequence.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Products = append([]LineItem{}, c.Products...)
	return &cp
}

// MaxQuantity is the largest quantity a line may hold; stores keep it in a
// 32-bit column.
const MaxQuantity = math.MaxInt32

// ValidateQuantity rejects anything below one unit or above MaxQuantity.
func ValidateQuantity(q int) error {
	if q < 1 {
		return InvalidArgument("quantity must be a positive integer")
	}
	if q > MaxQuantity {
		return InvalidArgument("quantity must not exceed %d", MaxQuantity)
	}
	return nil
}
