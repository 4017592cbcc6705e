package domain

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID returns a fresh object identifier.
func NewID() primitive.ObjectID {
	return primitive.NewObjectID()
}

// ParseID validates a 24 character hex identifier.
func ParseID(s string) (primitive.ObjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return primitive.NilObjectID, InvalidArgument("id is required")
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, InvalidArgument("invalid id %q", s)
	}
	return id, nil
}
