package entity

import "time"

// Operator is an API user of the read-only query surface, authenticated by
// Bearer token. Operators are provisioned out of band, directly in the store.
type Operator struct {
	Username     string    `json:"username" bson:"username"`
	Name         string    `json:"name" bson:"name"`
	Token        string    `json:"token" bson:"token"`
	RegisteredAt time.Time `json:"registered_at" bson:"registered_at"`
}
