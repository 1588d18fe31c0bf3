package model

import "time"

// Reference is a simple named lookup row shared by the categories,
// counties, item_models and departments tables. Items and users point
// at these tables by integer foreign keys; display names are always
// derived via joins, never stored redundantly.
type Reference struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
