// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// Event discriminators carried in AllocationEvent.Event.
const (
	EventAllocationReturned = "allocation.returned"
	EventRepairCompleted    = "repair.completed"
)

// AllocationEvent is published when an allocation reaches a notable
// point in its lifecycle: the item came back, or a repair on it was
// completed. It carries enough information for downstream consumers to
// log or notify without querying the primary database.
type AllocationEvent struct {
	Event        string `json:"event"`
	RequestID    uint64 `json:"request_id"`
	AllocationID uint64 `json:"allocation_id"`
	ItemID       uint64 `json:"item_id"`
	UserID       uint64 `json:"user_id,omitempty"`
	ItemFixed    bool   `json:"item_fixed,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}
