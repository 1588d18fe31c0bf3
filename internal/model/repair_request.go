package model

// Repair request statuses. Transitions are directional:
// pending -> in_progress | rejected, in_progress -> completed | rejected.
// completed and rejected are terminal. At most one request in a
// non-terminal state may exist per allocation.
const (
	RepairStatusPending    = "pending"
	RepairStatusInProgress = "in_progress"
	RepairStatusCompleted  = "completed"
	RepairStatusRejected   = "rejected"
)
