package model

// Return request statuses. pending is the only non-terminal state;
// approving a request flips the underlying allocation to returned in
// the same transaction. At most one pending request may exist per
// allocation at any time.
const (
	ReturnStatusPending  = "pending"
	ReturnStatusApproved = "approved"
	ReturnStatusRejected = "rejected"
)
