package model

// Allocation statuses. An allocation is active from creation until it
// is returned, either by a direct admin edit or by an approved return
// request. date_returned is set exactly when status becomes returned.
const (
	AllocationStatusActive   = "active"
	AllocationStatusReturned = "returned"
)
