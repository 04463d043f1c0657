package imagery

import "strings"

// Status is the normalized lifecycle status of an order.
type Status string

// Order statuses.
const (
	StatusCreated    Status = "created"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusUnknown    Status = "unknown"
)

// ParseStatus maps a provider status string onto a Status.
func ParseStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CREATED", "NEW", "RECEIVED", "PENDING":
		return StatusCreated
	case "PROCESSING", "IN_PROGRESS", "RUNNING", "ACCEPTED", "ORDERED":
		return StatusProcessing
	case "DELIVERED", "COMPLETED", "DONE", "SUCCEEDED":
		return StatusDelivered
	case "FAILED", "ERROR", "REJECTED":
		return StatusFailed
	case "CANCELLED", "CANCELED":
		return StatusCancelled
	}
	return StatusUnknown
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed || s == StatusCancelled
}
