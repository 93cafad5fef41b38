package order

import "time"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCanceled  Status = "canceled"
)

// Flow is the linear progression an operator walks an order through.
// Canceled is reachable from any non-terminal state but is not part of it.
var Flow = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
}

// ParseStatus validates s as a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered, StatusCanceled:
		return st, nil
	}
	return "", &InvalidStatusError{Value: s}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCanceled
}

// Next returns the status following s in Flow.
func (s Status) Next() (Status, bool) {
	for i, st := range Flow {
		if st == s && i+1 < len(Flow) {
			return Flow[i+1], true
		}
	}
	return "", false
}

// ApplyStatus moves o to target at now. Entering confirmed or delivered stamps
// ConfirmedAt or CompletedAt once. It returns false when target equals the
// current status.
func (o *Order) ApplyStatus(target Status, now time.Time) (bool, error) {
	if o.Status == target {
		return false, nil
	}
	if o.Status.Terminal() {
		return false, ErrTerminalStatus
	}

	o.Status = target
	switch target {
	case StatusConfirmed:
		if o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
	case StatusDelivered:
		if o.CompletedAt == nil {
			o.CompletedAt = &now
		}
	}
	return true, nil
}
