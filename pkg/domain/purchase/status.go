package purchase

// Status is the lifecycle state of a Purchase.
type Status string

const (
	StatusCreated  Status = "created"
	StatusPaid     Status = "paid"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }
