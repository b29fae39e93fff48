package domain

// Identity names the user and workstation performing an operation.
// It is resolved once at startup and handed to each component.
type Identity struct {
	User    string
	Station string
}

// Timestamp layouts used by lock and marker records.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)
