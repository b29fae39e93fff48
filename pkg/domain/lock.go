package domain

// LockState is the ownership state of a document path as seen by one caller.
type LockState int

const (
	Unlocked LockState = iota
	LockedByMe
	LockedByOther
)

func (s LockState) String() string {
	switch s {
	case Unlocked:
		return "unlocked"
	case LockedByMe:
		return "locked-by-me"
	case LockedByOther:
		return "locked-by-other"
	}
	return "unknown"
}

// Writable reports whether the holder of s may save the document.
func (s LockState) Writable() bool {
	return s == LockedByMe
}

// LockInfo is the content of a lock sidecar.
type LockInfo struct {
	User    string `json:"user" mapstructure:"user"`
	Station string `json:"station" mapstructure:"station"`
	Date    string `json:"date" mapstructure:"date"`
	Time    string `json:"time" mapstructure:"time"`
	// Token distinguishes two acquisitions by the same user on the same station.
	Token string `json:"token,omitempty" mapstructure:"token"`
}
