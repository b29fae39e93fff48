package domain

// Outcome is the verdict of an iteration check.
type Outcome int

const (
	ToRun Outcome = iota
	AlreadyDone
)

func (o Outcome) String() string {
	if o == AlreadyDone {
		return "already-done"
	}
	return "to-run"
}

// Marker is the content of an iteration marker file.
type Marker struct {
	Date      string `json:"date" mapstructure:"date"`
	Time      string `json:"time" mapstructure:"time"`
	Station   string `json:"station" mapstructure:"station"`
	User      string `json:"user" mapstructure:"user"`
	LoopNode  string `json:"loopNode" mapstructure:"loopNode"`
	Iterator  string `json:"iterator" mapstructure:"iterator"`
	IterValue string `json:"iterValue" mapstructure:"iterValue"`
}
