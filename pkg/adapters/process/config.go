package process

// Interpreter is the external command that runs launchers of one dialect.
// The launcher path is appended after Args.
type Interpreter struct {
	Command string            `yaml:"command" json:"command" toml:"command"`
	Args    []string          `yaml:"args" json:"args" toml:"args"`
	Env     map[string]string `yaml:"env" json:"env" toml:"env"`
}

// DefaultInterpreters returns the interpreters used when no configuration
// overrides them.
func DefaultInterpreters() map[string]Interpreter {
	return map[string]Interpreter{
		"python": {Command: "python"},
		"mel":    {Command: "maya", Args: []string{"-batch", "-script"}},
	}
}
