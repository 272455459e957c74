package scheduler

// Subsystem is a set of actuators owned by exactly one running command at a time.
type Subsystem interface {
	Name() string
}

// Command is a unit of work the scheduler runs once per control cycle until it finishes or
// is cancelled. None of its methods may block.
type Command interface {
	Name() string
	Requirements() []Subsystem
	Initialize()
	Execute()
	End(interrupted bool)
	IsFinished() bool
}

// RunCommand executes fn every cycle and never finishes on its own.
type RunCommand struct {
	name         string
	fn           func()
	onEnd        func(interrupted bool)
	requirements []Subsystem
}

func Run(name string, fn func(), requirements ...Subsystem) *RunCommand {
	return &RunCommand{
		name:         name,
		fn:           fn,
		requirements: requirements,
	}
}

// OnEnd sets a function called when the command is cancelled.
func (c *RunCommand) OnEnd(fn func(interrupted bool)) *RunCommand {
	c.onEnd = fn
	return c
}

func (c *RunCommand) Name() string              { return c.name }
func (c *RunCommand) Requirements() []Subsystem { return c.requirements }
func (c *RunCommand) Initialize()               {}
func (c *RunCommand) Execute()                  { c.fn() }
func (c *RunCommand) IsFinished() bool          { return false }

func (c *RunCommand) End(interrupted bool) {
	if c.onEnd != nil {
		c.onEnd(interrupted)
	}
}
