package process

// ToolErrorCode is the exit code the instrumentation tool is told to use
// (--error-exitcode) when it detects an error. Build and coverage tools can
// also return it from probe runs, so it is never treated as fatal on its own.
const ToolErrorCode = 101

// Outcome is the tagged interpretation of a subprocess exit code.
type Outcome int

const (
	// Success means the process exited with 0.
	Success Outcome = iota
	// ToolWarning means the process exited with ToolErrorCode.
	ToolWarning
	// Failure means any other exit code.
	Failure
)

// Classify maps a raw exit code to an Outcome.
func Classify(code int) Outcome {
	switch code {
	case 0:
		return Success
	case ToolErrorCode:
		return ToolWarning
	default:
		return Failure
	}
}

// Acceptable reports whether the outcome lets a build or coverage step continue.
func (o Outcome) Acceptable() bool {
	return o != Failure
}

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ToolWarning:
		return "tool-error"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}
