package errors

var (
	ErrInvalidParamValue = KernelError("invalid parameter value")
	ErrUnknownCommand    = KernelError("unknown command")
	ErrUnknownArtifact   = KernelError("unknown artifact")
	ErrStaleArtifact     = KernelError("artifact is out of date")
	ErrUsage             = KernelError("invalid command line")
)

// KernelError is a trivial implementation of an error message that doesn't
// require a memory allocation. It is used as an alternative to errors.New
// for sentinel values that callers compare against.
type KernelError string

// Error implements the error interface.
func (err KernelError) Error() string {
	return string(err)
}

// Error ties an underlying error to the module (generated artifact, command)
// where it occurred.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Module + ": " + e.Message
	case e.Message == "":
		return e.Module + ": " + e.Err.Error()
	default:
		return e.Module + ": " + e.Message + ": " + e.Err.Error()
	}
}

// Unwrap returns the underlying cause so that errors.Is and errors.As can
// inspect it.
func (e *Error) Unwrap() error {
	return e.Err
}
