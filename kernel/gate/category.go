package gate

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CategoryKind selects the entry sequence used by a vector's trampoline.
type CategoryKind uint8

const (
	// NoErrorCode vectors dispatch to the generic handler and receive the
	// vector number as their only argument.
	NoErrorCode CategoryKind = iota

	// ErrorCodeBearing vectors dispatch to the generic error code handler.
	// The CPU has already pushed an error code below the return frame.
	ErrorCodeBearing

	// SpecializedFault vectors call a dedicated fault handler directly and
	// pass no arguments.
	SpecializedFault
)

var kindNames = [...]string{
	NoErrorCode:      "no-error-code",
	ErrorCodeBearing: "error-code",
	SpecializedFault: "specialized-fault",
}

// String implements fmt.Stringer.
func (k CategoryKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

const (
	// NoErrorCodeDispatcher is the C entrypoint that handles vectors
	// without a CPU-pushed error code.
	NoErrorCodeDispatcher = "generic_interrupt_handler_no_error_code"

	// ErrorCodeDispatcher is the C entrypoint for vectors where the CPU
	// pushes an error code. It expects that code to still be on the stack.
	ErrorCodeDispatcher = "generic_interrupt_handler_error_code"
)

// Fault names a vector that is served by a dedicated handler.
type Fault string

// Handler returns the symbol of the C routine that handles f.
func (f Fault) Handler() string {
	return "handle_" + string(f)
}

// Title returns a human readable name for f, e.g. "Page Fault".
func (f Fault) Title() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(f), "_", " "))
}

// specializedFaults lists the vectors with dedicated handlers, in vector
// order. Entries here take precedence over PushesErrorCode.
var specializedFaults = []struct {
	vector Vector
	fault  Fault
}{
	{DivideByZero, "divide_by_zero"},
	{GPFException, "general_protection_fault"},
	{PageFaultException, "page_fault"},
}

// Category is the handling class of a vector. Fault is only set when Kind
// is SpecializedFault.
type Category struct {
	Kind  CategoryKind
	Fault Fault
}

// Target returns the symbol that the trampoline for this category calls.
func (c Category) Target() string {
	switch c.Kind {
	case SpecializedFault:
		return c.Fault.Handler()
	case ErrorCodeBearing:
		return ErrorCodeDispatcher
	default:
		return NoErrorCodeDispatcher
	}
}

// String implements fmt.Stringer.
func (c Category) String() string {
	if c.Kind == SpecializedFault {
		return c.Kind.String() + "(" + string(c.Fault) + ")"
	}
	return c.Kind.String()
}

// Classify returns the category of v. A dedicated fault handler always wins
// over the generic error code path, so PageFaultException is classified as
// SpecializedFault even though the CPU pushes an error code for it.
func Classify(v Vector) Category {
	for _, sf := range specializedFaults {
		if sf.vector == v {
			return Category{Kind: SpecializedFault, Fault: sf.fault}
		}
	}

	if v.PushesErrorCode() {
		return Category{Kind: ErrorCodeBearing}
	}

	return Category{Kind: NoErrorCode}
}

// Faults returns the specialized faults in vector order.
func Faults() []Fault {
	faults := make([]Fault, 0, len(specializedFaults))
	for _, sf := range specializedFaults {
		faults = append(faults, sf.fault)
	}
	return faults
}
