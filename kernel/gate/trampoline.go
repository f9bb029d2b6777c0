package gate

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// KernelDataSelector is the GDT selector loaded into the data segment
// registers while a handler runs.
const KernelDataSelector = 0x10

// segmentRegs are pushed in this order and popped in reverse.
var segmentRegs = []string{"%ds", "%es", "%fs", "%gs"}

// insn is a single line of a trampoline body. An empty text produces a blank
// separator line.
type insn struct {
	text    string
	comment string
}

// Trampoline describes the entry routine for a single vector: the
// register save/restore template shared by every vector, the routine it
// calls and whether the vector number is pushed as the call argument.
type Trampoline struct {
	Vector Vector

	// Target is the symbol invoked once the CPU state has been saved.
	Target string

	// PushVector is set when the vector number is passed to Target.
	PushVector bool
}

// NewTrampoline builds the trampoline for v based on its category.
func NewTrampoline(v Vector) Trampoline {
	c := Classify(v)
	return Trampoline{
		Vector:     v,
		Target:     c.Target(),
		PushVector: c.Kind != SpecializedFault,
	}
}

func (t Trampoline) body() []insn {
	body := []insn{{"pushal", "Save all general purpose registers"}}
	for i, reg := range segmentRegs {
		in := insn{text: "pushl " + reg}
		if i == 0 {
			in.comment = "Save segment registers"
		}
		body = append(body, in)
	}

	body = append(body, insn{}, insn{fmt.Sprintf("movl $0x%x, %%eax", KernelDataSelector), "Kernel data segment selector"})
	for _, reg := range segmentRegs {
		body = append(body, insn{text: "movl %eax, " + reg})
	}
	body = append(body, insn{})

	if t.PushVector {
		body = append(body, insn{"pushl $" + strconv.Itoa(int(t.Vector)), "Interrupt vector number"})
	}
	body = append(body, insn{text: "call " + t.Target})
	if t.PushVector {
		body = append(body, insn{"addl $4, %esp", "Remove the interrupt vector number"})
	}
	body = append(body, insn{})

	for i := len(segmentRegs) - 1; i >= 0; i-- {
		in := insn{text: "popl " + segmentRegs[i]}
		if i == len(segmentRegs)-1 {
			in.comment = "Restore segment registers"
		}
		body = append(body, in)
	}

	return append(body,
		insn{"popal", "Restore all general purpose registers"},
		insn{"iret", "Return from interrupt"},
	)
}

// WriteTo emits the assembly for t to w.
func (t Trampoline) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	t.appendTo(&buf)
	return buf.WriteTo(w)
}

func (t Trampoline) appendTo(buf *bytes.Buffer) {
	sym := t.Vector.Symbol()
	fmt.Fprintf(buf, "\n.globl %s\n%s:\n", sym, sym)
	for _, in := range t.body() {
		switch {
		case in.text == "":
			buf.WriteByte('\n')
		case in.comment == "":
			fmt.Fprintf(buf, "    %s\n", in.text)
		default:
			fmt.Fprintf(buf, "    %-20s# %s\n", in.text, in.comment)
		}
	}
}

// loadIDTRoutine loads the IDT register from the IDT pointer passed as the
// first cdecl argument.
const loadIDTRoutine = `load_idt_asm:
    pushl   %ebp
    movl    %esp, %ebp
    movl    8(%ebp), %eax       # Get pointer to IDT pointer structure
    lidt    (%eax)              # Load IDT
    movl    %ebp, %esp
    popl    %ebp
    ret
`

// WriteTrampolines emits the assembly translation unit containing the
// load_idt_asm routine followed by one trampoline per vector. The unit is
// built in memory and handed to w with a single Write call.
func WriteTrampolines(w io.Writer) error {
	var buf bytes.Buffer

	buf.WriteString("# Generated interrupt handlers\n")
	buf.WriteString(".section .text\n.code32\n\n")
	buf.WriteString("# Assembly functions for IDT\n\n")
	buf.WriteString(".globl load_idt_asm\n")
	for _, sym := range externalTargets() {
		fmt.Fprintf(&buf, ".extern %s\n", sym)
	}
	buf.WriteByte('\n')
	buf.WriteString(loadIDTRoutine)
	buf.WriteByte('\n')

	for _, v := range Vectors() {
		NewTrampoline(v).appendTo(&buf)
	}

	buf.WriteString("\n.section .note.GNU-stack,\"\",@progbits\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// externalTargets returns the C symbols called by the trampolines.
func externalTargets() []string {
	targets := []string{NoErrorCodeDispatcher, ErrorCodeDispatcher}
	for _, f := range Faults() {
		targets = append(targets, f.Handler())
	}
	return targets
}
