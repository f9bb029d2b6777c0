package gate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// KernelCodeSelector is the GDT selector of the kernel code segment. All
// interrupt gates transfer control through it.
const KernelCodeSelector = 0x08

// IDTLimit is the value stored in the limit field of the IDT pointer.
const IDTLimit = NumVectors*8 - 1

// GateFlags holds the type_attr byte of an i386 gate descriptor.
type GateFlags uint8

// The supported type_attr bits. A gate descriptor combines FlagPresent, a
// privilege level and exactly one gate type.
const (
	FlagRing0         GateFlags = 0x00
	FlagInterruptGate GateFlags = 0x0e
	FlagTrapGate      GateFlags = 0x0f
	FlagRing3         GateFlags = 0x60
	FlagPresent       GateFlags = 0x80
)

var flagNames = []struct {
	flag GateFlags
	name string
}{
	{FlagPresent, "IDT_PRESENT"},
	{FlagRing3, "IDT_RING_3"},
	{FlagTrapGate, "IDT_TRAP"},
	{FlagInterruptGate, "IDT_INTERRUPT"},
}

// String renders f as the C expression built from the IDT_* macros of the
// kernel's idt.h, e.g. "IDT_PRESENT | IDT_INTERRUPT".
func (f GateFlags) String() string {
	var (
		parts []string
		rem   = f
	)
	for _, fn := range flagNames {
		if rem&fn.flag == fn.flag && fn.flag != 0 {
			parts = append(parts, fn.name)
			rem &^= fn.flag
		}
	}
	if rem != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(rem)))
	}
	if len(parts) == 0 {
		return "IDT_RING_0"
	}
	return strings.Join(parts, " | ")
}

// DescriptorEntry describes the IDT slot for a single vector. Only the
// procedure symbol differs between vectors.
type DescriptorEntry struct {
	Vector   Vector
	Selector uint16
	Flags    GateFlags
}

// NewDescriptorEntry returns the present, ring 0, 32-bit interrupt gate
// entry for v.
func NewDescriptorEntry(v Vector) DescriptorEntry {
	return DescriptorEntry{
		Vector:   v,
		Selector: KernelCodeSelector,
		Flags:    FlagPresent | FlagInterruptGate,
	}
}

// Symbol returns the procedure symbol referenced by the entry.
func (e DescriptorEntry) Symbol() string {
	return e.Vector.Symbol()
}

// Encode packs the entry using offset as the procedure address. The layout
// matches IDTEntry: offset_low, selector, zero, type_attr, offset_high.
func (e DescriptorEntry) Encode(offset uint32) [8]byte {
	var out [8]byte
	binary.LittleEndian.PutUint16(out[0:], uint16(offset&0xffff))
	binary.LittleEndian.PutUint16(out[2:], e.Selector)
	out[4] = 0
	out[5] = uint8(e.Flags)
	binary.LittleEndian.PutUint16(out[6:], uint16(offset>>16))
	return out
}

// annotation returns the trailing comment attached to the installer line
// for e, or an empty string.
func (e DescriptorEntry) annotation() string {
	if c := Classify(e.Vector); c.Kind == SpecializedFault {
		return c.Fault.Title()
	}
	return ""
}

func (e DescriptorEntry) appendTo(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "    create_idt_descriptor(&idt[%d], (uint32_t)%s, 0x%02x, %s);",
		e.Vector, e.Symbol(), e.Selector, e.Flags)
	if note := e.annotation(); note != "" {
		fmt.Fprintf(buf, "  // %s", note)
	}
	buf.WriteByte('\n')
}

// WriteDescriptorTable emits one create_idt_descriptor call per vector. The
// output is meant to be #included by idt_init before the table is loaded.
func WriteDescriptorTable(w io.Writer) error {
	var buf bytes.Buffer
	for _, v := range Vectors() {
		NewDescriptorEntry(v).appendTo(&buf)
	}

	_, err := w.Write(buf.Bytes())
	return err
}
