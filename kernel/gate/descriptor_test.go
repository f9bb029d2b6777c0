package gate

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
)

func TestGateFlagsString(t *testing.T) {
	specs := []struct {
		flags GateFlags
		exp   string
	}{
		{FlagPresent | FlagInterruptGate, "IDT_PRESENT | IDT_INTERRUPT"},
		{FlagPresent | FlagTrapGate, "IDT_PRESENT | IDT_TRAP"},
		{FlagPresent | FlagRing3 | FlagInterruptGate, "IDT_PRESENT | IDT_RING_3 | IDT_INTERRUPT"},
		{FlagRing0, "IDT_RING_0"},
		{FlagPresent | 0x01, "IDT_PRESENT | 0x01"},
	}

	for specIndex, spec := range specs {
		if got := spec.flags.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestDescriptorEntryEncode(t *testing.T) {
	entry := NewDescriptorEntry(0x21)
	got := entry.Encode(0xc0105a3c)
	exp := [8]byte{0x3c, 0x5a, 0x08, 0x00, 0x00, 0x8e, 0x10, 0xc0}

	if got != exp {
		t.Fatalf("expected encoded entry to be % x; got % x", exp, got)
	}
}

func TestNewDescriptorEntry(t *testing.T) {
	for _, v := range Vectors() {
		entry := NewDescriptorEntry(v)
		if entry.Selector != KernelCodeSelector {
			t.Fatalf("vector %d: expected selector 0x%x; got 0x%x", v, KernelCodeSelector, entry.Selector)
		}
		if entry.Flags != FlagPresent|FlagInterruptGate {
			t.Fatalf("vector %d: expected flags %s; got %s", v, FlagPresent|FlagInterruptGate, entry.Flags)
		}
	}

	if IDTLimit != 2047 {
		t.Fatalf("expected IDT limit to be 2047; got %d", IDTLimit)
	}
}

func TestWriteDescriptorTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDescriptorTable(&buf); err != nil {
		t.Fatal(err)
	}

	lineRegex := regexp.MustCompile(`^    create_idt_descriptor\(&idt\[(\d+)\], \(uint32_t\)(interrupt_handler_\d+), 0x08, IDT_PRESENT \| IDT_INTERRUPT\);(  // (.+))?$`)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != NumVectors {
		t.Fatalf("expected %d installation statements; got %d", NumVectors, len(lines))
	}

	var externs bytes.Buffer
	if err := WriteExterns(&externs); err != nil {
		t.Fatal(err)
	}

	expNotes := map[int]string{
		0:  "Divide By Zero",
		13: "General Protection Fault",
		14: "Page Fault",
	}

	for i, line := range lines {
		m := lineRegex.FindStringSubmatch(line)
		if m == nil {
			t.Fatalf("line %d: unexpected statement %q", i, line)
		}

		if exp := Vector(i).Symbol(); m[1] != strings.TrimPrefix(exp, "interrupt_handler_") || m[2] != exp {
			t.Errorf("line %d: expected slot %d to reference %s; got %q", i, i, exp, line)
		}

		if got := m[4]; got != expNotes[i] {
			t.Errorf("line %d: expected annotation %q; got %q", i, expNotes[i], got)
		}

		if !strings.Contains(externs.String(), "extern void "+m[2]+"(void);\n") {
			t.Errorf("line %d: symbol %s has no extern declaration", i, m[2])
		}
	}
}
