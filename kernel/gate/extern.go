package gate

import (
	"bytes"
	"fmt"
	"io"
)

// WriteExterns emits a C forward declaration for every trampoline so that
// translation units building the descriptor table can reference them.
func WriteExterns(w io.Writer) error {
	var buf bytes.Buffer
	for _, v := range Vectors() {
		fmt.Fprintf(&buf, "extern void %s(void);\n", v.Symbol())
	}

	_, err := w.Write(buf.Bytes())
	return err
}
