package renderer

import (
	"bytes"
	"fmt"
	"io"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// Status is the state of the household data a report was made from.
type Status struct {
	Offline         bool
	Error           string // last error message, if any
	MembersUnsynced bool
	FundsUnsynced   bool
}

// RenderStatus writes a status section to w, or nothing when there is nothing to report.
func RenderStatus(w io.Writer, st Status) {
	ConditionalBlock(w, func(w io.Writer) bool {
		fmt.Fprint(w, "\n## Status\n\n")
		shown := false
		if st.Offline {
			fmt.Fprintln(w, "- No backend configured, the household is only stored locally.")
			shown = true
		}
		if st.Error != "" {
			fmt.Fprintf(w, "- Last error: %s\n", escapeCell(st.Error))
			shown = true
		}
		if st.MembersUnsynced {
			fmt.Fprintln(w, "- Family members have changes not saved on the backend yet, run `retire sync`.")
			shown = true
		}
		if st.FundsUnsynced {
			fmt.Fprintln(w, "- Retirement funds have changes not saved on the backend yet, run `retire sync`.")
			shown = true
		}
		return shown
	})
}
