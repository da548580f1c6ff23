package output

import (
	"fmt"

	"github.com/Aman-CERP/meetprep/internal/async"
)

// Progress prints one line per build stage change. Idle and ready states are
// left to the caller's summary.
// Format: [stage] current/total (pct%)
func (w *Writer) Progress(s async.StatusSnapshot) {
	stage := w.styles.Dim.Render(fmt.Sprintf("[%s]", s.State))
	switch s.State {
	case async.StateScanning:
		_, _ = fmt.Fprintf(w.out, "%s listing notes\n", stage)
	case async.StateIndexing:
		if s.Total == 0 {
			return
		}
		_, _ = fmt.Fprintf(w.out, "%s %d/%d (%.0f%%)\n", stage, s.Current, s.Total, s.ProgressPct)
	case async.StateError:
		_, _ = fmt.Fprintf(w.out, "%s %s\n", stage, w.styles.Error.Render(s.LastError))
	}
}
