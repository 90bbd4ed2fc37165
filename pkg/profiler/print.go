package profiler

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// AppendPrint renders the current snapshots of all timelines as a
// human-readable table. Formatting only; the numbers are exactly the ones
// GetSnapshots returns.
func (m *Manager) AppendPrint(w io.Writer) error {
	frame, async := m.GetSnapshots()

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	for i := range frame {
		printSnapshot(tw, &frame[i])
		printSnapshot(tw, &async[i])
	}
	return tw.Flush()
}

func printSnapshot(w io.Writer, s *Snapshot) {
	if len(s.TimerInfos) == 0 {
		return
	}
	fmt.Fprintf(w, "timeline %q\n", s.Name)
	fmt.Fprint(w, "\ttimer\tcpu avg [µs]\tcpu last [µs]\tgpu avg [µs]\tgpu last [µs]\tsamples\t\n")
	for i, info := range s.TimerInfos {
		name := s.TimerNames[i]
		if api := s.TimerAPINames[i]; api != "" {
			name = name + " [" + api + "]"
		}
		if info.Accumulated {
			name += " (sum)"
		}
		depth := int(info.Level)
		if info.Async {
			depth = 1
			if info.Level == 0 {
				depth = 0
			}
		}
		fmt.Fprintf(w, "\t%s%s\t%.1f\t%.1f\t%.1f\t%.1f\t%d\t\n",
			strings.Repeat("  ", depth), name,
			info.CPU.Average, info.CPU.Last,
			info.GPU.Average, info.GPU.Last,
			info.NumAveraged,
		)
	}
}
