package profiler

import (
	"slices"

	"github.com/gofrs/uuid"
)

// TimelineID is a stable correlation key identifying one ProfilerTimeline
// instance across snapshots. It is never dereferenced, only compared.
type TimelineID = uuid.UUID

// TimerStats is one rolling window flattened into value form. Times is a
// copy of the raw ring buffer and Index the current write position within
// it; a consumer that wants chronological order finds the oldest valid
// sample at (Index - NumAveraged) mod MaxWindowSize.
type TimerStats struct {
	Last    float64
	Average float64
	AbsMin  float64
	AbsMax  float64
	Times   [MaxWindowSize]float64
	Index   int
}

// TimerInfo describes one visible timer in a snapshot. NumAveraged == 0
// means the timer had no results this snapshot, typically because the GPU
// result is not yet ready; that is a normal steady state, not an error.
type TimerInfo struct {
	// NumAveraged is the number of samples behind Average, capped at the
	// timeline's averaging window.
	NumAveraged int

	// Accumulated is set when this entry is the elementwise sum of several
	// same-name, same-level sections recorded within one frame.
	Accumulated bool

	// Async selects the meaning of Level: frame timers carry their nesting
	// depth (the synthetic frame root is level 0), async timers carry
	// LevelSingleShot.
	Async bool

	Level int32

	CPU TimerStats
	GPU TimerStats
}

// LevelSingleShot is the Level value carried by async timer entries.
const LevelSingleShot int32 = -1

// Snapshot is an immutable point-in-time copy of a timeline's statistics.
// The three slices are parallel, one element per visible timer. Frame
// snapshots start with a synthetic "Frame" root; async snapshots start with
// a synthetic "Async" root and are empty when no async timer has results.
type Snapshot struct {
	Name string
	ID   TimelineID

	TimerInfos    []TimerInfo
	TimerNames    []string
	TimerAPINames []string
}

// clone returns a deep copy safe to hand across threads. TimerStats holds
// its ring by value, so cloning the slices is sufficient.
func (s Snapshot) clone() Snapshot {
	s.TimerInfos = slices.Clone(s.TimerInfos)
	s.TimerNames = slices.Clone(s.TimerNames)
	s.TimerAPINames = slices.Clone(s.TimerAPINames)
	return s
}

func (s *Snapshot) append(info TimerInfo, name, apiName string) {
	s.TimerInfos = append(s.TimerInfos, info)
	s.TimerNames = append(s.TimerNames, name)
	s.TimerAPINames = append(s.TimerAPINames, apiName)
}
