package profiler

import (
	"sync"
	"sync/atomic"

	"github.com/gofrs/uuid"

	"github.com/gpukit/gpuprof/pkg/xlog"
)

// DefaultAveragingCount is the rolling window width used when a timeline is
// created without one.
const DefaultAveragingCount = MaxWindowSize

// TimelineCreateInfo configures one ProfilerTimeline. Zero fields fall back
// to defaults.
type TimelineCreateInfo struct {
	// Name identifies the timeline in snapshots and printouts.
	Name string

	// FrameDelay is the number of frames GPU query results lag behind
	// submission, clamped to [1, MaxFrameDelay].
	FrameDelay uint32

	// FrameConfigDelay is the number of frames statistics stay wiped after
	// a timer topology change. DefaultFrameConfigDelay when zero.
	FrameConfigDelay uint32

	// AveragingCount is the rolling window width, DefaultAveragingCount
	// when zero. Use Unbounded for lifetime averaging.
	AveragingCount int
}

// Unbounded selects lifetime averaging instead of a rolling window.
const Unbounded = -1

// ProfilerTimeline is one independent stream of frame and async sections.
//
// Thread model: the frame methods (FrameBegin, FrameEnd, FrameAdvance,
// FrameBeginSection, FrameEndSection, FrameAccumulationSplit) belong to a
// single producer thread and are not mutually thread-safe. The async
// methods and every snapshot accessor are safe from any thread at any time.
type ProfilerTimeline struct {
	name string
	id   TimelineID
	log  xlog.Logger

	averagingCount atomic.Int64
	resetRequest   atomic.Bool

	frame frameTimeline

	snapMu        sync.Mutex
	frameSnapshot Snapshot

	async asyncTimeline
}

func newTimeline(info TimelineCreateInfo, clock Clock, log xlog.Logger) *ProfilerTimeline {
	if info.FrameDelay == 0 {
		info.FrameDelay = MaxFrameDelay
	}
	if info.FrameConfigDelay == 0 {
		info.FrameConfigDelay = DefaultFrameConfigDelay
	}
	averaging := info.AveragingCount
	switch {
	case averaging == Unbounded:
		averaging = 0
	case averaging == 0:
		averaging = DefaultAveragingCount
	}
	if clock == nil {
		clock = NewClock()
	}

	t := &ProfilerTimeline{
		name: info.Name,
		id:   uuid.Must(uuid.NewV4()),
		log:  log.WithName("timeline"),
	}
	t.averagingCount.Store(int64(averaging))
	t.frame.init(info.Name, clock, t.log, info.FrameDelay, info.FrameConfigDelay, averaging)
	t.async.init(clock, averaging)
	t.frameSnapshot = Snapshot{Name: info.Name, ID: t.id}
	return t
}

func (t *ProfilerTimeline) Name() string { return t.name }

// ID is a stable correlation key for this timeline instance, usable by
// consumers to track a timeline across snapshot batches.
func (t *ProfilerTimeline) ID() TimelineID { return t.id }

// FrameDelay reports the pipelining depth frame GPU results are read at.
func (t *ProfilerTimeline) FrameDelay() uint32 { return t.frame.frameDelay }

// FrameBegin opens a new frame. Must be paired with FrameEnd.
func (t *ProfilerTimeline) FrameBegin() {
	t.frame.begin()
}

// FrameEnd closes the current frame, collects pipelined results and
// publishes a fresh snapshot. Panics if sections are unbalanced.
func (t *ProfilerTimeline) FrameEnd() {
	t.frame.end(int(t.averagingCount.Load()), t.resetRequest.Swap(false))

	snap := t.frame.internalSnapshot(t.name, t.id)
	t.snapMu.Lock()
	t.frameSnapshot = snap
	t.snapMu.Unlock()
}

// FrameAdvance ends the current frame if one is open, then begins the next.
// This is the only per-frame call most applications need.
func (t *ProfilerTimeline) FrameAdvance() {
	if t.frame.inFrame {
		t.FrameEnd()
	}
	t.FrameBegin()
}

// FrameBeginSection opens a nested timed region. provider may be nil for a
// CPU-only timer; a non-nil provider is borrowed and must outlive the
// timeline.
func (t *ProfilerTimeline) FrameBeginSection(name string, provider GPUTimeProvider) FrameSectionID {
	return t.frame.beginSection(name, provider)
}

func (t *ProfilerTimeline) FrameEndSection(id FrameSectionID) {
	t.frame.endSection(id)
}

// FrameAccumulationSplit fences same-name sections: regions recorded after
// the split are not merged with ones before it.
func (t *ProfilerTimeline) FrameAccumulationSplit() {
	t.frame.accumulationSplit()
}

// TimedFrameSection opens a section and returns the closure ending it,
// for defer-style scope guards.
func (t *ProfilerTimeline) TimedFrameSection(name string, provider GPUTimeProvider) func() {
	id := t.FrameBeginSection(name, provider)
	return func() { t.FrameEndSection(id) }
}

// FrameResetSections requests a statistics reset, applied at the next
// FrameEnd. Safe from any thread.
func (t *ProfilerTimeline) FrameResetSections() {
	t.resetRequest.Store(true)
}

// SetFrameAveragingCount changes the rolling window width, applied lazily
// at the next FrameEnd. Safe from any thread. Pass Unbounded for lifetime
// averaging.
func (t *ProfilerTimeline) SetFrameAveragingCount(count int) {
	if count == Unbounded {
		count = 0
	} else if count == 0 {
		count = DefaultAveragingCount
	}
	t.averagingCount.Store(int64(count))
	t.async.setAveragingCount(count)
}

// GetFrameSnapshot returns a deep copy of the latest published frame
// snapshot, safe to read concurrently with further profiler activity.
func (t *ProfilerTimeline) GetFrameSnapshot() Snapshot {
	t.snapMu.Lock()
	defer t.snapMu.Unlock()
	return t.frameSnapshot.clone()
}

// AsyncBeginSection starts a named single-shot section. Safe from any
// thread. Re-beginning an un-ended name overwrites its in-flight state.
func (t *ProfilerTimeline) AsyncBeginSection(name string, provider GPUTimeProvider) AsyncSectionID {
	return t.async.beginSection(name, provider)
}

func (t *ProfilerTimeline) AsyncEndSection(id AsyncSectionID) {
	t.async.endSection(id)
}

// TimedAsyncSection opens an async section and returns the closure ending it.
func (t *ProfilerTimeline) TimedAsyncSection(name string, provider GPUTimeProvider) func() {
	id := t.AsyncBeginSection(name, provider)
	return func() { t.AsyncEndSection(id) }
}

// AsyncRemoveTimer forgets a named async timer and its history.
func (t *ProfilerTimeline) AsyncRemoveTimer(name string) {
	t.async.removeTimer(name)
}

// GetAsyncTimerInfo returns the current result for one named async timer.
// ok is false while the section is in flight or its GPU result is pending.
func (t *ProfilerTimeline) GetAsyncTimerInfo(name string) (TimerInfo, bool) {
	return t.async.getTimerInfo(name)
}

// GetAsyncSnapshot builds an on-demand snapshot of all async timers with
// results. Empty when none have any.
func (t *ProfilerTimeline) GetAsyncSnapshot() Snapshot {
	return t.async.snapshot(t.name, t.id)
}
