package profiler

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/gpukit/gpuprof/pkg/xlog"
)

// Manager owns a set of profiler timelines and fans configuration out to
// all of them. All methods are safe from any thread.
type Manager struct {
	log   xlog.Logger
	clock Clock

	mu        sync.Mutex
	timelines []*ProfilerTimeline
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source of every timeline the manager
// creates. Intended for tests.
func WithClock(clock Clock) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

func NewManager(log xlog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		log: log.WithName("profiler"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = NewClock()
	}
	return m
}

// CreateTimeline makes a new timeline owned by the manager. The returned
// pointer stays valid across other timeline creations and removals.
func (m *Manager) CreateTimeline(info TimelineCreateInfo) *ProfilerTimeline {
	t := newTimeline(info, m.clock, m.log)

	m.mu.Lock()
	m.timelines = append(m.timelines, t)
	m.mu.Unlock()

	m.log.Debug(context.Background(), "created profiler timeline",
		zap.String("name", t.Name()),
		zap.Stringer("id", t.ID()),
	)
	return t
}

// DestroyTimeline removes a timeline from the manager. Destroying a
// timeline the manager does not own is a contract violation.
func (m *Manager) DestroyTimeline(t *ProfilerTimeline) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.Index(m.timelines, t)
	if i < 0 {
		panic(fmt.Sprintf("profiler: destroying unknown timeline %q", t.Name()))
	}
	m.timelines = slices.Delete(m.timelines, i, i+1)
}

// Close verifies that every timeline was explicitly destroyed. Timelines
// reference borrowed GPU time providers, so their teardown order must stay
// in the caller's hands; the manager never cleans up implicitly.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.timelines) != 0 {
		panic(fmt.Sprintf("profiler: manager closed with %d live timelines", len(m.timelines)))
	}
}

// SetFrameAveragingCount broadcasts a new rolling window width to all
// timelines, applied at each timeline's next frame end.
func (m *Manager) SetFrameAveragingCount(count int) {
	for _, t := range m.snapshotTimelines() {
		t.SetFrameAveragingCount(count)
	}
}

// ResetFrameSections broadcasts a statistics reset request to all
// timelines.
func (m *Manager) ResetFrameSections() {
	for _, t := range m.snapshotTimelines() {
		t.FrameResetSections()
	}
}

// GetSnapshots collects a frame and an async snapshot from every timeline.
// The returned snapshots are deep copies, safe to use concurrently with
// further profiler activity.
func (m *Manager) GetSnapshots() (frame []Snapshot, async []Snapshot) {
	timelines := m.snapshotTimelines()
	frame = make([]Snapshot, 0, len(timelines))
	async = make([]Snapshot, 0, len(timelines))
	for _, t := range timelines {
		frame = append(frame, t.GetFrameSnapshot())
		async = append(async, t.GetAsyncSnapshot())
	}
	return frame, async
}

func (m *Manager) snapshotTimelines() []*ProfilerTimeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.timelines)
}
