package profiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrame_NestedSections(t *testing.T) {
	fc := &fakeClock{}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame", FrameDelay: 1}, fc.clock())

	tl.FrameBegin()
	a := tl.FrameBeginSection("A", nil)
	fc.advance(30)
	b := tl.FrameBeginSection("B", nil)
	fc.advance(10)
	tl.FrameEndSection(b)
	fc.advance(20)
	tl.FrameEndSection(a)
	tl.FrameEnd()

	snap := tl.GetFrameSnapshot()
	require.Equal(t, []string{"Frame", "A", "B"}, snap.TimerNames)

	info, ok := entryByName(snap, "A")
	require.True(t, ok)
	require.Equal(t, int32(1), info.Level)
	require.Equal(t, 1, info.NumAveraged)
	require.InDelta(t, 60.0, info.CPU.Last, 1e-9)

	info, ok = entryByName(snap, "B")
	require.True(t, ok)
	require.Equal(t, int32(2), info.Level)
	require.InDelta(t, 10.0, info.CPU.Last, 1e-9)

	root := snap.TimerInfos[0]
	require.Equal(t, int32(0), root.Level)
	require.InDelta(t, 60.0, root.CPU.Last, 1e-9)
}

func TestFrame_UnbalancedSectionsPanic(t *testing.T) {
	fc := &fakeClock{}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame"}, fc.clock())

	tl.FrameBegin()
	tl.FrameBeginSection("A", nil)
	require.Panics(t, tl.FrameEnd)
}

func TestFrame_CallsOutsideFramePanic(t *testing.T) {
	fc := &fakeClock{}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame"}, fc.clock())

	require.Panics(t, func() { tl.FrameBeginSection("A", nil) })
	require.Panics(t, tl.FrameEnd)
	require.Panics(t, tl.FrameAccumulationSplit)

	tl.FrameBegin()
	require.Panics(t, tl.FrameBegin)
}

func TestFrame_AccumulationMerge(t *testing.T) {
	fc := &fakeClock{}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame", FrameDelay: 1}, fc.clock())

	tl.FrameBegin()
	for _, d := range []float64{100, 50} {
		id := tl.FrameBeginSection("X", nil)
		fc.advance(d)
		tl.FrameEndSection(id)
	}
	tl.FrameEnd()

	snap := tl.GetFrameSnapshot()
	require.Equal(t, []string{"Frame", "X"}, snap.TimerNames)

	info, ok := entryByName(snap, "X")
	require.True(t, ok)
	require.True(t, info.Accumulated)
	require.InDelta(t, 150.0, info.CPU.Last, 1e-9)
	require.InDelta(t, 150.0, info.CPU.Average, 1e-9)
}

func TestFrame_AccumulationMergeSumsExtrema(t *testing.T) {
	fc := &fakeClock{}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame", FrameDelay: 1}, fc.clock())

	for _, durations := range [][]float64{{100, 50}, {200, 30}} {
		tl.FrameBegin()
		for _, d := range durations {
			id := tl.FrameBeginSection("X", nil)
			fc.advance(d)
			tl.FrameEndSection(id)
		}
		tl.FrameEnd()
	}

	info, ok := entryByName(tl.GetFrameSnapshot(), "X")
	require.True(t, ok)
	require.True(t, info.Accumulated)

	// The merged extrema are sums across the merged sections, reflecting
	// the total cost of the repeated calls: not a min/max of the group,
	// which would be 30 and 200 here.
	require.InDelta(t, 130.0, info.CPU.AbsMin, 1e-9)
	require.InDelta(t, 250.0, info.CPU.AbsMax, 1e-9)
	require.InDelta(t, 230.0, info.CPU.Last, 1e-9)
	require.InDelta(t, 190.0, info.CPU.Average, 1e-9)
}

func TestFrame_CustomAveragingCountCapsNewSections(t *testing.T) {
	fc := &fakeClock{}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame", FrameDelay: 1, FrameConfigDelay: 2, AveragingCount: 4}, fc.clock())

	// Sections recorded from the first frame get the configured window,
	// not an unbounded one.
	for i := 0; i < 10; i++ {
		runFrame(tl, fc, "A")
	}
	info, ok := entryByName(tl.GetFrameSnapshot(), "A")
	require.True(t, ok)
	require.Equal(t, 4, info.NumAveraged)
	require.InDelta(t, 10.0, info.CPU.Average, 1e-9)

	// So does a section whose slot first appears mid-run.
	for i := 0; i < 10; i++ {
		runFrame(tl, fc, "A", "B")
	}
	info, ok = entryByName(tl.GetFrameSnapshot(), "B")
	require.True(t, ok)
	require.Equal(t, 4, info.NumAveraged)
}

func TestFrame_SplitPreventsMerge(t *testing.T) {
	fc := &fakeClock{}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame", FrameDelay: 1}, fc.clock())

	tl.FrameBegin()
	id := tl.FrameBeginSection("X", nil)
	fc.advance(100)
	tl.FrameEndSection(id)

	tl.FrameAccumulationSplit()

	id = tl.FrameBeginSection("X", nil)
	fc.advance(50)
	tl.FrameEndSection(id)
	tl.FrameEnd()

	snap := tl.GetFrameSnapshot()
	require.Equal(t, []string{"Frame", "X", "X"}, snap.TimerNames)
	require.False(t, snap.TimerInfos[1].Accumulated)
	require.False(t, snap.TimerInfos[2].Accumulated)
	require.InDelta(t, 100.0, snap.TimerInfos[1].CPU.Last, 1e-9)
	require.InDelta(t, 50.0, snap.TimerInfos[2].CPU.Last, 1e-9)
}

// runFrame drives one whole frame with the given section names at level 1.
func runFrame(tl *ProfilerTimeline, fc *fakeClock, names ...string) {
	tl.FrameBegin()
	for _, name := range names {
		id := tl.FrameBeginSection(name, nil)
		fc.advance(10)
		tl.FrameEndSection(id)
	}
	tl.FrameEnd()
}

func TestFrame_TopologyChangeResetCountdown(t *testing.T) {
	fc := &fakeClock{}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame", FrameDelay: 1, FrameConfigDelay: 2}, fc.clock())

	runFrame(tl, fc, "A")
	info, ok := entryByName(tl.GetFrameSnapshot(), "A")
	require.True(t, ok)
	require.Equal(t, 1, info.NumAveraged)

	// A second section appears: the layout changed, statistics are wiped
	// for the next frameConfigDelay frames.
	for i := 0; i < 2; i++ {
		runFrame(tl, fc, "A", "B")
		snap := tl.GetFrameSnapshot()
		for _, name := range []string{"A", "B"} {
			info, ok = entryByName(snap, name)
			require.True(t, ok)
			require.Equal(t, 0, info.NumAveraged, "frame %d, timer %s", i, name)
		}
	}

	// Past the countdown, accumulation resumes from scratch.
	runFrame(tl, fc, "A", "B")
	info, ok = entryByName(tl.GetFrameSnapshot(), "A")
	require.True(t, ok)
	require.Equal(t, 1, info.NumAveraged)

	runFrame(tl, fc, "A", "B")
	info, ok = entryByName(tl.GetFrameSnapshot(), "B")
	require.True(t, ok)
	require.Equal(t, 2, info.NumAveraged)
}

func TestFrame_RenamedSectionTriggersReset(t *testing.T) {
	fc := &fakeClock{}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame", FrameDelay: 1, FrameConfigDelay: 2}, fc.clock())

	runFrame(tl, fc, "old")
	info, ok := entryByName(tl.GetFrameSnapshot(), "old")
	require.True(t, ok)
	require.Equal(t, 1, info.NumAveraged)

	// Same slot, different name: the window no longer describes the same
	// logical region.
	runFrame(tl, fc, "new")
	info, ok = entryByName(tl.GetFrameSnapshot(), "new")
	require.True(t, ok)
	require.Equal(t, 0, info.NumAveraged)
}

func TestFrame_PipelinedResultLatency(t *testing.T) {
	fc := &fakeClock{}
	provider := &scriptProvider{
		api:   "VK",
		frame: func(FrameSectionID, uint32) float64 { return 25 },
	}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame", FrameDelay: 2}, fc.clock())

	// Even with an always-ready provider the result recorded in the first
	// frame surfaces no earlier than frameDelay frames later.
	tl.FrameBegin()
	id := tl.FrameBeginSection("X", provider)
	fc.advance(100)
	tl.FrameEndSection(id)
	tl.FrameEnd()

	info, ok := entryByName(tl.GetFrameSnapshot(), "X")
	require.True(t, ok)
	require.Equal(t, 0, info.NumAveraged)

	tl.FrameBegin()
	id = tl.FrameBeginSection("X", provider)
	fc.advance(100)
	tl.FrameEndSection(id)
	tl.FrameEnd()

	snap := tl.GetFrameSnapshot()
	info, ok = entryByName(snap, "X")
	require.True(t, ok)
	require.Equal(t, 1, info.NumAveraged)
	require.InDelta(t, 100.0, info.CPU.Last, 1e-9)
	require.InDelta(t, 25.0, info.GPU.Last, 1e-9)
	require.Equal(t, "VK", snap.TimerAPINames[1])
}

func TestFrame_GPUTotalSkipsNestedChildren(t *testing.T) {
	fc := &fakeClock{}
	times := map[FrameSectionID]float64{0: 10, 1: 4, 2: 6}
	provider := &scriptProvider{
		api:   "VK",
		frame: func(id FrameSectionID, _ uint32) float64 { return times[id] },
	}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame", FrameDelay: 1}, fc.clock())

	tl.FrameBegin()
	a := tl.FrameBeginSection("A", provider)
	b := tl.FrameBeginSection("B", provider)
	fc.advance(4)
	tl.FrameEndSection(b)
	tl.FrameEndSection(a)
	c := tl.FrameBeginSection("C", provider)
	fc.advance(6)
	tl.FrameEndSection(c)
	tl.FrameEnd()

	snap := tl.GetFrameSnapshot()
	// The frame GPU total sums only the outermost contributing sections;
	// B is nested inside A and must not be double counted.
	require.InDelta(t, 16.0, snap.TimerInfos[0].GPU.Last, 1e-9)

	info, ok := entryByName(snap, "B")
	require.True(t, ok)
	require.InDelta(t, 4.0, info.GPU.Last, 1e-9)
}

func TestFrame_AveragingCountChangeSettlesNextFrame(t *testing.T) {
	fc := &fakeClock{}
	tl := newTestTimeline(TimelineCreateInfo{Name: "frame", FrameDelay: 1, AveragingCount: 8}, fc.clock())

	for i := 0; i < 10; i++ {
		runFrame(tl, fc, "A")
	}
	info, ok := entryByName(tl.GetFrameSnapshot(), "A")
	require.True(t, ok)
	require.Equal(t, 8, info.NumAveraged)
	require.InDelta(t, 10.0, info.CPU.Average, 1e-9)

	// The narrower window applies at the next frame end and starts empty.
	tl.SetFrameAveragingCount(4)
	runFrame(tl, fc, "A")
	info, ok = entryByName(tl.GetFrameSnapshot(), "A")
	require.True(t, ok)
	require.Equal(t, 0, info.NumAveraged)

	for i := 0; i < 6; i++ {
		runFrame(tl, fc, "A")
	}
	info, ok = entryByName(tl.GetFrameSnapshot(), "A")
	require.True(t, ok)
	require.Equal(t, 4, info.NumAveraged)
}
