package profiler

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/gpukit/gpuprof/pkg/xlog"
)

// DefaultFrameConfigDelay is the number of frames during which statistics
// are wiped after a timer topology change, letting the new layout warm up
// before its numbers are trusted.
const DefaultFrameConfigDelay = 8

// frameTimeline drives one frame's worth of nested sections. It is owned by
// a single producer thread; none of its methods are safe to call
// concurrently with each other. Mismatched begin/end nesting is a caller
// contract violation and panics: this is developer tooling, and failing
// loudly beats corrupting statistics silently.
type frameTimeline struct {
	name  string
	clock Clock
	log   xlog.Logger

	frameDelay       uint32
	frameConfigDelay uint32

	inFrame bool
	level   int32
	count   uint32

	sectionsCount     uint32
	sectionsCountLast uint32

	resetDelay         uint32
	averagingCountLast int
	hasSplitter        bool

	cpuCurrent float64
	cpuFrame   rollingWindow
	gpuFrame   rollingWindow

	sections []frameSection
}

func (t *frameTimeline) init(name string, clock Clock, log xlog.Logger, frameDelay, frameConfigDelay uint32, averagingCount int) {
	t.name = name
	t.clock = clock
	t.log = log
	t.frameDelay = min(max(frameDelay, 1), MaxFrameDelay)
	t.frameConfigDelay = frameConfigDelay
	t.averagingCountLast = averagingCount
	t.cpuFrame.init(averagingCount)
	t.gpuFrame.init(averagingCount)
}

func (t *frameTimeline) begin() {
	if t.inFrame {
		panic(fmt.Sprintf("profiler: timeline %q: frameBegin inside an open frame", t.name))
	}
	t.inFrame = true
	t.hasSplitter = false
	t.level = 1
	t.sectionsCount = 0
	// Negated start: adding the end time later yields the elapsed time.
	t.cpuCurrent = -t.clock()
}

func (t *frameTimeline) grow() {
	if int(t.sectionsCount) < len(t.sections) {
		return
	}
	next := make([]frameSection, max(len(t.sections)*2, 16))
	copy(next, t.sections)
	t.sections = next
}

func (t *frameTimeline) beginSection(name string, provider GPUTimeProvider) FrameSectionID {
	if !t.inFrame {
		panic(fmt.Sprintf("profiler: timeline %q: frameBeginSection outside a frame", t.name))
	}
	id := FrameSectionID(t.sectionsCount)
	t.grow()
	s := &t.sections[id]

	// A slot whose recorded identity changed means the statistical window
	// no longer describes the same logical region. A freshly grown slot is
	// not a topology change, but its windows still need the configured
	// width instead of the zero value's unbounded one.
	if !s.used {
		s.resetStats(t.averagingCountLast)
	} else if s.name != name || s.level != t.level || s.provider != provider {
		t.triggerReset()
	}
	s.used = true
	s.splitter = false
	s.accumulated = false
	s.name = name
	s.level = t.level
	s.provider = provider
	s.apiName = ""
	if provider != nil {
		s.apiName = provider.APIName()
	}

	subFrame := t.count % t.frameDelay
	s.subFrame = subFrame
	s.cpuTimes[subFrame] = -t.clock()
	s.gpuTimes[subFrame] = 0
	s.numTimes++

	t.level++
	t.sectionsCount++
	return id
}

func (t *frameTimeline) endSection(id FrameSectionID) {
	s := &t.sections[id]
	s.cpuTimes[s.subFrame] += t.clock()
	t.level--
}

// accumulationSplit inserts a zero-duration fence at the current level.
// Same-name sections after the fence are never merged with ones before it.
func (t *frameTimeline) accumulationSplit() {
	if !t.inFrame {
		panic(fmt.Sprintf("profiler: timeline %q: frameAccumulationSplit outside a frame", t.name))
	}
	id := t.sectionsCount
	t.grow()
	s := &t.sections[id]

	if !s.used {
		s.resetStats(t.averagingCountLast)
	} else if !s.splitter || s.level != t.level {
		t.triggerReset()
	}
	s.used = true
	s.splitter = true
	s.accumulated = false
	s.name = ""
	s.level = t.level
	s.provider = nil
	s.apiName = ""

	t.hasSplitter = true
	t.sectionsCount++
}

func (t *frameTimeline) triggerReset() {
	if t.resetDelay == 0 {
		t.log.Debug(context.Background(), "timer topology changed, resetting statistics",
			zap.String("timeline", t.name),
			zap.Uint32("frame", t.count),
		)
	}
	t.resetDelay = t.frameConfigDelay
}

// end closes the frame: detects topology changes, applies a pending
// averaging-window change, wipes statistics while a reset countdown runs,
// and otherwise collects the pipelined results from frameDelay frames ago.
func (t *frameTimeline) end(averagingCount int, resetRequest bool) {
	if !t.inFrame {
		panic(fmt.Sprintf("profiler: timeline %q: frameEnd without frameBegin", t.name))
	}
	if t.level != 1 {
		panic(fmt.Sprintf("profiler: timeline %q: unbalanced sections at frameEnd, level %d", t.name, t.level))
	}
	t.inFrame = false

	t.cpuFrame.add(t.cpuCurrent + t.clock())

	if resetRequest || (t.sectionsCountLast != 0 && t.sectionsCount != t.sectionsCountLast) {
		t.triggerReset()
	}
	t.sectionsCountLast = t.sectionsCount

	if t.resetDelay > 0 {
		t.resetDelay--
		t.resetStats(averagingCount)
	}

	// A changed window width settles one frame later, once every window has
	// been re-initialized with the new size.
	if t.averagingCountLast != averagingCount {
		t.resetStats(averagingCount)
		t.averagingCountLast = averagingCount
	}

	if t.resetDelay == 0 {
		t.collectResults()
	}
	t.count++
}

func (t *frameTimeline) resetStats(averagingCount int) {
	for i := range t.sections {
		t.sections[i].resetStats(averagingCount)
	}
	t.cpuFrame.init(averagingCount)
	t.gpuFrame.init(averagingCount)
}

// collectResults fetches the deferred timing results recorded frameDelay
// frames ago. GPU queries are deliberately lagged that far so the profiler
// never blocks on hardware; a provider reporting "not ready" is the normal
// steady state for the first frames of a timer's life.
func (t *frameTimeline) collectResults() {
	queryFrame := (t.count + 1) % t.frameDelay

	gpuSum := 0.0
	gpuAny := false
	// Tracks the shallowest level seen so far so nested children are not
	// double counted into the frame total.
	gpuLastLevel := int32(math.MaxInt32)

	for i := uint32(0); i < t.sectionsCount; i++ {
		s := &t.sections[i]
		if s.splitter {
			continue
		}
		if s.numTimes < t.frameDelay {
			// Pipeline not primed: the slot from frameDelay frames ago has
			// not been written under the current topology yet.
			continue
		}
		gpuTime := 0.0
		ok := true
		if s.provider != nil {
			gpuTime, ok = s.provider.FrameTime(FrameSectionID(i), queryFrame)
		}
		if !ok {
			continue
		}
		s.cpu.add(s.cpuTimes[queryFrame])
		if s.provider != nil {
			s.gpuTimes[queryFrame] = gpuTime
			s.gpu.add(gpuTime)
			if s.level <= gpuLastLevel {
				gpuSum += gpuTime
				gpuLastLevel = s.level
			}
			gpuAny = true
		}
	}
	if gpuAny {
		t.gpuFrame.add(gpuSum)
	}
}

// getTimerInfo builds the entry for section i, merging any later same-name,
// same-level, same-provider sections of this frame that a splitter does not
// fence off. Merged sections are marked accumulated and skipped by the
// snapshot loop. The merge sums AbsMin/AbsMax too: the entry reflects the
// total across repeated calls, not the extrema of the merged group.
func (t *frameTimeline) getTimerInfo(i uint32) TimerInfo {
	s := &t.sections[i]
	info := TimerInfo{
		NumAveraged: s.cpu.validCount,
		Level:       s.level,
		CPU:         s.cpu.stats(),
		GPU:         s.gpu.stats(),
	}
	for n := i + 1; n < t.sectionsCount; n++ {
		o := &t.sections[n]
		if t.hasSplitter && o.splitter && o.level <= s.level {
			break
		}
		if o.splitter || o.accumulated {
			continue
		}
		if o.name != s.name || o.level != s.level || o.provider != s.provider {
			continue
		}
		info.CPU.Last += o.cpu.valueLast
		info.CPU.Average += o.cpu.averaged()
		info.CPU.AbsMin += o.cpu.absMin
		info.CPU.AbsMax += o.cpu.absMax
		info.GPU.Last += o.gpu.valueLast
		info.GPU.Average += o.gpu.averaged()
		info.GPU.AbsMin += o.gpu.absMin
		info.GPU.AbsMax += o.gpu.absMax
		o.accumulated = true
		info.Accumulated = true
	}
	return info
}

// internalSnapshot rebuilds the frame snapshot, called at every frame end.
// Entry 0 is the synthetic "Frame" root carrying the frame's own aggregate
// CPU time and the summed outermost GPU time.
func (t *frameTimeline) internalSnapshot(name string, id TimelineID) Snapshot {
	snap := Snapshot{Name: name, ID: id}
	snap.append(TimerInfo{
		NumAveraged: t.cpuFrame.validCount,
		Level:       0,
		CPU:         t.cpuFrame.stats(),
		GPU:         t.gpuFrame.stats(),
	}, "Frame", "")

	for i := uint32(0); i < t.sectionsCount; i++ {
		s := &t.sections[i]
		if s.splitter || s.accumulated {
			continue
		}
		snap.append(t.getTimerInfo(i), s.name, s.apiName)
	}
	return snap
}
