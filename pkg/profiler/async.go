package profiler

import (
	"sync"
)

// asyncTimeline holds named one-shot sections begun and ended at arbitrary
// times from any thread. All access is serialized by its mutex; no method
// blocks beyond a slot scan.
type asyncTimeline struct {
	mu    sync.Mutex
	clock Clock

	averagingCount int

	sections      []asyncSection
	sectionsCount uint32
}

func (t *asyncTimeline) init(clock Clock, averagingCount int) {
	t.clock = clock
	t.averagingCount = averagingCount
}

// beginSection starts timing the named section. The slot is found by exact
// name match first, else the first free slot, else appended. Re-beginning a
// name whose section has not been ended overwrites the in-flight state:
// the same name always maps to the same slot, so this is a documented
// behavior, not a race.
func (t *asyncTimeline) beginSection(name string, provider GPUTimeProvider) AsyncSectionID {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot := -1
	for i := 0; i < int(t.sectionsCount); i++ {
		if t.sections[i].name == name {
			slot = i
			break
		}
		if slot < 0 && t.sections[i].name == "" {
			slot = i
		}
	}
	if slot < 0 {
		if int(t.sectionsCount) == len(t.sections) {
			next := make([]asyncSection, max(len(t.sections)*2, 16))
			copy(next, t.sections)
			t.sections = next
		}
		slot = int(t.sectionsCount)
		t.sectionsCount++
	}

	s := &t.sections[slot]
	if s.name != name {
		// Fresh identity for this slot, no historical carryover.
		s.clear()
		s.cpu.init(t.averagingCount)
		s.gpu.init(t.averagingCount)
	}
	s.name = name
	s.provider = provider
	s.apiName = ""
	if provider != nil {
		s.apiName = provider.APIName()
	}
	s.numTimes = 0
	s.gpuPending = false
	s.cpuTime = -t.clock()
	return AsyncSectionID(slot)
}

func (t *asyncTimeline) endSection(id AsyncSectionID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.sections[id]
	s.cpuTime += t.clock()
	s.cpu.add(s.cpuTime)
	s.numTimes = 1
	s.gpuPending = s.provider != nil
}

// removeTimer clears a named slot so the name can later be reused by a
// logically distinct series without inheriting old history.
func (t *asyncTimeline) removeTimer(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < int(t.sectionsCount); i++ {
		if t.sections[i].name != name {
			continue
		}
		t.sections[i].clear()
		if uint32(i) == t.sectionsCount-1 {
			t.sectionsCount--
		}
		return
	}
}

func (t *asyncTimeline) setAveragingCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.averagingCount = count
}

// timerInfo builds the entry for one slot, lazily folding a ready GPU
// result into the gpu window exactly once. Returns false while the section
// is in flight or its GPU result is still pending.
func (t *asyncTimeline) timerInfo(id AsyncSectionID) (TimerInfo, bool) {
	s := &t.sections[id]
	if s.name == "" || s.numTimes == 0 {
		return TimerInfo{}, false
	}
	if s.gpuPending {
		micros, ok := s.provider.AsyncTime(id)
		if !ok {
			return TimerInfo{}, false
		}
		s.gpu.add(micros)
		s.gpuPending = false
	}
	return TimerInfo{
		NumAveraged: s.cpu.validCount,
		Async:       true,
		Level:       LevelSingleShot,
		CPU:         s.cpu.stats(),
		GPU:         s.gpu.stats(),
	}, true
}

// getTimerInfo looks a timer up by name.
func (t *asyncTimeline) getTimerInfo(name string) (TimerInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < int(t.sectionsCount); i++ {
		if t.sections[i].name == name {
			return t.timerInfo(AsyncSectionID(i))
		}
	}
	return TimerInfo{}, false
}

// snapshot collects all timers with results. Entry 0 is a synthetic
// "Async" root; if no child was added the snapshot comes back empty so a
// consumer treats both timeline kinds uniformly.
func (t *asyncTimeline) snapshot(name string, id TimelineID) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{Name: name, ID: id}
	snap.append(TimerInfo{Async: true, Level: 0}, "Async", "")

	for i := 0; i < int(t.sectionsCount); i++ {
		info, ok := t.timerInfo(AsyncSectionID(i))
		if !ok {
			continue
		}
		snap.append(info, t.sections[i].name, t.sections[i].apiName)
	}
	if len(snap.TimerInfos) == 1 {
		return Snapshot{Name: name, ID: id}
	}
	return snap
}
