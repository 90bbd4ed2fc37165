package profiler

import (
	"sync"

	"github.com/gpukit/gpuprof/pkg/xlog"
)

// fakeClock is a manually advanced time source in microseconds.
type fakeClock struct {
	mu  sync.Mutex
	now float64
}

func (c *fakeClock) clock() Clock {
	return func() float64 {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.now
	}
}

func (c *fakeClock) advance(micros float64) {
	c.mu.Lock()
	c.now += micros
	c.mu.Unlock()
}

// scriptProvider is a scripted GPU time provider. Results become ready
// after readyAfter calls; values come from the frame/async functions.
type scriptProvider struct {
	mu         sync.Mutex
	api        string
	readyAfter int
	frameCalls int
	asyncCalls int
	frame      func(id FrameSectionID, subFrame uint32) float64
	async      func(id AsyncSectionID) float64
}

func (p *scriptProvider) APIName() string { return p.api }

func (p *scriptProvider) FrameTime(id FrameSectionID, subFrame uint32) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frameCalls++
	if p.frameCalls <= p.readyAfter {
		return 0, false
	}
	return p.frame(id, subFrame), true
}

func (p *scriptProvider) AsyncTime(id AsyncSectionID) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asyncCalls++
	if p.asyncCalls <= p.readyAfter {
		return 0, false
	}
	return p.async(id), true
}

func newTestTimeline(info TimelineCreateInfo, clock Clock) *ProfilerTimeline {
	m := NewManager(xlog.NewNop(), WithClock(clock))
	return m.CreateTimeline(info)
}

// entryByName finds a snapshot entry by timer name.
func entryByName(s Snapshot, name string) (TimerInfo, bool) {
	for i, n := range s.TimerNames {
		if n == name {
			return s.TimerInfos[i], true
		}
	}
	return TimerInfo{}, false
}
