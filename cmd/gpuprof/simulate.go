package main

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gpukit/gpuprof/pkg/profiler"
)

// simProvider stands in for a graphics-API timer query pool. Frame results
// honor the pipelining contract by becoming ready only after the timeline's
// frame delay worth of queries; values are synthetic but stable per slot.
type simProvider struct {
	mu         sync.Mutex
	rng        *rand.Rand
	frameCalls map[profiler.FrameSectionID]uint32
	delay      uint32
}

func newSimProvider(delay uint32, seed int64) *simProvider {
	return &simProvider{
		rng:        rand.New(rand.NewSource(seed)),
		frameCalls: make(map[profiler.FrameSectionID]uint32),
		delay:      delay,
	}
}

func (p *simProvider) APIName() string { return "SIM" }

func (p *simProvider) FrameTime(id profiler.FrameSectionID, subFrame uint32) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCalls[id]++
	if p.frameCalls[id] <= p.delay {
		return 0, false
	}
	base := 200 + 150*float64(id)
	return base + p.rng.Float64()*100, true
}

func (p *simProvider) AsyncTime(id profiler.AsyncSectionID) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return 1000 + p.rng.Float64()*500, true
}

// runFrameLoop drives one simulated frame per tick until the context ends.
func runFrameLoop(ctx context.Context, tl *profiler.ProfilerTimeline, provider *simProvider, frameRate int, frames *atomic.Int64) {
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	opened := false
	for {
		select {
		case <-ctx.Done():
			if opened {
				tl.FrameEnd()
			}
			return
		case <-ticker.C:
		}

		tl.FrameAdvance()
		opened = true

		draw := tl.TimedFrameSection("draw", provider)
		shadow := tl.TimedFrameSection("shadow", provider)
		time.Sleep(500 * time.Microsecond)
		shadow()
		for i := 0; i < 3; i++ {
			blur := tl.TimedFrameSection("blur", provider)
			time.Sleep(100 * time.Microsecond)
			blur()
		}
		draw()

		post := tl.TimedFrameSection("post", provider)
		time.Sleep(200 * time.Microsecond)
		post()

		frames.Add(1)
	}
}

// runAsyncWorker begins and ends one named async section in a loop,
// emulating background uploads.
func runAsyncWorker(ctx context.Context, tl *profiler.ProfilerTimeline, provider *simProvider, name string) {
	for {
		done := tl.TimedAsyncSection(name, provider)
		select {
		case <-ctx.Done():
			done()
			return
		case <-time.After(25 * time.Millisecond):
		}
		done()
	}
}
