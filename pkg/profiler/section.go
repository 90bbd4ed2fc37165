package profiler

// frameSection is one named timed region opened within a frame. Slots live
// in a growable array owned by the frame timeline and are addressed by
// FrameSectionID; the same logical section typically lands in the same slot
// every frame as long as the code path is static.
type frameSection struct {
	name     string
	level    int32
	provider GPUTimeProvider
	apiName  string

	// splitter marks a zero-duration fence inserted by
	// FrameAccumulationSplit rather than a real section.
	splitter bool

	// accumulated is transient, recomputed on every snapshot build: the
	// section was merged into an earlier same-name entry this frame.
	accumulated bool

	// used distinguishes a slot that has recorded at least once from a
	// freshly grown one, so first use does not count as a topology change.
	used bool

	// numTimes counts frames recorded since the last statistics reset;
	// pipelined results are collected only once it reaches the frame delay.
	numTimes uint32

	subFrame uint32
	cpuTimes [MaxFrameDelay]float64
	gpuTimes [MaxFrameDelay]float64

	cpu rollingWindow
	gpu rollingWindow
}

func (s *frameSection) resetStats(averagingCount int) {
	s.cpu.init(averagingCount)
	s.gpu.init(averagingCount)
	s.numTimes = 0
}

// asyncSection is one named single-shot timed region with no frame
// affiliation. At most one live section exists per name.
type asyncSection struct {
	name     string
	provider GPUTimeProvider
	apiName  string

	// numTimes is 1 once the section has been ended at least once since it
	// was (re)begun, 0 while in flight.
	numTimes uint32

	// gpuPending is set at end and cleared once the provider's result has
	// been folded into the gpu window, so repeated snapshot reads do not
	// count one result twice.
	gpuPending bool

	// cpuTime accumulates -begin + end, yielding the elapsed time.
	cpuTime float64

	cpu rollingWindow
	gpu rollingWindow
}

func (s *asyncSection) clear() {
	*s = asyncSection{}
}
