package profiler

// MaxWindowSize is the ring buffer capacity backing every rolling window
// and the upper bound for any averaging window. The ring always spans the
// maximum regardless of the configured window, so the eviction slot
// arithmetic stays valid for any width up to the bound.
const MaxWindowSize = 128

// rollingWindow keeps the last MaxWindowSize raw samples plus an
// incrementally maintained sum over the most recent cycleCount of them.
// cycleCount == 0 means unbounded averaging over the whole lifetime.
type rollingWindow struct {
	cycleIndex int
	cycleCount int
	validCount int
	valueTotal float64
	valueLast  float64
	absMin     float64
	absMax     float64
	sampled    bool
	times      [MaxWindowSize]float64
}

func (w *rollingWindow) init(windowSize int) {
	*w = rollingWindow{cycleCount: min(windowSize, MaxWindowSize)}
}

func (w *rollingWindow) add(value float64) {
	w.valueLast = value
	if !w.sampled {
		w.absMin = value
		w.absMax = value
		w.sampled = true
	} else {
		w.absMin = min(w.absMin, value)
		w.absMax = max(w.absMax, value)
	}
	if w.cycleCount > 0 {
		// Drop the sample leaving the window. Slots start zeroed, so this
		// is a no-op until the window has filled once.
		evict := (w.cycleIndex - w.cycleCount + MaxWindowSize) % MaxWindowSize
		w.valueTotal -= w.times[evict]
		if w.validCount < w.cycleCount {
			w.validCount++
		}
	} else {
		w.validCount++
	}
	w.valueTotal += value
	w.times[w.cycleIndex] = value
	w.cycleIndex = (w.cycleIndex + 1) % MaxWindowSize
}

func (w *rollingWindow) averaged() float64 {
	if w.validCount == 0 {
		return 0
	}
	return w.valueTotal / float64(w.validCount)
}

func (w *rollingWindow) stats() TimerStats {
	return TimerStats{
		Last:    w.valueLast,
		Average: w.averaged(),
		AbsMin:  w.absMin,
		AbsMax:  w.absMax,
		Times:   w.times,
		Index:   w.cycleIndex,
	}
}
