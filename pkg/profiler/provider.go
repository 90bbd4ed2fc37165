package profiler

// MaxFrameDelay bounds the number of in-flight frames a GPU may lag behind
// the CPU. Per-subframe raw slots and provider query indices are sized to
// this value.
const MaxFrameDelay = 4

// FrameSectionID is a stable index-based handle to a frame section slot.
// Section storage may grow and relocate, invalidating pointers but never
// handles. IDs are assigned sequentially within a frame and are not stable
// across frames if the calling code path changes.
type FrameSectionID uint32

// AsyncSectionID is a stable index-based handle to an async section slot.
type AsyncSectionID uint32

// GPUTimeProvider supplies raw elapsed GPU times for timer queries that the
// calling application submitted to its graphics API. The provider is a
// borrowed collaborator: it is not owned by the profiler and must be kept
// alive for as long as any section referencing it is in use.
//
// Both query methods are contractually non-blocking: they report whether a
// result is ready and must never stall waiting for hardware.
type GPUTimeProvider interface {
	// APIName tags snapshot entries with the graphics API the provider
	// represents, e.g. "VK".
	APIName() string

	// FrameTime returns the elapsed time in microseconds for the given
	// section slot and subframe, if the pipelined query result is ready.
	// It is called with identifiers up to the frame delay stale.
	FrameTime(id FrameSectionID, subFrame uint32) (micros float64, ok bool)

	// AsyncTime returns the elapsed time in microseconds for a single-shot
	// async query, with no pipelining delay.
	AsyncTime(id AsyncSectionID) (micros float64, ok bool)
}

// FrameQueryBaseIndex maps a frame section slot and subframe onto a flat
// query-pool index. Each query occupies two consecutive entries, begin and
// end timestamp.
func FrameQueryBaseIndex(id FrameSectionID, subFrame uint32) uint32 {
	return 2 * (uint32(id)*MaxFrameDelay + subFrame)
}

// AsyncQueryBaseIndex maps an async section slot onto a flat query-pool
// index, two consecutive entries per query.
func AsyncQueryBaseIndex(id AsyncSectionID) uint32 {
	return 2 * uint32(id)
}
