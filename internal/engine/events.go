package engine

// Event is one progress message flowing from the engine to whatever renders
// it. Events are delivered in emission order over the engine's channel,
// consumed once, and not persisted.
type Event interface {
	progressEvent()
}

// DiscoveryStatus is a human-readable status line from the discovery and
// dispatch phases.
type DiscoveryStatus struct {
	Message string
}

// OverallProgress reports the monotonically increasing count of finished
// files against the batch total.
type OverallProgress struct {
	Done  int
	Total int
}

// SlotProgress reports a pipeline milestone for the file currently labeled
// with a worker slot. Percent is one of 0, 30, 70, 100.
type SlotProgress struct {
	Slot    int
	File    string
	Percent int
}

// SlotIdle marks a worker slot as free after its file finished or failed.
type SlotIdle struct {
	Slot int
}

// FileError reports one failed file. It never aborts the batch.
type FileError struct {
	File   string
	Reason string
}

// RunComplete is the terminal event of a run that was never cancelled.
type RunComplete struct {
	Processed int
}

// RunCancelled is the terminal event of a cancelled run.
type RunCancelled struct {
	Processed int
}

func (DiscoveryStatus) progressEvent() {}
func (OverallProgress) progressEvent() {}
func (SlotProgress) progressEvent()    {}
func (SlotIdle) progressEvent()        {}
func (FileError) progressEvent()       {}
func (RunComplete) progressEvent()     {}
func (RunCancelled) progressEvent()    {}
