package pipeline

// State names one step of the run sequence. A run advances
// Idle → Locked → Validating → Building → Checksumming → Verifying →
// Rotating → Done, with Failed reachable from any non-terminal state.
type State string

const (
	StateIdle         State = "idle"
	StateLocked       State = "locked"
	StateValidating   State = "validating"
	StateBuilding     State = "building"
	StateChecksumming State = "checksumming"
	StateVerifying    State = "verifying"
	StateRotating     State = "rotating"
	StateDone         State = "done"
	StateFailed       State = "failed"
)
