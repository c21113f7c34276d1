package deploy

// State is a step of the deploy sequence. States only move forward; Failed
// can follow any of them.
type State int

const (
	StateIdle State = iota
	StateConnected
	StateStagingCleared
	StateStagingCreated
	StateManifestBuilt
	StateUploaded
	StateBackupNamed
	StateLiveBackedUp
	StateStagePromoted
	StateDisconnected
	StateFailed
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateConnected:      "connected",
	StateStagingCleared: "staging-cleared",
	StateStagingCreated: "staging-created",
	StateManifestBuilt:  "manifest-built",
	StateUploaded:       "uploaded",
	StateBackupNamed:    "backup-named",
	StateLiveBackedUp:   "live-backed-up",
	StateStagePromoted:  "stage-promoted",
	StateDisconnected:   "disconnected",
	StateFailed:         "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
