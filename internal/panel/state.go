package panel

// diskState names the steps of the disk opener loop. Every iteration of
// the loop maps the current state to the next one; Done and Failed end it.
type diskState int

const (
	stateProbing diskState = iota
	stateListing
	stateShortening
	stateTryingRescuePath
	stateTryingFixedDrive
	stateDriveNotReady
	stateDone
	stateFailed
)

func (s diskState) String() string {
	switch s {
	case stateProbing:
		return "probing"
	case stateListing:
		return "listing"
	case stateShortening:
		return "shortening"
	case stateTryingRescuePath:
		return "trying-rescue-path"
	case stateTryingFixedDrive:
		return "trying-fixed-drive"
	case stateDriveNotReady:
		return "drive-not-ready"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

func (s diskState) terminal() bool { return s == stateDone || s == stateFailed }
