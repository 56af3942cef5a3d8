package estimator

// #region level
// Level orders statuses by severity for presentation layers.
type Level int

const (
	LevelNoFace Level = iota
	LevelAwake
	LevelWarning
	LevelSleep
	LevelNumbness
)

func (l Level) String() string {
	switch l {
	case LevelAwake:
		return "awake"
	case LevelWarning:
		return "warning"
	case LevelSleep:
		return "sleep"
	case LevelNumbness:
		return "numbness"
	default:
		return "no_face"
	}
}

// #endregion level

// #region status
// Status is the driver-facing summary of a state.
type Status struct {
	Level Level
	Text  string
	Color string
}

const (
	colorNoFace   = "#000000"
	colorNumbness = "#FF0000"
	colorSleep    = "#FF6402"
	colorWarning  = "#D9B51D"
	colorAwake    = "#039903"
)

// StatusOf maps a state to its status. The first matching rule wins:
// face size, face presence, numbness, sleep, long duration or short interval, awake.
func StatusOf(s State) Status {
	switch {
	case s.FaceSize == FaceSizeTooClose:
		return Status{Level: LevelNoFace, Text: "move away from the camera", Color: colorNoFace}
	case s.FaceSize == FaceSizeTooFar:
		return Status{Level: LevelNoFace, Text: "approach the camera", Color: colorNoFace}
	case !s.FaceDetected:
		return Status{Level: LevelNoFace, Text: "Face not detected", Color: colorNoFace}
	case s.NumbnessActive():
		return Status{Level: LevelNumbness, Text: "Numbness", Color: colorNumbness}
	case s.SleepActive:
		return Status{Level: LevelSleep, Text: "Sleep", Color: colorSleep}
	case s.LongBlinkDuration:
		return Status{Level: LevelWarning, Text: "Long blink duration", Color: colorWarning}
	case s.ShortBlinkInterval:
		return Status{Level: LevelWarning, Text: "Short blink interval", Color: colorWarning}
	default:
		return Status{Level: LevelAwake, Text: "Awake", Color: colorAwake}
	}
}

// #endregion status
