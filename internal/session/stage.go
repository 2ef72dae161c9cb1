package session

// Stage is a coarse progress label shown while a session runs.
type Stage int

const (
	// Generation stages.
	StageConnecting Stage = iota // Waiting for the first event
	StageGenerating              // Task identity known, question empty
	StageFinalizing              // Question text streaming in

	// Submission stages.
	StageSubmitting // Request not yet accepted
	StageAnalyzing  // Answer accepted, waiting for the verdict
	StageProcessing // Next task streaming in

	StageReady  // Terminal: result available
	StageFailed // Terminal: error event or transport failure
)

var stageNames = [...]string{
	StageConnecting: "connecting",
	StageGenerating: "generating",
	StageFinalizing: "finalizing",
	StageSubmitting: "submitting",
	StageAnalyzing:  "analyzing",
	StageProcessing: "processing",
	StageReady:      "ready",
	StageFailed:     "failed",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Progress returns the completion percentage the stage stands for.
func (s Stage) Progress() int {
	switch s {
	case StageConnecting:
		return 30
	case StageGenerating:
		return 60
	case StageFinalizing:
		return 90
	case StageSubmitting:
		return 25
	case StageAnalyzing:
		return 60
	case StageProcessing:
		return 85
	case StageReady:
		return 100
	}
	return 0
}

// Message is the status line shown for the stage.
func (s Stage) Message() string {
	switch s {
	case StageConnecting:
		return "Connecting to the simulator..."
	case StageGenerating:
		return "Generating the question..."
	case StageFinalizing:
		return "Almost ready..."
	case StageSubmitting:
		return "Sending your answer..."
	case StageAnalyzing:
		return "Analyzing your answer..."
	case StageProcessing:
		return "Preparing the next task..."
	case StageReady:
		return "Ready"
	case StageFailed:
		return "Something went wrong"
	}
	return ""
}

// Step labels generation stages as "Step n of 3"; other stages return "".
func (s Stage) Step() string {
	switch s {
	case StageConnecting:
		return "Step 1 of 3"
	case StageGenerating:
		return "Step 2 of 3"
	case StageFinalizing:
		return "Step 3 of 3"
	}
	return ""
}

// Terminal reports whether the stage ends a session.
func (s Stage) Terminal() bool {
	return s == StageReady || s == StageFailed
}
