package react

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StepRecord is one completed step of the control loop: the thought
// behind it, the tool invoked, and what came back.
type StepRecord struct {
	Thought     string
	Tool        string
	Args        json.RawMessage
	Observation string
	IsError     bool
}

// Trajectory is the ordered history of a loop invocation. It is kept as
// records and rendered to text only at formatting boundaries, so tests
// can inspect steps and rendering cost stays linear.
type Trajectory []StepRecord

// Render formats the trajectory as human-auditable text, one block per
// step. The text is fed back into the step predictor's prompt and
// attached to the final prediction; nothing reparses it.
func (t Trajectory) Render() string {
	var b strings.Builder
	for i, rec := range t {
		label := "Observation"
		if rec.IsError {
			label = "Observation (error)"
		}
		fmt.Fprintf(&b, "\nStep %d\n", i+1)
		fmt.Fprintf(&b, "Thought: %s\n", rec.Thought)
		fmt.Fprintf(&b, "Tool: %s\n", rec.Tool)
		fmt.Fprintf(&b, "Args: %s\n", string(rec.Args))
		fmt.Fprintf(&b, "%s: %s\n", label, rec.Observation)
	}
	return b.String()
}
