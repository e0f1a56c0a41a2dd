package runner

import (
	"encoding/json"
	"time"
)

// Action is the action field of a test2json event.
type Action string

const (
	ActionStart  Action = "start"
	ActionRun    Action = "run"
	ActionPause  Action = "pause"
	ActionCont   Action = "cont"
	ActionPass   Action = "pass"
	ActionFail   Action = "fail"
	ActionSkip   Action = "skip"
	ActionOutput Action = "output"
)

// TestEvent mirrors the JSON emitted by 'go test -json'. One event per
// line; lines that are not JSON (raw build output) are skipped.
type TestEvent struct {
	Time    time.Time `json:"Time"`
	Action  Action    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

func parseTestEvent(line []byte) (TestEvent, error) {
	var event TestEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return event, err
	}
	return event, nil
}

// isTerminal reports whether the action ends a test.
func (a Action) isTerminal() bool {
	return a == ActionPass || a == ActionFail || a == ActionSkip
}
