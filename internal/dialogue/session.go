package dialogue

import "github.com/m3rciful/sheetbot/internal/transfer"

// Flow selects which state machine drives a session.
type Flow int

const (
	// FlowExport copies a range into a file and compacts the sheet.
	FlowExport Flow = iota + 1
	// FlowInspect reports row counts and occupied ranges.
	FlowInspect
)

func (f Flow) String() string {
	switch f {
	case FlowExport:
		return "export"
	case FlowInspect:
		return "inspect"
	}
	return "unknown"
}

// State is one step of a flow. Terminal states are never stored.
type State int

const (
	StateAwaitingSpreadsheetID State = iota + 1
	StateAwaitingSheetName
	StateAwaitingRange
	StateAwaitingOutputName
	StateDone
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingSpreadsheetID:
		return "awaiting_spreadsheet_id"
	case StateAwaitingSheetName:
		return "awaiting_sheet_name"
	case StateAwaitingRange:
		return "awaiting_range"
	case StateAwaitingOutputName:
		return "awaiting_output_name"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the dialogue is over in this state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

// Session is the per-user dialogue data. It is passed by value through the
// transition functions and dropped on any terminal state.
type Session struct {
	Identity        int64
	Flow            Flow
	State           State
	SpreadsheetID   string
	AvailableSheets []string
	SelectedSheet   string
	RangeExpression string
	OutputName      string
}

func (s Session) hasSheet(name string) bool {
	for _, n := range s.AvailableSheets {
		if n == name {
			return true
		}
	}
	return false
}

// Reply is one outbound message.
type Reply struct {
	Text     string
	Document *transfer.File
	// Choices are offered as a reply keyboard.
	Choices []string
	// Cancelable prompts carry an inline cancel button when there are no Choices.
	Cancelable bool
	// Final replies close the dialogue and remove any keyboard.
	Final bool
}

// Outcome classifies what a single step produced, mostly for logs.
type Outcome string

const (
	OutcomeAdvanced         Outcome = "advanced"
	OutcomeCompleted        Outcome = "completed"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeUnauthorized     Outcome = "unauthorized"
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomeRemoteNotFound   Outcome = "not_found"
	OutcomeRemoteTimeout    Outcome = "timeout"
	OutcomeRemoteFailure    Outcome = "fail"
	OutcomeEmptyResult      Outcome = "no_data"
)
