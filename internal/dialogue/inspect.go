package dialogue

import "context"

// stepInspect is the transition function of the inspect flow:
// AwaitingSpreadsheetID -> AwaitingSheetName -> Done.
func (c *Controller) stepInspect(ctx context.Context, s Session, text string) (Session, []Reply, Outcome) {
	switch s.State {
	case StateAwaitingSpreadsheetID:
		return c.acceptSpreadsheetID(ctx, s, text)

	case StateAwaitingSheetName:
		if s.hasSheet(text) {
			s.SelectedSheet = text
			st, err := c.transfers.Inspect(ctx, s.SpreadsheetID, text)
			if err != nil {
				msg, outcome := remoteFailure(err)
				s.State = StateFailed
				return s, []Reply{{Text: msg, Final: true}}, outcome
			}
			s.State = StateDone
			return s, []Reply{{Text: msgSheetStats(st), Final: true}}, OutcomeCompleted
		}
		if text == AllSheets {
			stats, err := c.transfers.InspectAll(ctx, s.SpreadsheetID)
			if err != nil {
				msg, outcome := remoteFailure(err)
				s.State = StateFailed
				return s, []Reply{{Text: msg, Final: true}}, outcome
			}
			s.State = StateDone
			return s, []Reply{{Text: msgAllStats(stats), Final: true}}, OutcomeCompleted
		}
		return s, []Reply{{Text: msgBadSheetName, Choices: sheetPrompt(s).Choices, Cancelable: true}}, OutcomeValidationFailed
	}
	s.State = StateFailed
	return s, []Reply{{Text: "Unexpected dialogue state.", Final: true}}, OutcomeRemoteFailure
}
