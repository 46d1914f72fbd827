package dialogue

import (
	"context"
	"strings"

	"github.com/m3rciful/sheetbot/internal/transfer"
)

// stepExport is the transition function of the export flow:
// AwaitingSpreadsheetID -> AwaitingSheetName -> AwaitingRange -> AwaitingOutputName -> Done.
func (c *Controller) stepExport(ctx context.Context, s Session, text string) (Session, []Reply, Outcome) {
	switch s.State {
	case StateAwaitingSpreadsheetID:
		return c.acceptSpreadsheetID(ctx, s, text)

	case StateAwaitingSheetName:
		if !s.hasSheet(text) {
			return s, []Reply{{Text: msgBadSheetName, Choices: s.AvailableSheets, Cancelable: true}}, OutcomeValidationFailed
		}
		s.SelectedSheet = text
		s.State = StateAwaitingRange
		return s, []Reply{{Text: msgAskRange, Cancelable: true}}, OutcomeAdvanced

	case StateAwaitingRange:
		expr := strings.TrimSpace(text)
		if expr == "" {
			return s, []Reply{{Text: msgAskRange, Cancelable: true}}, OutcomeValidationFailed
		}
		s.RangeExpression = expr
		s.State = StateAwaitingOutputName
		return s, []Reply{{Text: msgAskOutputName, Cancelable: true}}, OutcomeAdvanced

	case StateAwaitingOutputName:
		name := strings.TrimSpace(text)
		if name == "" {
			return s, []Reply{{Text: msgAskOutputName, Cancelable: true}}, OutcomeValidationFailed
		}
		s.OutputName = name
		s.State = StateDone
		replies, outcome := c.runExport(ctx, s)
		return s, replies, outcome
	}
	s.State = StateFailed
	return s, []Reply{{Text: "Unexpected dialogue state.", Final: true}}, OutcomeRemoteFailure
}

// runExport executes the transfer. The flow ends in Done whatever happens here.
func (c *Controller) runExport(ctx context.Context, s Session) ([]Reply, Outcome) {
	res, err := c.transfers.Export(ctx, transfer.ExportRequest{
		SpreadsheetID: s.SpreadsheetID,
		Sheet:         s.SelectedSheet,
		Range:         s.RangeExpression,
		OutputName:    s.OutputName,
	})
	if err != nil {
		msg, outcome := remoteFailure(err)
		return []Reply{{Text: msg, Final: true}}, outcome
	}
	if res.NoData {
		return []Reply{{Text: msgNoData, Final: true}}, OutcomeEmptyResult
	}

	outcome := OutcomeCompleted
	if res.CompactErr != nil {
		outcome = OutcomeRemoteFailure
	}
	return []Reply{
		{Document: res.File},
		{Text: msgExported(res), Final: true},
	}, outcome
}
