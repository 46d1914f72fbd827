package dialogue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/sheetbot/internal/sheets"
	"github.com/m3rciful/sheetbot/internal/transfer"
)

// AllSheets requests the report for every sheet in the inspect flow.
const AllSheets = "*"

const (
	msgAccessDenied     = "Access denied. This bot is restricted to its owner."
	msgWelcome          = "Welcome! Use /copy to export a range into a file or /info to see how much data each sheet holds."
	msgAskSpreadsheetID = "Send the spreadsheet ID."
	msgBadSpreadsheetID = "That spreadsheet ID is not valid. Please try again."
	msgBadSheetName     = "Unknown sheet name. Please try again."
	msgAskRange         = "Send the range to copy (for example A1:A10)."
	msgAskOutputName    = "Send the output file name (.xlsx)."
	msgNoData           = "No data found in the given range."
	msgNoSheetData      = "No data found in this sheet."
	msgCancelled        = "Operation cancelled."
	msgNothingToCancel  = "There is no operation to cancel."
	msgNoSheets         = "The spreadsheet has no sheets."
)

func msgRestarted(f Flow) string {
	return fmt.Sprintf("The previous %s operation was discarded.", f)
}

func msgAskSheet(names []string, flow Flow) string {
	var b strings.Builder
	b.WriteString("Available sheets: ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\nSend the name of the sheet")
	if flow == FlowInspect {
		b.WriteString(" to inspect, or ")
		b.WriteString(AllSheets)
		b.WriteString(" for all sheets")
	}
	b.WriteByte('.')
	return b.String()
}

func msgExported(res *transfer.ExportResult) string {
	if res.CompactErr == nil {
		c := res.Compaction
		return fmt.Sprintf("Data copied and removed from the sheet. %d of %d rows still hold data.", c.Remaining, c.TotalRows)
	}
	switch {
	case errors.Is(res.CompactErr, sheets.ErrInvalidRange):
		return fmt.Sprintf("The file was sent, but %q has no row numbers, so the sheet was left unchanged.", res.Request.Range)
	case errors.Is(res.CompactErr, transfer.ErrPartialWrite):
		msg := "The file was sent, but rewriting the sheet failed and it may be partially modified."
		if res.Compaction != nil && res.Compaction.SnapshotID != "" {
			msg += " The previous contents were saved as snapshot " + res.Compaction.SnapshotID + " (see /snapshots)."
		}
		return msg + "\nError: " + res.CompactErr.Error()
	default:
		return "The file was sent, but the sheet could not be cleaned up and was left unchanged.\nError: " + res.CompactErr.Error()
	}
}

func msgSheetStats(st transfer.SheetStats) string {
	if st.NonEmpty == 0 {
		return msgNoSheetData
	}
	return fmt.Sprintf("Rows with data: %d\nData range: %s", st.NonEmpty, st.RangeLabel())
}

func msgAllStats(stats []transfer.SheetStats) string {
	var b strings.Builder
	b.WriteString("Sheets and row counts:")
	for _, st := range stats {
		fmt.Fprintf(&b, "\nSheet: %s, rows: %d", st.Name, st.NonEmpty)
	}
	return b.String()
}

// remoteFailure maps a collaborator error to a user message and outcome.
func remoteFailure(err error) (string, Outcome) {
	switch sheets.KindOf(err) {
	case sheets.KindNotFound:
		return "Spreadsheet or sheet not found. Check the ID and that the sheet is shared with the bot's service account.", OutcomeRemoteNotFound
	case sheets.KindTimeout:
		return "The spreadsheet service did not answer in time. Please try again later.", OutcomeRemoteTimeout
	}
	return "Something went wrong: " + err.Error(), OutcomeRemoteFailure
}
