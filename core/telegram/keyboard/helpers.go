// Package keyboard builds the reply and inline markups the bot sends.
package keyboard

import tele "gopkg.in/telebot.v4"

const cancelText = "❌ Cancel"

// RemoveKeyboard returns a markup that hides the reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons builds a resized reply keyboard from rows of labels.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, labels := range rows {
		btns := make([]tele.Btn, len(labels))
		for i, l := range labels {
			btns[i] = markup.Text(l)
		}
		keyboard = append(keyboard, markup.Row(btns...))
	}
	markup.Reply(keyboard...)
	return markup
}

// ChoiceKeyboard lays choices out perRow to a row on a one-time reply
// keyboard. It returns nil without choices.
func ChoiceKeyboard(choices []string, perRow int) *tele.ReplyMarkup {
	rows := Chunk(choices, perRow)
	if rows == nil {
		return nil
	}
	markup := ReplyButtons(rows...)
	markup.OneTimeKeyboard = true
	return markup
}

// Chunk splits items into rows of at most n; n below one means one per row.
func Chunk(items []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	var rows [][]string
	for len(items) > 0 {
		end := min(n, len(items))
		rows = append(rows, items[:end:end])
		items = items[end:]
	}
	return rows
}

// SingleCancelMarkup returns an inline keyboard with one cancel button
// whose unique is action.
func SingleCancelMarkup(action string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	btn := markup.Data(cancelText, action, "cancel")
	markup.InlineKeyboard = [][]tele.InlineButton{{*btn.Inline()}}
	return markup
}
