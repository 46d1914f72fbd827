package bot

import (
	"errors"

	tghelpers "github.com/m3rciful/sheetbot/core/telegram/helpers"
	"github.com/m3rciful/sheetbot/core/telegram/keyboard"
	"github.com/m3rciful/sheetbot/internal/dialogue"

	tele "gopkg.in/telebot.v4"
)

const choicesPerRow = 2

// deliver sends replies in order. A failed send does not stop the rest.
func deliver(c tele.Context, replies []dialogue.Reply) error {
	var errs []error
	for _, r := range replies {
		if r.Document != nil {
			d := r.Document
			if err := tghelpers.SendDocument(c, d.Name, d.MIME, d.Data); err != nil {
				errs = append(errs, err)
			}
		}
		if r.Text == "" {
			continue
		}
		var err error
		if rm := replyMarkup(r); rm != nil {
			err = tghelpers.SendText(c, r.Text, &tele.SendOptions{ReplyMarkup: rm})
		} else {
			err = tghelpers.SendText(c, r.Text)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// replyMarkup picks the keyboard for r: choices as a one-time reply keyboard,
// an inline cancel button for other open prompts, and keyboard removal on
// final replies.
func replyMarkup(r dialogue.Reply) *tele.ReplyMarkup {
	switch {
	case len(r.Choices) > 0:
		return keyboard.ChoiceKeyboard(r.Choices, choicesPerRow)
	case r.Final:
		return keyboard.RemoveKeyboard()
	case r.Cancelable:
		return keyboard.SingleCancelMarkup(CancelCallback)
	}
	return nil
}
