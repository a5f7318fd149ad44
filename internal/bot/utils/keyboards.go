package utils

import (
	tele "gopkg.in/telebot.v3"
)

func InlineLinkKeyboard(url string) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}

	btnOpen := menu.URL("🔗 Open", url)

	menu.Inline(
		menu.Row(btnOpen),
	)

	return menu
}
