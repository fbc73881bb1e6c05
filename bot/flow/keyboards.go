package flow

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/telegram/keyboard"
)

// Button labels shown to the customer. Matching is exact.
const (
	ButtonStart          = "Начать"
	ButtonYes            = "ДА"
	ButtonNo             = "НЕТ"
	ButtonAskLocation    = "Узнать локацию"
	ButtonAskMortgage    = "Узнать про ипотеку"
	ButtonHouseFits      = "Подходит"
	ButtonHouseSeeOthers = "А какие еще есть дома?"
)

func startKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{ButtonStart})
}

func yesNoKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{ButtonYes, ButtonNo})
}

func followupKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{ButtonAskLocation, ButtonAskMortgage})
}

func houseChoiceKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{ButtonHouseFits, ButtonHouseSeeOthers})
}
