package flow

import (
	"fmt"
	"strings"
)

const fallbackName = "друг"

const greetingText = "Что умеет этот бот?\n" +
	"Приветствую 👋 Я чат-менеджер канала @название_канала\n\n" +
	"Нажмите НАЧАТЬ и мы ответим на ваши вопросы в ближайшее время 🙌"

const handOffText = "Зову менеджера, он подключиться к диалогу в ближайшее время"

const offerCaption = "С платежом 55 190 руб на весь срок у нас можно приобрести такой готовый дом. " +
	"Вам подходит такой вариант или хотели бы площадь побольше?"

func interestText(firstName string) string {
	return fmt.Sprintf(
		"Здравствуйте, %s!\nСпасибо, что вы с нами ❤️\n\nРассказать вам о наших готовых домах?",
		displayName(firstName),
	)
}

func followupText(firstName string) string {
	return fmt.Sprintf(
		"%s, может быть у вас уже появились какие-то вопросы? Например, про локацию или условия покупки?",
		displayName(firstName),
	)
}

func displayName(firstName string) string {
	if strings.TrimSpace(firstName) == "" {
		return fallbackName
	}
	return firstName
}
