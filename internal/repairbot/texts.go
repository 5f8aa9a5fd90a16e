package repairbot

import (
	"telegram-storefront-bot/internal/nav"
)

const (
	textMain       = "Привет! 👋\nВыберите интересующий раздел:"
	textCurrency   = "Выберите валюту:"
	textPriceTitle = "📌 Прайс-лист:"
	textPriceNote  = "(Pro/Max версии считаются отдельно)"
	textTrust      = "🔐 Доверие / Гарантия\n\n✅ У нас есть удостоверение (можем подтвердить).\n✅ Работаем честно, с гарантией.\n\nЕсли хотите убедиться, напишите в личку:\n👉 %s"
	textContacts   = "📞 Контакты\n\n• Оператор: %s\n• Время работы: %s"

	askModel    = "📱 Укажите модель телефона (пример: iPhone 13):"
	askContact  = "📲 Укажите контакт (номер или @username):"
	askNote     = "📝 Напишите комментарий (что нужно сделать):"
	askQuestion = "🆓 Опишите ваш вопрос одним сообщением:"
	needContact = "Укажите номер телефона или @username."
	needText    = "Напишите ответ текстом."

	receiptOrder = "✅ Заявка принята!\n\n🧾 ID: #%d\n📱 Модель: %s\n📲 Контакт: %s\n💱 Валюта: %s\n📝 Комментарий: %s\n\nОператор скоро свяжется с вами."
	receiptFree  = "✅ Принято! Мы скоро вам ответим."
	alertOrder   = "🆕 Новая заявка\n\n🧾 ID: #%d\n👤 Пользователь: %s | ID: %d\n📱 Модель: %s\n📲 Контакт: %s\n💱 Валюта: %s\n📝 Комментарий: %s"
	alertFree    = "🆓 Бесплатная консультация\n\n🧾 ID: #%d\n👤 Пользователь: %s | ID: %d\n💱 Валюта: %s\n📝 Сообщение: %s"

	btnPrices    = "💼 Услуги / Цены"
	btnOrder     = "📝 Заказать"
	btnFree      = "🆓 Бесплатная консультация"
	btnFreeShort = "🆓 Бесплатно"
	btnReviews   = "⭐ Отзывы"
	btnTrust     = "🔐 Доверие / Гарантия"
	btnContacts  = "📞 Контакты"
	btnBack      = "⬅️ Назад"
)

func engineTexts(string) nav.Texts {
	return nav.Texts{
		Unknown:      "Неизвестный выбор, используйте кнопки 👇",
		UseButtons:   "Выберите раздел кнопками 👇",
		Cancelled:    "Отменено.",
		Unauthorized: "⛔️ Доступ только для админа.",
		DataGap:      "Раздел временно недоступен.",
		Failed:       "Что-то пошло не так, попробуйте позже.",
		Busy:         "⏳ Обрабатываю предыдущий запрос, подождите.",
		NeedMedia:    "Отправьте фото или файл.",
		CancelLabel:  "✖ Отмена",
	}
}
