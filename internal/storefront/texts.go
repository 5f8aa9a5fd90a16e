package storefront

// AdminTexts are the strings of the administrator commands. Format verbs
// are noted next to the fields that take them.
type AdminTexts struct {
	OrdersTitle  string
	OrdersEmpty  string
	StatusUsage  string
	StatusDone   string // %d id, %s status
	StatusFinal  string // %d id, %s status
	OrderMissing string // %d id
	PriceUsage   string
	PriceSaved   string // %s key, %s amount
	ReviewStart  string
	ReviewAdded  string // %s media type
	ReviewHint   string
	ReviewDone   string
	ReviewsEmpty string
	ReviewsTitle string
	ReviewsFoot  string
	DeleteUsage  string
	DeleteNaN    string
	Deleted      string // %d id
	DeleteMiss   string
}

// ReviewTexts are the strings of the public reviews screen.
type ReviewTexts struct {
	Swipe string
	Empty string
	Pager string // %d page, %d pages
	Back  string
}

func AdminTextsRU() AdminTexts {
	return AdminTexts{
		OrdersTitle:  "📋 Ожидающие заявки:",
		OrdersEmpty:  "Ожидающих заявок нет.",
		StatusUsage:  "Использование: /setstatus ID done|cancel",
		StatusDone:   "✅ Заявка #%d: %s",
		StatusFinal:  "Заявка #%d уже закрыта (%s).",
		OrderMissing: "❌ Заявка #%d не найдена.",
		PriceUsage:   "Использование: /setprice PLATFORM SERVICE QTY PRICE\nКлючи: латиница, цифры и _, не длиннее 48 символов.",
		PriceSaved:   "✅ Цена %s = %s",
		ReviewStart:  "⭐ Добавление отзывов\n\nОтправьте фото или видео (можно альбомом).\n\nКогда закончите, напишите: DONE\nОтмена: /cancel",
		ReviewAdded:  "✅ Добавлено (%s). Ещё? Отправляйте или DONE.",
		ReviewHint:   "Отправьте фото/видео отзыв или напишите DONE.",
		ReviewDone:   "✅ Готово! Отзывы добавлены.\n\nПроверка: ⭐ Отзывы.",
		ReviewsEmpty: "Пока отзывов нет. Добавить: /addreview",
		ReviewsTitle: "⭐ Список отзывов (ID):",
		ReviewsFoot:  "Удалить: /delreview ID",
		DeleteUsage:  "Использование: /delreview ID",
		DeleteNaN:    "ID должен быть числом. Пример: /delreview 12",
		Deleted:      "✅ Удалено: отзыв #%d",
		DeleteMiss:   "❌ Не найдено. Список: /reviewslist",
	}
}

func AdminTextsEN() AdminTexts {
	return AdminTexts{
		OrdersTitle:  "📋 Pending orders:",
		OrdersEmpty:  "No pending orders.",
		StatusUsage:  "Usage: /setstatus ID done|cancel",
		StatusDone:   "✅ Order #%d: %s",
		StatusFinal:  "Order #%d is already closed (%s).",
		OrderMissing: "❌ Order #%d not found.",
		PriceUsage:   "Usage: /setprice PLATFORM SERVICE QTY PRICE\nKeys: latin letters, digits and _, at most 48 characters.",
		PriceSaved:   "✅ Price %s = %s",
		ReviewStart:  "⭐ Adding reviews\n\nSend photos or videos (albums work too).\n\nWhen finished, type: DONE\nCancel: /cancel",
		ReviewAdded:  "✅ Added (%s). More? Keep sending or DONE.",
		ReviewHint:   "Send a photo/video review or type DONE.",
		ReviewDone:   "✅ Done! Reviews added.\n\nCheck: ⭐ Reviews.",
		ReviewsEmpty: "No reviews yet. Add: /addreview",
		ReviewsTitle: "⭐ Reviews (ID):",
		ReviewsFoot:  "Delete: /delreview ID",
		DeleteUsage:  "Usage: /delreview ID",
		DeleteNaN:    "ID must be a number. Example: /delreview 12",
		Deleted:      "✅ Deleted: review #%d",
		DeleteMiss:   "❌ Not found. List: /reviewslist",
	}
}

func ReviewTextsRU() ReviewTexts {
	return ReviewTexts{
		Swipe: "⭐ Отзывы\n\nЛистайте свайпом 👆",
		Empty: "⭐ Отзывы\n\nПока отзывов нет.",
		Pager: "⬇️ Переключение страниц: %d/%d",
		Back:  "⬅️ Назад",
	}
}

func ReviewTextsEN() ReviewTexts {
	return ReviewTexts{
		Swipe: "⭐ Reviews\n\nSwipe to browse 👆",
		Empty: "⭐ Reviews\n\nNo reviews yet.",
		Pager: "⬇️ Pages: %d/%d",
		Back:  "⬅️ Back",
	}
}
