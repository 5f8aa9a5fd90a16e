package growthbot

import (
	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/storefront"
)

const (
	LangRU = "ru"
	LangEN = "en"
)

type texts struct {
	Engine nav.Texts

	Language   string
	Main       string
	Platforms  string
	Services   string
	Quantities string
	// Summary takes platform, service, quantity and price.
	Summary  string
	AskLink  string
	AskProof string
	NeedLink string
	Receipt  string
	// Alert takes id, user, user id, platform, service, quantity, price and link.
	Alert string

	Catalog string
	MyLang  string
	Reviews string
	Support string
	Order   string
	Back    string
}

var catalogTexts = map[string]texts{
	LangRU: {
		Engine: nav.Texts{
			Unknown:      "Неизвестный выбор, используйте кнопки 👇",
			UseButtons:   "Выберите раздел кнопками 👇",
			Cancelled:    "Отменено.",
			Unauthorized: "⛔️ Доступ только для админа.",
			DataGap:      "Цена на этот пакет сейчас недоступна.",
			Failed:       "Что-то пошло не так, попробуйте позже.",
			Busy:         "⏳ Обрабатываю предыдущий запрос, подождите.",
			NeedMedia:    "Отправьте скриншот оплаты фото или файлом.",
			CancelLabel:  "✖ Отмена",
		},
		Language:   "🌐 Выберите язык / Choose your language:",
		Main:       "🚀 Продвижение в соцсетях\n\nВыберите раздел:",
		Platforms:  "Выберите платформу:",
		Services:   "%s: выберите услугу:",
		Quantities: "%s · %s\n\nВыберите количество:",
		Summary:    "📦 Ваш пакет\n\nПлатформа: %s\nУслуга: %s\nКоличество: %d\nЦена: %s",
		AskLink:    "🔗 Отправьте ссылку на аккаунт или публикацию:",
		AskProof:   "🧾 Оплатите пакет и отправьте скриншот оплаты (фото или файл):",
		NeedLink:   "Отправьте ссылку или @username.",
		Receipt:    "✅ Заказ #%d принят! Мы проверим оплату и запустим продвижение.",
		Alert:      "🆕 Новый заказ #%d\n\n👤 %s | ID: %d\n📱 %s · %s\n🔢 Количество: %d\n💰 Цена: %s\n🔗 %s",
		Catalog:    "🛒 Каталог",
		MyLang:     "🌐 Язык",
		Reviews:    "⭐ Отзывы",
		Support:    "💬 Поддержка",
		Order:      "📝 Заказать",
		Back:       "⬅️ Назад",
	},
	LangEN: {
		Engine: nav.Texts{
			Unknown:      "Unknown selection, please use the buttons 👇",
			UseButtons:   "Please use the buttons 👇",
			Cancelled:    "Cancelled.",
			Unauthorized: "⛔️ Administrators only.",
			DataGap:      "This package has no price right now.",
			Failed:       "Something went wrong, please try again later.",
			Busy:         "⏳ Still working on your previous request, please wait.",
			NeedMedia:    "Please send the payment screenshot as a photo or a file.",
			CancelLabel:  "✖ Cancel",
		},
		Language:   "🌐 Выберите язык / Choose your language:",
		Main:       "🚀 Social media growth\n\nPick a section:",
		Platforms:  "Pick a platform:",
		Services:   "%s: pick a service:",
		Quantities: "%s · %s\n\nPick a quantity:",
		Summary:    "📦 Your package\n\nPlatform: %s\nService: %s\nQuantity: %d\nPrice: %s",
		AskLink:    "🔗 Send the link to your account or post:",
		AskProof:   "🧾 Pay for the package and send the payment screenshot (photo or file):",
		NeedLink:   "Send a link or @username.",
		Receipt:    "✅ Order #%d received! We will check the payment and start shortly.",
		Alert:      "🆕 New order #%d\n\n👤 %s | ID: %d\n📱 %s · %s\n🔢 Quantity: %d\n💰 Price: %s\n🔗 %s",
		Catalog:    "🛒 Catalog",
		MyLang:     "🌐 Language",
		Reviews:    "⭐ Reviews",
		Support:    "💬 Support",
		Order:      "📝 Order",
		Back:       "⬅️ Back",
	},
}

var serviceNames = map[string]map[string]string{
	LangRU: {"followers": "Подписчики", "likes": "Лайки", "views": "Просмотры"},
	LangEN: {"followers": "Followers", "likes": "Likes", "views": "Views"},
}

func textsFor(lang string) texts {
	if t, ok := catalogTexts[lang]; ok {
		return t
	}
	return catalogTexts[LangRU]
}

func engineTexts(lang string) nav.Texts { return textsFor(lang).Engine }

func adminTexts(lang string) storefront.AdminTexts {
	if lang == LangEN {
		return storefront.AdminTextsEN()
	}
	return storefront.AdminTextsRU()
}

func reviewTexts(lang string) storefront.ReviewTexts {
	if lang == LangEN {
		return storefront.ReviewTextsEN()
	}
	return storefront.ReviewTextsRU()
}

func validLang(arg string) bool {
	_, ok := catalogTexts[arg]
	return ok
}
