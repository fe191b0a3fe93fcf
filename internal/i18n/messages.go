// Package i18n holds the user-facing texts in every supported language.
package i18n

import (
	"fmt"

	"calorie-bot/internal/models"
)

type Key string

const (
	Welcome           Key = "welcome"
	ChooseLanguage    Key = "choose_language"
	LanguageSet       Key = "language_set"
	SendPhoto         Key = "send_photo"
	TextInput         Key = "text_input"
	Analyzing         Key = "analyzing"
	AnalyzingText     Key = "analyzing_text"
	FoodAnalysis      Key = "food_analysis"
	NutritionalValues Key = "nutritional_values"
	ApproximateNote   Key = "approximate_note"
	SaveCalories      Key = "save_calories"
	CaloriesSaved     Key = "calories_saved"
	InvalidCalories   Key = "invalid_calories"
	Error             Key = "error"
	DailySummary      Key = "daily_summary"
	NoEntries         Key = "no_entries"
	DonationPrompt    Key = "donation_prompt"
	DonationThanks    Key = "donation_thanks"
	Help              Key = "help"

	ButtonAddPhoto     Key = "button_add_photo"
	ButtonAddText      Key = "button_add_text"
	ButtonDonate       Key = "button_donate"
	ButtonContinueFree Key = "button_continue_free"
)

var catalog = map[string]map[Key]string{
	models.LangEnglish: {
		Welcome:           "✨ <b>Hey there!</b>\n\nI can help you track your food and count calories.\n\n<i>Choose how you want to add your food:</i>",
		ChooseLanguage:    "Please choose your preferred language / Пожалуйста, выберите язык:",
		LanguageSet:       "Language set to English! You can now track your food 🕺🏻",
		SendPhoto:         "Please send a food photo for analysis! 📸",
		TextInput:         "Please describe your food in detail (e.g. '<i>grilled chicken breast with rice and vegetables</i>')",
		Analyzing:         "🧪 <i>Analyzing your food image...</i>",
		AnalyzingText:     "🔍 <i>Analyzing your food description...</i>",
		FoodAnalysis:      "🍽️ <b>Food Analysis:</b>\n",
		NutritionalValues: "📊 <b>Estimated Nutritional Values:</b>\n",
		ApproximateNote:   "\n\n🔮 <i>Note: these are approximate values.</i>",
		SaveCalories:      "<b>Would you like to save the calories into your food diary?</b>\n\n🧈 <i>Large portion or full-fat ingredients: type the upper value of the range.</i>\n\n🌿 <i>Small portion or low-fat ingredients: type the lower value.</i>",
		CaloriesSaved:     "✔️ <b>Calories saved to your food diary!</b>",
		InvalidCalories:   "❌ Please enter a valid number of calories.",
		Error:             "❌ <b>Sorry, something went wrong.</b> Please try again.",
		DailySummary:      "📊 <b>Your daily calorie intake summary:</b>\n",
		NoEntries:         "<i>No food entries recorded today.</i>",
		DonationPrompt:    "💛 <b>Enjoying the food diary?</b>\n\nThe bot is free to use. If it helps you, consider supporting its development.",
		DonationThanks:    "🙏 <b>Thank you for your support!</b>",
		Help:              "I count calories from food photos or descriptions.\n\n/start or /language to pick a language, then send a photo or describe your meal. Every evening you get a summary of the day.",

		ButtonAddPhoto:     "📸 Add photo",
		ButtonAddText:      "⌨️ Add as text",
		ButtonDonate:       "💛 Support",
		ButtonContinueFree: "Continue for free",
	},
	models.LangRussian: {
		Welcome:           "✨ <b>Привет!</b>\n\nЯ помогу вам отслеживать питание и считать калории.\n\n<i>Выберите, как вы хотите добавить еду:</i>",
		ChooseLanguage:    "Please choose your preferred language / Пожалуйста, выберите язык:",
		LanguageSet:       "<b>Давайте начнём вести дневник калорий</b> 🕺🏻",
		SendPhoto:         "Пожалуйста, отправьте фотографию еды для анализа! 📸",
		TextInput:         "Пожалуйста, опишите вашу еду подробно (например, '<i>куриная грудка на гриле с рисом и овощами</i>')",
		Analyzing:         "🧪 <i>Анализирую ваше фото...</i>",
		AnalyzingText:     "🔍 <i>Анализирую описание вашей еды...</i>",
		FoodAnalysis:      "🍽️ <b>Анализ блюда:</b>\n",
		NutritionalValues: "📊 <b>Примерная пищевая ценность:</b>\n",
		ApproximateNote:   "\n\n🔮 <i>Примечание: это приблизительные значения.</i>",
		SaveCalories:      "<b>Хотите сохранить калории в дневник питания?</b>\n\n🧈 <i>Большая порция или жирные ингредиенты: введите верхнее значение диапазона.</i>\n\n🌿 <i>Маленькая порция или нежирные ингредиенты: введите нижнее значение.</i>",
		CaloriesSaved:     "✔️ <b>Калории сохранены в ваш дневник!</b>",
		InvalidCalories:   "❌ Пожалуйста, введите корректное число калорий.",
		Error:             "❌ <b>Извините, произошла ошибка.</b> Попробуйте ещё раз.",
		DailySummary:      "📊 <b>Итоги вашего дневного потребления калорий:</b>\n",
		NoEntries:         "<i>Сегодня нет записей о приёме пищи.</i>",
		DonationPrompt:    "💛 <b>Нравится дневник питания?</b>\n\nБот бесплатный. Если он вам помогает, поддержите его развитие.",
		DonationThanks:    "🙏 <b>Спасибо за поддержку!</b>",
		Help:              "Я считаю калории по фото или описанию еды.\n\n/start или /language, чтобы выбрать язык, затем отправьте фото или опишите блюдо. Каждый вечер вы получите итоги дня.",

		ButtonAddPhoto:     "📸 Добавить фото",
		ButtonAddText:      "⌨️ Добавить текстом",
		ButtonDonate:       "💛 Поддержать",
		ButtonContinueFree: "Продолжить бесплатно",
	},
}

// LanguageNames are the labels of the language menu buttons.
var LanguageNames = map[string]string{
	models.LangEnglish: "English",
	models.LangRussian: "Русский",
}

// Text returns the message for key in lang, falling back to English.
func Text(lang string, key Key) string {
	if msgs, ok := catalog[lang]; ok {
		if s, ok := msgs[key]; ok {
			return s
		}
	}
	return catalog[models.DefaultLanguage][key]
}

// IsButton reports whether text is the label of the given button in any
// language.
func IsButton(text string, key Key) bool {
	for _, msgs := range catalog {
		if msgs[key] == text {
			return true
		}
	}
	return false
}

func CaloriesAdded(lang string, calories, total int) string {
	if lang == models.LangRussian {
		return fmt.Sprintf("<b>✅ %d калорий добавлено в ваш дневник!</b>\n\n📊 Всего калорий за сегодня: <b>%d ккал</b>", calories, total)
	}
	return fmt.Sprintf("<b>✅ %d calories added to your food diary!</b>\n\n📊 Your total calories today: <b>%d kcal</b>", calories, total)
}

// ApproximateTotal describes a daily total with the usual 10-15% margin of
// photo based estimates.
func ApproximateTotal(lang string, total int) string {
	low := total * 85 / 100
	high := total * 115 / 100
	if lang == models.LangRussian {
		return fmt.Sprintf("Всего за сегодня: <b>~%d ккал</b>\nС учётом погрешности ±10–15%% это примерно %d–%d ккал.", total, low, high)
	}
	return fmt.Sprintf("Total today: <b>~%d kcal</b>\nWith the usual ±10–15%% margin that is roughly %d–%d kcal.", total, low, high)
}
