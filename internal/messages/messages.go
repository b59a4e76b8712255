// Package messages centralizes all user-facing strings (Uzbek), so handlers
// stay free of literal text and translations live in one place.
package messages

import (
	"fmt"
	"time"
)

// General
const (
	Processing      = "Xabar qabul qilindi. Tekshirilmoqda..."
	Translating     = "Tarjima qilinmoqda..."
	GenericError    = "Xatolik yuz berdi."
	TryAgainLater   = "Xizmat vaqtincha mavjud emas. Iltimos, keyinroq qayta urinib ko'ring."
	SendTextOrImage = "Iltimos, matnli xabar yoki rasm yuboring."
)

// Input validation
const (
	textTooLongFmt = `Yuborilgan matn juda uzun

Siz yuborgan matn hajmi ruxsat etilganidan oshib ketdi. Iltimos, matnni qisqartiring va qayta yuboring.

Ruxsat etilgan: %d ta belgi`

	imageTooLargeFmt = "Rasm hajmi juda katta! Maksimal hajm: %dMB."
)

func TextTooLong(limit int) string       { return fmt.Sprintf(textTooLongFmt, limit) }
func ImageTooLarge(maxSizeMB int) string { return fmt.Sprintf(imageTooLargeFmt, maxSizeMB) }

// Rate limits
const (
	dailyTokenLimitFmt = `Kunlik limit tugadi

Siz bir kun uchun ajratilgan barcha limitni ishlatib bo'ldingiz. Yangi limitlar ertaga taqdim etiladi.

Yangilanish vaqti: %s

Xizmatdan foydalanishni ertaga yangi limitlar bilan davom ettirishingiz mumkin. Sabringiz uchun rahmat!`

	tooManyRequestsFmt = `Juda ko'p so'rov yuborildi

Siz qisqa vaqt ichida botga haddan tashqari ko'p so'rov yubordingiz. Iltimos, biroz sekinroq.

Ruxsat etilgan: %d ta so'rov (daqiqasiga)`

	monthlyBudgetMsg = `Botning umumiy oylik limiti tugadi

Ushbu oyda bot uchun ajratilgan umumiy limit to'liq sarflandi. Afsuski, hozircha yangi so'rovlarni qabul qila olmaymiz.

Limitlar keyingi oyda yangilanadi. Agar shoshilinch savollaringiz bo'lsa, administrator bilan bog'laning.`

	translationLimitFreeFmt = `Tarjima limiti tugadi.

Bepul limit: oyiga %d ta.
Yangilanish vaqti: %s

Premium paket (%d Yulduz):
- %d ta tarjima
- %d kun amal qiladi`

	translationLimitPremiumFmt = `Tarjima limiti tugadi.

Yangilanish vaqti: %s

Premium paket (%d Yulduz):
- %d ta tarjima
- %d kun amal qiladi`
)

func DailyTokenLimit(resetsAt time.Time) string {
	return fmt.Sprintf(dailyTokenLimitFmt, FormatDate(resetsAt))
}

func TooManyRequests(limit int) string {
	return fmt.Sprintf(tooManyRequestsFmt, limit)
}

func MonthlyBudget() string { return monthlyBudgetMsg }

func TranslationLimitFree(freeLimit int, resetsAt time.Time, stars, premiumLimit, days int) string {
	return fmt.Sprintf(translationLimitFreeFmt, freeLimit, FormatDate(resetsAt), stars, premiumLimit, days)
}

func TranslationLimitPremium(resetsAt time.Time, stars, premiumLimit, days int) string {
	return fmt.Sprintf(translationLimitPremiumFmt, FormatDate(resetsAt), stars, premiumLimit, days)
}

// Start / status
const (
	welcomeFmt = `Salom! Men sizga quyidagi xizmatlarni taklif qilaman:

<b>Tarjima:</b> Matn, rasm yoki forward qilingan xabarlarni o'zbekchaga o'girish

%s

<b>Bepul reja:</b> %d ta tarjima (30 kun)
<b>Premium:</b> %d ta tarjima (30 kun)

<i>Xizmat Google serverlaridagi Gemini modeli asosida ishlaydi.</i>`

	statusPremiumFmt = `<b>Premium obuna</b>

Amal qilish muddati: <b>%s</b> gacha

<b>Qolgan limitlar:</b>
- %d ta tarjima
- %d birlik (bugungi kun uchun)`

	statusFreeFmt = `<b>Bepul reja</b>

<b>Qolgan limitlar (oylik):</b>
- %d/%d ta tarjima
- %d birlik (bugungi kun uchun)

<b>Premium paket (%d Yulduz):</b>
- %d ta tarjima
- %d kun amal qiladi`

	helpMsg = `Menga matn yoki rasm yuboring, men uni o'zbekchaga tarjima qilaman.

Buyruqlar:
/status - qolgan limitlar
/premium - premium obuna
/feedback - fikr-mulohaza yuborish`
)

func Welcome(statusText string, freeLimit, premiumLimit int) string {
	return fmt.Sprintf(welcomeFmt, statusText, freeLimit, premiumLimit)
}

func StatusPremium(expiresAt time.Time, translationsLeft, tokensLeft int) string {
	return fmt.Sprintf(statusPremiumFmt, FormatDate(expiresAt), translationsLeft, tokensLeft)
}

func StatusFree(translationsLeft, freeLimit, tokensLeft, stars, premiumLimit, days int) string {
	return fmt.Sprintf(statusFreeFmt, translationsLeft, freeLimit, tokensLeft, stars, premiumLimit, days)
}

func Help() string { return helpMsg }

// Subscription
const (
	subscribePremiumFmt = `<b>Sizda premium obuna mavjud!</b>

Amal qilish muddati: <b>%s</b> gacha
Qolgan limitlar: %d ta tarjima

Limitlarni oshirish uchun yangi paket xarid qilishingiz mumkin:`

	subscribeFreeFmt = `<b>Bepul reja:</b>
- oyiga %d ta tarjima

<b>Premium paket (%d Yulduz):</b>
- %d ta tarjima
- %d kun amal qiladi`

	paymentSuccessFmt = `<b>To'lov muvaffaqiyatli amalga oshirildi!</b>

Premium obuna faollashtirildi.
Amal qilish muddati: <b>%s</b> gacha

<b>Sizning limitlaringiz:</b>
- %d ta tarjima

Xizmatdan foydalanganingiz uchun rahmat!`

	PaymentAlreadyProcessed = "To'lov allaqachon amalga oshirilgan. Obunangiz faol."

	ActivationError = "To'lov qabul qilindi, ammo obunani faollashtirishda xatolik yuz berdi. Iltimos, administrator bilan bog'laning."

	PlanTitle = "Premium paket"

	BtnSubscribe     = "Obuna bo'lish"
	BtnIncreaseLimit = "Limitni oshirish"
)

func SubscribePremium(expiresAt time.Time, translationsLeft int) string {
	return fmt.Sprintf(subscribePremiumFmt, FormatDate(expiresAt), translationsLeft)
}

func SubscribeFree(freeLimit, stars, premiumLimit, days int) string {
	return fmt.Sprintf(subscribeFreeFmt, freeLimit, stars, premiumLimit, days)
}

func PaymentSuccess(expiresAt time.Time, translationsLeft int) string {
	return fmt.Sprintf(paymentSuccessFmt, FormatDate(expiresAt), translationsLeft)
}

func PlanDescription(translations, days int) string {
	return fmt.Sprintf("%d ta tarjima, %d kun", translations, days)
}

// Feedback
const (
	FeedbackPrompt = `Fikr-mulohaza yuborish uchun xabaringizni yozing:

/feedback Sizning xabaringiz

Sizning fikringiz biz uchun muhim! Takliflar, shikoyatlar yoki savollaringizni yuboring.`

	FeedbackReceived = `Fikr-mulohazangiz qabul qilindi!

Xabaringiz administratorga yuborildi. Javob bo'lsa, sizga xabar beramiz.`
)

// Labels
const (
	LabelTextTranslation  = "📝 <b>Matn tarjimasi:</b>\n"
	LabelImageTranslation = "📷 <b>Rasm tarjimasi:</b>\n"
)

var months = []string{
	"yanvar", "fevral", "mart", "aprel", "may", "iyun",
	"iyul", "avgust", "sentabr", "oktabr", "noyabr", "dekabr",
}

// FormatDate renders a timestamp as an Uzbek date, e.g. "5-sentabr 2026".
func FormatDate(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d-%s %d", t.Day(), months[t.Month()-1], t.Year())
}
