package notification

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

const (
	subjectPrefix = "【SubMemo】"
	signature     = "---\nSubMemo - あなたのサブスクリプションを一元管理"
)

// Yen форматирует сумму как ¥1,490.
func Yen(amount int) string {
	s := strconv.Itoa(amount)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-¥" + b.String()
	}
	return "¥" + b.String()
}

func relativeDay(days int) string {
	if days == 1 {
		return "明日"
	}
	return fmt.Sprintf("%d日後", days)
}

// Render собирает письмо для напоминания.
func Render(sub models.Subscription, r Reminder, to string) models.Email {
	switch r.Type {
	case models.NotificationTrialEnding:
		return TrialEndingEmail(sub, r.Date, r.DaysBefore, to)
	default:
		return PaymentReminderEmail(sub, r.Date, r.DaysBefore, to)
	}
}

// TrialEndingEmail письмо об окончании бесплатного периода.
func TrialEndingEmail(sub models.Subscription, trialEnd models.Date, days int, to string) models.Email {
	when := relativeDay(days)
	firstBilling := trialEnd.AddMonths(1)

	var b strings.Builder
	b.WriteString("SubMemoをご利用いただき、ありがとうございます。\n\n")
	fmt.Fprintf(&b, "%sの無料トライアル期間が%s（%s）に終了いたします。\n\n", sub.Name, when, trialEnd)
	b.WriteString("■ サービス詳細\n")
	fmt.Fprintf(&b, "サービス名: %s\n", sub.Name)
	fmt.Fprintf(&b, "月額料金: %s\n", Yen(sub.Price))
	fmt.Fprintf(&b, "カテゴリ: %s\n", sub.Category)
	fmt.Fprintf(&b, "トライアル終了日: %s\n\n", trialEnd)
	b.WriteString("トライアル終了後、自動的に有料プランに移行し、\n")
	fmt.Fprintf(&b, "%sが初回請求日となります。\n\n", firstBilling)
	b.WriteString("継続しない場合は、トライアル終了前にキャンセル手続きを行ってください。\n\n")
	b.WriteString(signature)

	return models.Email{
		To:      []string{to},
		Subject: fmt.Sprintf("%s%sの無料トライアルが%s終了します", subjectPrefix, sub.Name, when),
		Text:    b.String(),
	}
}

// PaymentReminderEmail письмо о предстоящем списании.
func PaymentReminderEmail(sub models.Subscription, payment models.Date, days int, to string) models.Email {
	when := relativeDay(days)

	var b strings.Builder
	b.WriteString("SubMemoをご利用いただき、ありがとうございます。\n\n")
	fmt.Fprintf(&b, "%sの更新日が%s（%s）に予定されています。\n\n", sub.Name, when, payment)
	b.WriteString("■ サービス詳細\n")
	fmt.Fprintf(&b, "サービス名: %s\n", sub.Name)
	fmt.Fprintf(&b, "月額料金: %s\n", Yen(sub.Price))
	fmt.Fprintf(&b, "カテゴリ: %s\n", sub.Category)
	fmt.Fprintf(&b, "更新日: %s\n", payment)
	if sub.CardName != nil && *sub.CardName != "" {
		fmt.Fprintf(&b, "支払いカード: %s\n", *sub.CardName)
	}
	b.WriteString("\nご利用中のカードの有効期限や残高をご確認ください。\n\n")
	b.WriteString(signature)

	return models.Email{
		To:      []string{to},
		Subject: fmt.Sprintf("%s%sの更新日が%sです", subjectPrefix, sub.Name, when),
		Text:    b.String(),
	}
}

// TestEmail проверочное письмо из настроек.
func TestEmail(to string) models.Email {
	return models.Email{
		To:      []string{to},
		Subject: subjectPrefix + "テスト通知",
		Text: "SubMemoからのテスト通知です。\n\n" +
			"このメールが届いていれば、メール通知は正しく設定されています。\n\n" + signature,
	}
}
