// Package sl содержит вспомогательные функции для работы с логгером slog.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
// Для nil пишется пустая строка.
//
// Пример:
//
//	log.Error("failed to record payment", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Sub атрибут с идентификатором подписки.
func Sub(id string) slog.Attr {
	return slog.String("subscription_id", id)
}

// User атрибут с идентификатором пользователя.
func User(uid string) slog.Attr {
	return slog.String("user_uid", uid)
}
