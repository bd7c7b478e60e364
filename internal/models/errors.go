package models

import "errors"

var (
	// ErrNotFound запись не найдена или принадлежит другому пользователю.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists нарушено условие уникальности.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput данные запроса не проходят доменные проверки.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials неверное имя пользователя или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
