package domain

import "errors"

var (
	ErrStorageUnavailable      = errors.New("storage unavailable")
	ErrUserNotFound            = errors.New("user not found")
	ErrPaymentAlreadyProcessed = errors.New("payment already processed")
	ErrTextTooLong             = errors.New("text too long")
	ErrImageTooLarge           = errors.New("image too large")
	ErrEmptyContent            = errors.New("no translatable content")
)
