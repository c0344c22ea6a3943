package errors

import "errors"

var (
	ErrMissingBotToken = errors.New("telegram_bot_token is required")
	ErrAdNotFound      = errors.New("ad not found")
	ErrNotOwner        = errors.New("ad belongs to another user")
	ErrInvalidPayload  = errors.New("invalid ad payload")
	ErrTooManyImages   = errors.New("an ad can have at most 3 images")
	ErrImageTooLarge   = errors.New("raw image exceeds the 10MB limit")
	ErrUnauthorized    = errors.New("unauthorized user")
	ErrCreateInFlight  = errors.New("ad creation already in progress")
)
