package service

import "errors"

var (
	ErrSessionRequired            = errors.New("session id required")
	ErrPaymentNotCompleted        = errors.New("payment not completed")
	ErrPaymentProviderUnavailable = errors.New("payment provider unavailable")
	ErrOrderNotFound              = errors.New("order not found")
	ErrInvalidRequest             = errors.New("invalid request")
	ErrAccountAlreadyExists       = errors.New("account already exists")
	ErrInvalidCredentials         = errors.New("invalid credentials")
	ErrAuthNotConfigured          = errors.New("auth token secret is not configured")
)
