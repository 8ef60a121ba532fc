package service

import "errors"

var (
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrMissingFields      = errors.New("missing required fields")
	ErrBirthDateRequired  = errors.New("birth date required")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrUnknownSection     = errors.New("unknown profile section")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrNotAdmin           = errors.New("admin privileges required")
	ErrProductNotFound    = errors.New("product not found")
	ErrSessionNotFound    = errors.New("session not found")
)
