package service

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotPayable   = errors.New("order not payable")
	ErrOrderExpired      = errors.New("order expired")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrSessionIDRequired = errors.New("session id required")
)
