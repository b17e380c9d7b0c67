package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTimeout сетевой таймаут при обращении к провайдеру. Отличается от APIError:
// вызывающая сторона может повторить запрос на свое усмотрение.
var ErrTimeout = errors.New("provider timeout")

// APIError ошибка, о которой провайдер сообщил явно (поле error.message ответа).
type APIError struct {
	Message string
}

func NewAPIError(message string) *APIError {
	if message == "" {
		message = "Unknown error"
	}
	return &APIError{Message: message}
}

func (e *APIError) Error() string {
	return e.Message
}

type StatusCodeError struct {
	Code int
}

func NewStatusCodeError(code int) *StatusCodeError {
	return &StatusCodeError{Code: code}
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("Unexpected status code %d", e.Code)
}

// convertTransportErr распознает таймауты транспортного уровня и сводит их к ErrTimeout.
func convertTransportErr(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s", ErrTimeout, err.Error())
	}
	return err
}
