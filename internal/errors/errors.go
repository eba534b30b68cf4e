package errors

import (
	"fmt"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// NewValidationError covers bad format or range on user input; the user
// re-enters the value, session state is untouched.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: fmt.Sprintf("Некорректный ввод. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewInsufficientFundsError blocks a publish or scheduling transition
// without any partial debit.
func NewInsufficientFundsError(balance, required domain.Kopecks) *AppError {
	return &AppError{
		Code:    "E110",
		Message: fmt.Sprintf("insufficient funds: balance %d, required %d", balance, required),
		UserMessage: fmt.Sprintf(
			"У вас недостаточно средств на балансе. Ваш баланс %d рублей, требуется %d рублей. Пополните баланс в магазине",
			balance.Rubles(), required.Rubles(),
		),
		Severity:  SeverityLow,
		Retryable: false,
		cause:     nil,
	}
}

// NewContentRejectedError is raised at review time when blocked tokens are
// found; the draft is discarded by design.
func NewContentRejectedError(tokens []string) *AppError {
	return &AppError{
		Code:        "E120",
		Message:     fmt.Sprintf("content rejected, stop words found: %v", tokens),
		UserMessage: "В вашем объявлении были найдены стоп слова, введите текст объявления заново.",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewPublishFailureError wraps a failed send to the feed. The debit is not
// refunded; the publication is marked failed and the user notified.
func NewPublishFailureError(cause error) *AppError {
	return &AppError{
		Code:        "E130",
		Message:     fmt.Sprintf("publish failed: %v", cause),
		UserMessage: "❌ Ошибка при публикации. Попробуйте позже.",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

// NewSchedulerError covers a failed job registration. Fatal for that one
// scheduling attempt only.
func NewSchedulerError(cause error) *AppError {
	return &AppError{
		Code:        "E140",
		Message:     fmt.Sprintf("scheduler registration failed: %v", cause),
		UserMessage: "Ошибка планировщика. Попробуйте позже или обратитесь в поддержку.",
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       cause,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "Временная проблема, попробуйте позже",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "Операция невозможна в текущем состоянии",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       nil,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Слишком много запросов. Попробуйте через %d секунд", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}
