package flow

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/rabota-krsk/rabota-bot/internal/errors"
	"github.com/rabota-krsk/rabota-bot/internal/pricing"
	"github.com/rabota-krsk/rabota-bot/internal/slots"
)

var (
	timeRe     = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
	dateTimeRe = regexp.MustCompile(`^(0[1-9]|[12][0-9]|3[01])\.(0[1-9]|1[0-2])\.20[2-9][0-9] ([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

// ValidateTime accepts a wall-clock value in HH:MM, hours 0-23.
func ValidateTime(value string) error {
	if !timeRe.MatchString(strings.TrimSpace(value)) {
		return apperrors.NewValidationError("Введите время в формате ЧЧ:ММ, например 09:30")
	}
	return nil
}

// ValidateRepetitions accepts an integer between 1 and 30.
func ValidateRepetitions(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < pricing.MinRepetitions || n > pricing.MaxRepetitions {
		return 0, apperrors.NewValidationError("Введите число повторений от 1 до 30")
	}
	return n, nil
}

// ValidateDateTime accepts DD.MM.YYYY HH:MM, parses it in loc and requires
// a strictly future moment.
func ValidateDateTime(value string, loc *time.Location, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if !dateTimeRe.MatchString(trimmed) {
		return time.Time{}, apperrors.NewValidationError("Введите дату и время в формате ДД.ММ.ГГГГ ЧЧ:ММ, например 05.09.2026 18:00")
	}

	parsed, err := time.ParseInLocation(slots.DateTimeLayout, trimmed, loc)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("Такой даты не существует, проверьте ввод")
	}

	if !parsed.After(now) {
		return time.Time{}, apperrors.NewValidationError("Дата и время должны быть в будущем")
	}

	return parsed, nil
}

// ValidateNonEmpty rejects blank free-text answers.
func ValidateNonEmpty(value, prompt string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", apperrors.NewValidationError(prompt)
	}
	return trimmed, nil
}

// ValidateWorkerCount accepts a positive integer as text.
func ValidateWorkerCount(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 1 {
		return "", apperrors.NewValidationError("Введите количество сотрудников числом, например 3")
	}
	return trimmed, nil
}
