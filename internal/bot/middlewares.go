package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	apperrors "github.com/rabota-krsk/rabota-bot/internal/errors"
	"github.com/rabota-krsk/rabota-bot/internal/ratelimit"
	"github.com/rabota-krsk/rabota-bot/internal/repository"
	"github.com/rabota-krsk/rabota-bot/pkg/metrics"
)

// RecoveryMiddleware catches panics, reports them via the centralized
// handler and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler",
						slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := "Произошла ошибка. Попробуйте позже"
					if errHandler != nil {
						appErr := apperrors.NewDatabaseError(fmt.Errorf("panic recovered: %v", r))
						if msg, _ := errHandler.Handle(context.Background(), appErr); msg != "" {
							userMsg = msg
						}
					}

					if c != nil {
						if sendErr := c.Send(userMsg); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging
// for handler failures.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler) Middleware {
	return func(next Handler) Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := "Произошла ошибка. Попробуйте позже"
			if errHandler != nil {
				if msg, _ := errHandler.Handle(context.Background(), err); msg != "" {
					userMsg = msg
				}
			}

			if c != nil {
				_ = c.Send(userMsg)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			userID := int64(0)
			if c != nil && c.Sender() != nil {
				userID = c.Sender().ID
			}

			action := ""
			if c != nil {
				if cb := c.Callback(); cb != nil {
					action = cb.Data
				} else {
					action = c.Text()
				}
			}

			log.Info("handling update", slog.Int64("user_id", userID), slog.String("action", action))
			err := next(c)
			log.Info("handled update",
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// AuthMiddleware ensures each incoming update has a user record. Users
// listed in adminIDs get the admin flag on creation and are promoted if an
// older record predates the config entry.
func AuthMiddleware(users repository.UserRepository, adminIDs []int64, log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if users == nil || c == nil || c.Sender() == nil {
				return next(c)
			}

			ctx := context.Background()
			sender := c.Sender()
			shouldBeAdmin := slices.Contains(adminIDs, sender.ID)

			u, err := users.FindByTelegramID(ctx, sender.ID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				newUser := &domain.User{
					TelegramID: sender.ID,
					FirstName:  sender.FirstName,
					LastName:   sender.LastName,
					Username:   sender.Username,
					IsAdmin:    shouldBeAdmin,
				}

				if createErr := users.Create(ctx, newUser); createErr != nil {
					log.Error("failed to create user",
						slog.Int64("user_id", sender.ID), slog.Any("error", createErr))
					return createErr
				}
				log.Info("created new user", slog.Int64("user_id", sender.ID))

			case err != nil:
				log.Error("failed to find user",
					slog.Int64("user_id", sender.ID), slog.Any("error", err))
				return err

			default:
				if shouldBeAdmin && !u.IsAdmin {
					if setErr := users.SetAdmin(ctx, sender.ID, true); setErr != nil {
						log.Error("failed to promote admin",
							slog.Int64("user_id", sender.ID), slog.Any("error", setErr))
					}
				}
			}

			return next(c)
		}
	}
}

// RateLimitMiddleware drops updates above the per-user budget. Exceeding
// users get one short notice per rejected update.
func RateLimitMiddleware(limiter ratelimit.Limiter, perMinute int, log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if limiter == nil || perMinute <= 0 || c == nil || c.Sender() == nil {
				return next(c)
			}

			key := fmt.Sprintf("user:%d", c.Sender().ID)

			result, err := limiter.Check(context.Background(), key, perMinute, time.Minute)
			if err != nil {
				if errors.Is(err, ratelimit.ErrLimitExceeded) {
					retryAfter := 60
					if result != nil {
						if secs := int(time.Until(result.ResetAt).Seconds()); secs > 0 {
							retryAfter = secs
						}
					}
					return c.Send(apperrors.NewRateLimitError(retryAfter).UserMessage)
				}

				log.Warn("rate limiter unavailable, letting update through",
					slog.Int64("user_id", c.Sender().ID), slog.Any("error", err))
			}

			return next(c)
		}
	}
}

// MetricsMiddleware records per-update counters and latency.
func MetricsMiddleware(next Handler) Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		action := "text"
		if c != nil {
			if c.Callback() != nil {
				action = "callback"
			} else if t := c.Text(); len(t) > 0 && t[0] == '/' {
				action = commandName(t)
			}
		}

		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RecordCommand(action, status, time.Since(start))

		return err
	}
}
