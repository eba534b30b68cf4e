package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	apperrors "github.com/rabota-krsk/rabota-bot/internal/errors"
	"github.com/rabota-krsk/rabota-bot/internal/ledger"
	"github.com/rabota-krsk/rabota-bot/internal/pricing"
	"github.com/rabota-krsk/rabota-bot/internal/state"
)

// startAutopost opens the recurring-publication sub-flow for a reviewed
// draft.
func (f *Flow) startAutopost(ctx context.Context, session *state.Session) error {
	if err := f.fsm.Advance(ctx, session, state.StateChoosingAutopostFrequency); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID,
		fmt.Sprintf("С какой периодичностью %s?", pubTypePhrase(session.Draft.Type)),
		frequencyMenu(),
	)
}

// chooseFrequency stores the trigger kind. Weekly goes through weekday
// selection first; daily jumps straight to the time prompt.
func (f *Flow) chooseFrequency(ctx context.Context, session *state.Session, trigger domain.TriggerKind) error {
	session.Autopost.Frequency = trigger
	if trigger == domain.TriggerDaily {
		session.Autopost.Weekday = nil
		return f.askForTime(ctx, session)
	}

	if err := f.fsm.Advance(ctx, session, state.StateChoosingWeekday); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID,
		fmt.Sprintf("Выберите день недели в который %s:", pubTypePhrase(session.Draft.Type)),
		weekdayMenu(),
	)
}

func (f *Flow) handleWeekday(ctx context.Context, session *state.Session, raw string) error {
	n, err := parseIndex(raw)
	if err != nil || n < 0 || n > 6 {
		return apperrors.NewStateError(fmt.Sprintf("bad weekday %q", raw))
	}

	weekday := time.Weekday(n)
	session.Autopost.Weekday = &weekday

	return f.askForTime(ctx, session)
}

func (f *Flow) askForTime(ctx context.Context, session *state.Session) error {
	if err := f.fsm.Advance(ctx, session, state.StateEnteringTime); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID,
		fmt.Sprintf("Введите время в которое %s в формате ЧЧ:ММ", pubTypePhrase(session.Draft.Type)),
		Menu{{{Label: btnBack, Action: ActionAutoPosting}}},
	)
}

func (f *Flow) handleTimeInput(ctx context.Context, session *state.Session, text string) error {
	if err := ValidateTime(text); err != nil {
		return err
	}
	session.Autopost.TimeOfDay = normalizeClock(text)

	return f.askForRepetitions(ctx, session)
}

// askForRepetitions shows the balance, the price table and the repetitions
// prompt phrased for the chosen frequency.
func (f *Flow) askForRepetitions(ctx context.Context, session *state.Session) error {
	balance, err := f.ledger.Balance(ctx, session.UserID)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}

	if err := f.fsm.Advance(ctx, session, state.StateEnteringRepetitions); err != nil {
		return err
	}

	subject := "должно опубликоваться объявление"
	if session.Draft.Type == domain.TypeAdvertisement {
		subject = "должна опубликоваться реклама"
	}

	var prompt string
	if session.Autopost.Frequency == domain.TriggerWeekly && session.Autopost.Weekday != nil {
		prompt = fmt.Sprintf("Ваш баланс: %d рублей. Введите сколько недель подряд раз %s %s",
			balance.Rubles(), weekdayAccusative[*session.Autopost.Weekday], subject)
	} else {
		prompt = fmt.Sprintf("Ваш баланс: %d рублей. Введите сколько дней подряд %s",
			balance.Rubles(), subject)
	}

	return f.msgr.SendMenu(ctx, session.UserID,
		fmt.Sprintf("%s\n\n%s", prompt, pricingText(session.Draft.Type)),
		Menu{{{Label: btnBack, Action: ActionBackToTimeInput}}},
	)
}

// handleRepetitions prices the order, debits it and registers the recurring
// job in one step. Admins schedule free.
func (f *Flow) handleRepetitions(ctx context.Context, session *state.Session, text string) error {
	repetitions, err := ValidateRepetitions(text)
	if err != nil {
		return err
	}

	cost := pricing.Cost(session.Draft.Type, repetitions)

	admin, err := f.isAdmin(ctx, session.UserID)
	if err != nil {
		return err
	}

	if !admin {
		ok, err := f.ledger.CanAfford(ctx, session.UserID, cost)
		if err != nil {
			return apperrors.NewDatabaseError(err)
		}
		if !ok {
			balance, err := f.ledger.Balance(ctx, session.UserID)
			if err != nil {
				return apperrors.NewDatabaseError(err)
			}

			return f.msgr.SendMenu(ctx, session.UserID,
				fmt.Sprintf("У вас недостаточно средств на балансе для такого количества публикаций. "+
					"Ваш баланс %d рублей. Введите корректное кол-во публикаций "+
					"или перейдите в магазин чтобы пополнить баланс", balance.Rubles()),
				Menu{
					{{Label: btnEditQuantity, Action: ActionBackToRepetitions}},
					{{Label: btnShop, Action: ActionMenuShop}},
				},
			)
		}

		if err := f.ledger.Debit(ctx, session.UserID, cost); err != nil {
			if errors.Is(err, ledger.ErrInsufficientFunds) {
				return apperrors.NewInsufficientFundsError(0, cost)
			}
			return apperrors.NewDatabaseError(err)
		}
	}

	session.Autopost.Repetitions = repetitions
	session.Autopost.Cost = cost

	_, err = f.scheduler.ScheduleRecurring(
		ctx,
		session.UserID,
		session.Draft.Type,
		session.Draft.Render(),
		session.Autopost.Frequency,
		session.Autopost.Weekday,
		session.Autopost.TimeOfDay,
		repetitions,
	)
	if err != nil {
		return apperrors.NewSchedulerError(err)
	}

	confirmation := f.autopostConfirmation(session)

	if err := f.fsm.ClearSession(ctx, session.UserID); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, confirmation, homeMenu())
}

func (f *Flow) autopostConfirmation(session *state.Session) string {
	subject := "Ваше объявление о работе"
	if session.Draft.Type == domain.TypeAdvertisement {
		subject = "Ваше рекламное объявление"
	}

	if session.Autopost.Frequency == domain.TriggerWeekly && session.Autopost.Weekday != nil {
		return fmt.Sprintf("✅ %s будет публиковаться раз в неделю\n %s %d недель(и) подряд в %s",
			subject, weekdayEvery[*session.Autopost.Weekday], session.Autopost.Repetitions, session.Autopost.TimeOfDay)
	}

	return fmt.Sprintf("✅ %s будет публиковаться раз в сутки\n %d сутки(ок) подряд в %s",
		subject, session.Autopost.Repetitions, session.Autopost.TimeOfDay)
}

// normalizeClock pads a H:MM answer to HH:MM so cron specs stay uniform.
func normalizeClock(value string) string {
	trimmed := make([]rune, 0, 5)
	for _, r := range value {
		if r != ' ' {
			trimmed = append(trimmed, r)
		}
	}

	s := string(trimmed)
	if len(s) == 4 {
		return "0" + s
	}
	return s
}
