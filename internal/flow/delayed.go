package flow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	apperrors "github.com/rabota-krsk/rabota-bot/internal/errors"
	"github.com/rabota-krsk/rabota-bot/internal/ledger"
	"github.com/rabota-krsk/rabota-bot/internal/slots"
	"github.com/rabota-krsk/rabota-bot/internal/state"
)

// showSlotMenu renders the three delayed-publication slots: unlocked ones
// as buttons, filled ones with their datetime, plus a confirm button once
// at least one slot is filled.
func (f *Flow) showSlotMenu(ctx context.Context, session *state.Session) error {
	admin, err := f.isAdmin(ctx, session.UserID)
	if err != nil {
		return err
	}

	available, err := f.slots.Available(ctx, session.UserID, session.Draft.Type, admin)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}

	if err := f.fsm.Advance(ctx, session, state.StateChoosingDelayedSlot); err != nil {
		return err
	}

	menu := make(Menu, 0, slots.MaxSlots+2)
	for slot := 1; slot <= available; slot++ {
		label := fmt.Sprintf("Автопубликация %d", slot)
		if value, ok := session.DelayedSlots[slot]; ok {
			label = fmt.Sprintf("Автопубликация %d - %s", slot, value)
		}
		menu = append(menu, []Button{{
			Label:  label,
			Action: fmt.Sprintf("%s%d", ActionSlotPrefix, slot),
		}})
	}

	menu = append(menu, []Button{{Label: btnBack, Action: ActionReviewPublication}})
	if len(session.DelayedSlots) > 0 {
		menu = append(menu, []Button{{Label: btnPublish, Action: ActionConfirmDelayed}})
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgChooseSlot, menu)
}

// chooseSlot remembers which slot is being edited and asks for a datetime.
func (f *Flow) chooseSlot(ctx context.Context, session *state.Session, raw string) error {
	slot, err := parseIndex(raw)
	if err != nil || slot < 1 || slot > slots.MaxSlots {
		return apperrors.NewStateError(fmt.Sprintf("bad slot %q", raw))
	}

	session.CurrentSlot = slot

	if err := f.fsm.Advance(ctx, session, state.StateEnteringDelayedDateTime); err != nil {
		return err
	}

	menu := Menu{}
	if _, filled := session.DelayedSlots[slot]; filled {
		menu = append(menu, []Button{{
			Label:  btnRemoveSlot,
			Action: fmt.Sprintf("%s%d", ActionRemoveSlotPrefix, slot),
		}})
	}
	menu = append(menu, []Button{{Label: btnBack, Action: ActionDelayedPublication}})

	return f.msgr.SendMenu(ctx, session.UserID, msgEnterSlotDateTime, menu)
}

// handleSlotDateTime validates the answer and stores it in the slot being
// edited, then returns to the slot menu.
func (f *Flow) handleSlotDateTime(ctx context.Context, session *state.Session, text string) error {
	if _, err := ValidateDateTime(text, f.loc, f.now()); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return f.msgr.SendMenu(ctx, session.UserID, appErr.UserMessage, Menu{
				{{Label: btnRetryInput, Action: ActionRetryDateTime}},
				{{Label: btnCancelDated, Action: ActionDelayedPublication}},
			})
		}
		return err
	}

	admin, err := f.isAdmin(ctx, session.UserID)
	if err != nil {
		return err
	}

	slot := session.CurrentSlot
	if slot == 0 {
		slot = 1
	}

	if err := f.slots.Fill(ctx, session, slot, text, admin); err != nil {
		if errors.Is(err, slots.ErrSlotLocked) {
			return f.msgr.SendMenu(ctx, session.UserID,
				"Этот слот недоступен при вашем балансе. Пополните баланс в магазине",
				Menu{{{Label: btnShop, Action: ActionMenuShop}}},
			)
		}
		return err
	}

	return f.showSlotMenu(ctx, session)
}

// retrySlotDateTime re-prompts for the slot being edited after a rejected
// answer.
func (f *Flow) retrySlotDateTime(ctx context.Context, session *state.Session) error {
	if err := f.fsm.Advance(ctx, session, state.StateEnteringDelayedDateTime); err != nil {
		return err
	}

	slot := session.CurrentSlot
	if slot == 0 {
		slot = 1
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgEnterSlotDateTime, Menu{
		{{Label: btnBack, Action: ActionDelayedPublication}},
		{{Label: btnRemoveSlot, Action: fmt.Sprintf("%s%d", ActionRemoveSlotPrefix, slot)}},
	})
}

// removeSlot empties one slot and returns to the slot menu.
func (f *Flow) removeSlot(ctx context.Context, session *state.Session, raw string) error {
	slot, err := parseIndex(raw)
	if err != nil {
		return apperrors.NewStateError(fmt.Sprintf("bad slot %q", raw))
	}

	if err := f.slots.Clear(session, slot); err != nil {
		return apperrors.NewStateError(err.Error())
	}

	return f.showSlotMenu(ctx, session)
}

// confirmDelayed debits the slot tariff and registers a one-shot job per
// filled slot.
func (f *Flow) confirmDelayed(ctx context.Context, session *state.Session) error {
	if len(session.DelayedSlots) == 0 {
		return f.msgr.SendMenu(ctx, session.UserID, msgNoSlotsFilled, Menu{
			{{Label: btnBack, Action: ActionDelayedPublication}},
		})
	}

	if err := f.fsm.Advance(ctx, session, state.StateConfirmingDelayedPublication); err != nil {
		return err
	}

	admin, err := f.isAdmin(ctx, session.UserID)
	if err != nil {
		return err
	}

	cost := f.slots.Cost(session)

	if _, err := f.slots.Confirm(ctx, session, admin); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return f.msgr.SendMenu(ctx, session.UserID,
				fmt.Sprintf("❌ Недостаточно средств. Требуется: %d рублей", cost.Rubles()),
				Menu{{{Label: btnTopUp, Action: ActionMenuShop}}},
			)
		}
		return apperrors.NewSchedulerError(err)
	}

	slotNumbers := make([]int, 0, len(session.DelayedSlots))
	for slot := range session.DelayedSlots {
		slotNumbers = append(slotNumbers, slot)
	}
	sort.Ints(slotNumbers)

	schedule := ""
	for _, slot := range slotNumbers {
		schedule += fmt.Sprintf("%d) %s\n", slot, session.DelayedSlots[slot])
	}

	subject := "объявление"
	verb := "опубликовано"
	if session.Draft.Type == domain.TypeAdvertisement {
		subject = "реклама"
		verb = "опубликована"
	}

	if err := f.fsm.ClearSession(ctx, session.UserID); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID,
		fmt.Sprintf("✅ Ваша %s будет %s:\n%s", subject, verb, schedule),
		homeMenu(),
	)
}
