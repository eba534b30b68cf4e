package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	apperrors "github.com/rabota-krsk/rabota-bot/internal/errors"
	"github.com/rabota-krsk/rabota-bot/internal/ledger"
	"github.com/rabota-krsk/rabota-bot/internal/pricing"
	"github.com/rabota-krsk/rabota-bot/internal/state"
	"github.com/rabota-krsk/rabota-bot/pkg/metrics"
)

// startAdvertisement opens the advertisement pipeline. Users whose balance
// does not cover a single placement are sent to the shop instead; admins
// skip the gate.
func (f *Flow) startAdvertisement(ctx context.Context, session *state.Session) error {
	admin, err := f.isAdmin(ctx, session.UserID)
	if err != nil {
		return err
	}

	if !admin {
		ok, err := f.ledger.CanAfford(ctx, session.UserID, pricing.UnitPrice(domain.TypeAdvertisement))
		if err != nil {
			return apperrors.NewDatabaseError(err)
		}
		if !ok {
			return f.startTopUp(ctx, session, domain.TypeAdvertisement)
		}
	}

	return f.chooseFirmType(ctx, session, domain.TypeAdvertisement)
}

// startJobPosting opens the job pipeline behind the same kind of balance
// gate, then lets the user pick between hiring and seeking.
func (f *Flow) startJobPosting(ctx context.Context, session *state.Session) error {
	admin, err := f.isAdmin(ctx, session.UserID)
	if err != nil {
		return err
	}

	if !admin {
		ok, err := f.ledger.CanAfford(ctx, session.UserID, pricing.UnitPrice(domain.TypeJobOffer))
		if err != nil {
			return apperrors.NewDatabaseError(err)
		}
		if !ok {
			return f.startTopUp(ctx, session, domain.TypeJobOffer)
		}
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgChooseJobKind, jobKindMenu())
}

// chooseFirmType begins the draft: everything entered before is discarded
// and the publication type is fixed.
func (f *Flow) chooseFirmType(ctx context.Context, session *state.Session, pubType domain.PublicationType) error {
	session.ResetDraft()
	session.Draft.Type = pubType

	if err := f.fsm.Advance(ctx, session, state.StateChoosingFirmType); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgChooseFirmType, firmTypeMenu())
}

// backToFirmType restarts the draft keeping the chosen publication type.
func (f *Flow) backToFirmType(ctx context.Context, session *state.Session) error {
	pubType := session.Draft.Type
	if pubType == "" {
		pubType = domain.TypeAdvertisement
	}

	return f.chooseFirmType(ctx, session, pubType)
}

func (f *Flow) handleFirmType(ctx context.Context, session *state.Session, value string) error {
	firmType := domain.FirmType(value)
	switch firmType {
	case domain.FirmIP, domain.FirmPhysical, domain.FirmLegal:
	default:
		return apperrors.NewStateError(fmt.Sprintf("unknown firm type %q", value))
	}

	session.Draft.FirmType = firmType

	if err := f.fsm.Advance(ctx, session, state.StateEnteringFirmName); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgEnterFirmName, Menu{
		{{Label: btnBack, Action: ActionBackToFirmType}},
	})
}

func (f *Flow) handleFirmName(ctx context.Context, session *state.Session, text string) error {
	name, err := ValidateNonEmpty(text, "Введите название фирмы")
	if err != nil {
		return err
	}
	session.Draft.FirmName = name

	switch session.Draft.Type {
	case domain.TypeAdvertisement:
		if err := f.fsm.Advance(ctx, session, state.StateEnteringAdText); err != nil {
			return err
		}
		return f.msgr.SendMenu(ctx, session.UserID, msgEnterAdText, startOverMenu())

	case domain.TypeJobOffer:
		if err := f.fsm.Advance(ctx, session, state.StateEnteringJobTitle); err != nil {
			return err
		}
		return f.msgr.SendMenu(ctx, session.UserID, msgEnterJobTitleOffer, startOverMenu())

	default:
		if err := f.fsm.Advance(ctx, session, state.StateEnteringJobTitle); err != nil {
			return err
		}
		return f.msgr.SendMenu(ctx, session.UserID, msgEnterJobTitleSearch, startOverMenu())
	}
}

func (f *Flow) handleAdText(ctx context.Context, session *state.Session, text string) error {
	body, err := ValidateNonEmpty(text, "Введите текст объявления")
	if err != nil {
		return err
	}
	session.Draft.AdText = body

	if err := f.fsm.Advance(ctx, session, state.StateEnteringContacts); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgEnterContacts, startOverMenu())
}

func (f *Flow) handleJobTitle(ctx context.Context, session *state.Session, text string) error {
	title, err := ValidateNonEmpty(text, "Введите название вакансии")
	if err != nil {
		return err
	}
	session.Draft.JobTitle = title

	if session.Draft.Type == domain.TypeJobOffer {
		if err := f.fsm.Advance(ctx, session, state.StateEnteringWorkerCount); err != nil {
			return err
		}
		return f.msgr.SendMenu(ctx, session.UserID, msgEnterWorkerCount, startOverMenu())
	}

	if err := f.fsm.Advance(ctx, session, state.StateEnteringWorkPeriod); err != nil {
		return err
	}
	return f.msgr.SendMenu(ctx, session.UserID, msgEnterWorkPeriod, startOverMenu())
}

func (f *Flow) handleWorkerCount(ctx context.Context, session *state.Session, text string) error {
	count, err := ValidateWorkerCount(text)
	if err != nil {
		return err
	}
	session.Draft.WorkerCount = count

	if err := f.fsm.Advance(ctx, session, state.StateEnteringWorkPeriod); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgEnterWorkPeriodJob, startOverMenu())
}

func (f *Flow) handleWorkPeriod(ctx context.Context, session *state.Session, text string) error {
	period, err := ValidateNonEmpty(text, "Укажите период работы")
	if err != nil {
		return err
	}
	session.Draft.WorkPeriod = period

	if err := f.fsm.Advance(ctx, session, state.StateEnteringWorkConditions); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgEnterConditions, startOverMenu())
}

func (f *Flow) handleWorkConditions(ctx context.Context, session *state.Session, text string) error {
	conditions, err := ValidateNonEmpty(text, "Опишите условия работы")
	if err != nil {
		return err
	}
	session.Draft.WorkConditions = conditions

	if err := f.fsm.Advance(ctx, session, state.StateEnteringRequirements); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgEnterRequirements, startOverMenu())
}

func (f *Flow) handleRequirements(ctx context.Context, session *state.Session, text string) error {
	requirements, err := ValidateNonEmpty(text, "Опишите требования")
	if err != nil {
		return err
	}
	session.Draft.Requirements = requirements

	if err := f.fsm.Advance(ctx, session, state.StateEnteringSalary); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgEnterSalary, startOverMenu())
}

func (f *Flow) handleSalary(ctx context.Context, session *state.Session, text string) error {
	salary, err := ValidateNonEmpty(text, "Укажите размер зарплаты")
	if err != nil {
		return err
	}
	session.Draft.Salary = salary

	if err := f.fsm.Advance(ctx, session, state.StateEnteringContacts); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgEnterContacts, startOverMenu())
}

// handleContacts completes the draft and moves to review. The rendered text
// is checked against the stop-word list; a hit discards the draft.
func (f *Flow) handleContacts(ctx context.Context, session *state.Session, text string) error {
	contacts, err := ValidateNonEmpty(text, "Укажите контакты")
	if err != nil {
		return err
	}
	session.Draft.Contacts = contacts

	rendered := session.Draft.Render()

	if hits := f.filter.Check(rendered); len(hits) > 0 {
		metrics.RecordContentRejection()
		f.log.Info("draft rejected by stop-word filter",
			"user_id", session.UserID, "hits", strings.Join(hits, ","))

		session.ResetDraft()
		if err := f.fsm.Advance(ctx, session, state.StateIdle); err != nil {
			return err
		}

		if err := f.msgr.Send(ctx, session.UserID, msgStopWordsFound); err != nil {
			return err
		}
		return f.msgr.SendMenu(ctx, session.UserID,
			fmt.Sprintf("Постарайтесь избегать СТОП-СЛОВ: %s", strings.Join(hits, ", ")),
			Menu{{{Label: "Заполнить объявление заново", Action: ActionBackToFirmType}}},
		)
	}

	if err := f.fsm.Advance(ctx, session, state.StateReviewingPost); err != nil {
		return err
	}

	if err := f.msgr.Send(ctx, session.UserID, fmt.Sprintf("Предварительный просмотр:\n\n%s", rendered)); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgReviewPrompt, reviewMenu())
}

// showPublicationOptions offers the three publication modes for a reviewed
// draft.
func (f *Flow) showPublicationOptions(ctx context.Context, session *state.Session) error {
	if session.CurrentState != state.StateReviewingPost {
		if err := f.fsm.Advance(ctx, session, state.StateReviewingPost); err != nil {
			return err
		}
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgChooseAction, publicationOptionsMenu())
}

// publishImmediately debits one placement and posts the draft to the feed.
// Admins publish free. The debit is not refunded if the feed send fails.
func (f *Flow) publishImmediately(ctx context.Context, session *state.Session) error {
	admin, err := f.isAdmin(ctx, session.UserID)
	if err != nil {
		return err
	}

	cost := pricing.UnitPrice(session.Draft.Type)

	if !admin {
		if err := f.ledger.Debit(ctx, session.UserID, cost); err != nil {
			if errors.Is(err, ledger.ErrInsufficientFunds) {
				return f.msgr.SendMenu(ctx, session.UserID,
					fmt.Sprintf("Недостаточно средств. Требуется: %d рублей", cost.Rubles()),
					Menu{{{Label: btnTopUp, Action: ActionMenuShop}}},
				)
			}
			return apperrors.NewDatabaseError(err)
		}
	}

	rendered := session.Draft.Render()

	pub := &domain.Publication{
		UserID:   session.UserID,
		Type:     session.Draft.Type,
		FirmType: session.Draft.FirmType,
		FirmName: session.Draft.FirmName,
		Text:     rendered,
		Cost:     cost,
		Status:   domain.StatusDraft,
	}
	if err := f.pubs.Create(ctx, pub); err != nil {
		return apperrors.NewDatabaseError(err)
	}

	messageID, err := f.feed.Publish(ctx, session.Draft.Type, rendered)
	if err != nil {
		metrics.RecordPublication(string(session.Draft.Type), string(domain.StatusFailed))
		if markErr := f.pubs.MarkFailed(ctx, pub.ID); markErr != nil {
			f.log.Error("failed to mark publication failed", "publication_id", pub.ID, "error", markErr)
		}

		sendErr := f.msgr.SendMenu(ctx, session.UserID,
			apperrors.NewPublishFailureError(err).UserMessage, homeMenu())
		if sendErr != nil {
			return sendErr
		}
		return apperrors.NewPublishFailureError(err)
	}

	if err := f.pubs.MarkPublished(ctx, pub.ID, messageID, f.now()); err != nil {
		f.log.Error("failed to mark publication published", "publication_id", pub.ID, "error", err)
	}
	metrics.RecordPublication(string(session.Draft.Type), string(domain.StatusPublished))

	pubType := session.Draft.Type
	if err := f.fsm.ClearSession(ctx, session.UserID); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID,
		fmt.Sprintf("✅ Ваше %s опубликовано %s", pubTypeNominative(pubType), f.now().Format("02.01.2006 в 15:04")),
		homeMenu(),
	)
}
