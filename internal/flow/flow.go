package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	apperrors "github.com/rabota-krsk/rabota-bot/internal/errors"
	"github.com/rabota-krsk/rabota-bot/internal/filter"
	"github.com/rabota-krsk/rabota-bot/internal/ledger"
	"github.com/rabota-krsk/rabota-bot/internal/repository"
	"github.com/rabota-krsk/rabota-bot/internal/slots"
	"github.com/rabota-krsk/rabota-bot/internal/state"
)

// Scheduler registers future publication jobs on behalf of the dialog.
type Scheduler interface {
	ScheduleOnce(ctx context.Context, userID int64, pubType domain.PublicationType, text string, runAt time.Time) (string, error)
	ScheduleRecurring(
		ctx context.Context,
		userID int64,
		pubType domain.PublicationType,
		text string,
		trigger domain.TriggerKind,
		weekday *time.Weekday,
		timeOfDay string,
		repetitions int,
	) (string, error)
}

// Deps bundles everything the dialog needs. All fields are required except
// Location, which defaults to time.Local.
type Deps struct {
	FSM          state.Machine
	Ledger       ledger.Ledger
	Filter       *filter.Filter
	Slots        *slots.Manager
	Scheduler    Scheduler
	Users        repository.UserRepository
	Publications repository.PublicationRepository
	Payments     repository.PaymentRepository
	Feed         FeedPublisher
	Messenger    Messenger
	Gateway      PaymentGateway
	Location     *time.Location
	Log          *slog.Logger
}

// Flow drives the whole user dialog: draft collection, review, payment and
// the three publication modes. One Flow serves all users; per-user state
// lives in the session store.
type Flow struct {
	fsm       state.Machine
	ledger    ledger.Ledger
	filter    *filter.Filter
	slots     *slots.Manager
	scheduler Scheduler
	users     repository.UserRepository
	pubs      repository.PublicationRepository
	payments  repository.PaymentRepository
	feed      FeedPublisher
	msgr      Messenger
	gateway   PaymentGateway
	loc       *time.Location
	log       *slog.Logger
	now       func() time.Time
}

// New assembles a Flow from its dependencies.
func New(d Deps) *Flow {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}

	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	return &Flow{
		fsm:       d.FSM,
		ledger:    d.Ledger,
		filter:    d.Filter,
		slots:     d.Slots,
		scheduler: d.Scheduler,
		users:     d.Users,
		pubs:      d.Publications,
		payments:  d.Payments,
		feed:      d.Feed,
		msgr:      d.Messenger,
		gateway:   d.Gateway,
		loc:       loc,
		log:       log,
		now:       func() time.Time { return time.Now().In(loc) },
	}
}

// Start handles /start: registers the user on first contact and shows the
// welcome screen, or the admin panel for administrators.
func (f *Flow) Start(ctx context.Context, u *domain.User) error {
	existing, err := f.users.FindByTelegramID(ctx, u.TelegramID)
	switch {
	case err == nil:
		u = existing
	case errors.Is(err, repository.ErrNotFound):
		if err := f.users.Create(ctx, u); err != nil {
			return apperrors.NewDatabaseError(err)
		}
	default:
		return apperrors.NewDatabaseError(err)
	}

	if u.IsAdmin {
		return f.msgr.SendMenu(ctx, u.TelegramID, msgWelcomeAdmin, adminMenu())
	}

	return f.msgr.SendMenu(ctx, u.TelegramID, msgWelcomeUser, Menu{
		{{Label: btnCreatePost, Action: ActionMainMenu}},
	})
}

// Cancel handles /cancel: drops any in-progress dialog and returns the
// user to the main menu.
func (f *Flow) Cancel(ctx context.Context, userID int64) error {
	return f.fsm.WithLock(ctx, userID, func(ctx context.Context) error {
		if err := f.fsm.ClearSession(ctx, userID); err != nil {
			return err
		}

		return f.msgr.SendMenu(ctx, userID, msgChooseAction, mainMenu())
	})
}

// HandleText routes a free-text message by the session's current state.
// The whole load-mutate-persist cycle runs under the user's dialog lock.
func (f *Flow) HandleText(ctx context.Context, userID int64, text string) error {
	return f.fsm.WithLock(ctx, userID, func(ctx context.Context) error {
		session, err := f.session(ctx, userID)
		if err != nil {
			return err
		}

		switch session.CurrentState {
		case state.StateEnteringFirmName:
			return f.handleFirmName(ctx, session, text)
		case state.StateEnteringAdText:
			return f.handleAdText(ctx, session, text)
		case state.StateEnteringJobTitle:
			return f.handleJobTitle(ctx, session, text)
		case state.StateEnteringWorkerCount:
			return f.handleWorkerCount(ctx, session, text)
		case state.StateEnteringWorkPeriod:
			return f.handleWorkPeriod(ctx, session, text)
		case state.StateEnteringWorkConditions:
			return f.handleWorkConditions(ctx, session, text)
		case state.StateEnteringRequirements:
			return f.handleRequirements(ctx, session, text)
		case state.StateEnteringSalary:
			return f.handleSalary(ctx, session, text)
		case state.StateEnteringContacts:
			return f.handleContacts(ctx, session, text)
		case state.StateEnteringTime:
			return f.handleTimeInput(ctx, session, text)
		case state.StateEnteringRepetitions:
			return f.handleRepetitions(ctx, session, text)
		case state.StateEnteringDelayedDateTime:
			return f.handleSlotDateTime(ctx, session, text)
		case state.StateEnteringPaymentAmount:
			return f.handlePaymentAmount(ctx, session, text)
		case state.StateWaitingStopWords:
			return f.handleStopWordsInput(ctx, session, text)
		default:
			return f.msgr.SendMenu(ctx, userID, msgChooseAction, mainMenu())
		}
	})
}

// HandleContact treats a shared phone number as the contacts answer.
func (f *Flow) HandleContact(ctx context.Context, userID int64, phone string) error {
	return f.fsm.WithLock(ctx, userID, func(ctx context.Context) error {
		session, err := f.session(ctx, userID)
		if err != nil {
			return err
		}

		if session.CurrentState != state.StateEnteringContacts {
			return f.msgr.SendMenu(ctx, userID, msgChooseAction, mainMenu())
		}

		return f.handleContacts(ctx, session, phone)
	})
}

// HandleAction routes an inline-button callback.
func (f *Flow) HandleAction(ctx context.Context, userID int64, action string) error {
	return f.fsm.WithLock(ctx, userID, func(ctx context.Context) error {
		return f.handleAction(ctx, userID, action)
	})
}

func (f *Flow) handleAction(ctx context.Context, userID int64, action string) error {
	session, err := f.session(ctx, userID)
	if err != nil {
		return err
	}

	switch action {
	case ActionMainMenu:
		return f.showMainMenu(ctx, session)
	case ActionInfoAccepted:
		return f.msgr.SendMenu(ctx, userID, msgChooseAction, mainMenu())
	case ActionMenuAds:
		return f.startAdvertisement(ctx, session)
	case ActionMenuJobs:
		return f.startJobPosting(ctx, session)
	case ActionMenuBalance:
		return f.showBalance(ctx, session)
	case ActionMenuShop:
		return f.showShop(ctx, session)
	case ActionJobSearchEmployee:
		return f.chooseFirmType(ctx, session, domain.TypeJobOffer)
	case ActionJobSearchWork:
		return f.chooseFirmType(ctx, session, domain.TypeJobSearch)
	case ActionBackToFirmType:
		return f.backToFirmType(ctx, session)
	case ActionReviewPublication:
		return f.showPublicationOptions(ctx, session)
	case ActionPublishImmediately:
		return f.publishImmediately(ctx, session)
	case ActionAutoPosting:
		return f.startAutopost(ctx, session)
	case ActionFrequencyDaily:
		return f.chooseFrequency(ctx, session, domain.TriggerDaily)
	case ActionFrequencyWeekly:
		return f.chooseFrequency(ctx, session, domain.TriggerWeekly)
	case ActionBackToTimeInput:
		return f.askForTime(ctx, session)
	case ActionBackToRepetitions:
		return f.askForRepetitions(ctx, session)
	case ActionDelayedPublication:
		return f.showSlotMenu(ctx, session)
	case ActionRetryDateTime:
		return f.retrySlotDateTime(ctx, session)
	case ActionConfirmDelayed:
		return f.confirmDelayed(ctx, session)
	case ActionShopAds:
		return f.startTopUp(ctx, session, domain.TypeAdvertisement)
	case ActionShopJobs:
		return f.startTopUp(ctx, session, domain.TypeJobOffer)
	case ActionAdminStopWordsList:
		return f.adminListStopWords(ctx, session)
	case ActionAdminStopWordsAdd:
		return f.adminAskStopWords(ctx, session)
	case ActionAdminStopWordsClear:
		return f.adminClearStopWords(ctx, session)
	case ActionAdminCreatePub:
		return f.adminCreatePublication(ctx, session)
	case ActionAdminBack, ActionAdminCancel:
		return f.adminBackToPanel(ctx, session)
	}

	switch {
	case strings.HasPrefix(action, ActionFirmTypePrefix):
		return f.handleFirmType(ctx, session, strings.TrimPrefix(action, ActionFirmTypePrefix))
	case strings.HasPrefix(action, ActionWeekdayPrefix):
		return f.handleWeekday(ctx, session, strings.TrimPrefix(action, ActionWeekdayPrefix))
	case strings.HasPrefix(action, ActionRemoveSlotPrefix):
		return f.removeSlot(ctx, session, strings.TrimPrefix(action, ActionRemoveSlotPrefix))
	case strings.HasPrefix(action, ActionSlotPrefix):
		return f.chooseSlot(ctx, session, strings.TrimPrefix(action, ActionSlotPrefix))
	case strings.HasPrefix(action, ActionPayPrefix):
		return f.initiatePayment(ctx, session, strings.TrimPrefix(action, ActionPayPrefix))
	}

	f.log.Warn("unknown callback action", "user_id", userID, "action", action)
	return f.msgr.SendMenu(ctx, userID, msgChooseAction, mainMenu())
}

func (f *Flow) showMainMenu(ctx context.Context, session *state.Session) error {
	// Leaving a sub-flow through the home button abandons the draft.
	if session.CurrentState != state.StateIdle {
		if err := f.fsm.ClearSession(ctx, session.UserID); err != nil {
			return err
		}
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgChooseAction, mainMenu())
}

// session loads the stored session or starts a fresh idle one.
func (f *Flow) session(ctx context.Context, userID int64) (*state.Session, error) {
	session, err := f.fsm.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, state.ErrSessionNotFound) {
			return state.NewSession(userID), nil
		}
		return nil, err
	}

	return session, nil
}

// isAdmin reports whether the user record carries the admin flag. Unknown
// users are not admins.
func (f *Flow) isAdmin(ctx context.Context, userID int64) (bool, error) {
	u, err := f.users.FindByTelegramID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, apperrors.NewDatabaseError(err)
	}

	return u.IsAdmin, nil
}

func parseIndex(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("bad numeric suffix %q: %w", raw, err)
	}
	return n, nil
}
