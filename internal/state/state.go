package state

import (
	"time"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

// State represents a finite-state machine state of the composition dialog.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next user command.
	StateIdle State = "idle"

	// Draft collection pipeline.
	StateChoosingFirmType       State = "choosing_firm_type"
	StateEnteringFirmName       State = "entering_firm_name"
	StateEnteringAdText         State = "entering_ad_text"
	StateEnteringJobTitle       State = "entering_job_title"
	StateEnteringWorkerCount    State = "entering_worker_count"
	StateEnteringWorkPeriod     State = "entering_work_period"
	StateEnteringWorkConditions State = "entering_work_conditions"
	StateEnteringRequirements   State = "entering_requirements"
	StateEnteringSalary         State = "entering_salary"
	StateEnteringContacts       State = "entering_contacts"
	StateReviewingPost          State = "reviewing_post"

	// Autoposting sub-flow.
	StateChoosingAutopostFrequency State = "choosing_autopost_frequency"
	StateChoosingWeekday           State = "choosing_weekday"
	StateEnteringTime              State = "entering_time"
	StateEnteringRepetitions       State = "entering_repetitions"

	// Delayed-publication sub-flow.
	StateChoosingDelayedSlot          State = "choosing_delayed_slot"
	StateEnteringDelayedDateTime      State = "entering_delayed_datetime"
	StateConfirmingDelayedPublication State = "confirming_delayed_publication"

	// Top-up shop sub-flow.
	StateEnteringPaymentAmount State = "entering_payment_amount"
	StateConfirmingPayment     State = "confirming_payment"

	// Admin stop-word entry.
	StateWaitingStopWords State = "waiting_stop_words"

	// StateError indicates that the dialog is in an error state and requires recovery.
	StateError State = "error"
)

// AutopostPlan accumulates the recurring-publication parameters entered
// during the autoposting sub-flow. Fields stay filled across back
// transitions until explicitly re-entered.
type AutopostPlan struct {
	Frequency   domain.TriggerKind `json:"frequency,omitempty"`
	Weekday     *time.Weekday      `json:"weekday,omitempty"`
	TimeOfDay   string             `json:"time_of_day,omitempty"`
	Repetitions int                `json:"repetitions,omitempty"`
	Cost        domain.Kopecks     `json:"cost,omitempty"`
}

// Session captures one user's dialog state and in-progress draft. There is
// at most one live session per user; it is cleared on publish, schedule or
// cancel.
type Session struct {
	UserID       int64          `json:"user_id"`
	CurrentState State          `json:"current_state"`
	Draft        domain.Draft   `json:"draft"`
	Autopost     AutopostPlan   `json:"autopost"`
	DelayedSlots map[int]string `json:"delayed_slots,omitempty"`
	CurrentSlot  int            `json:"current_slot,omitempty"`
	ShopService  string         `json:"shop_service,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewSession starts a fresh composition dialog for the user.
func NewSession(userID int64) *Session {
	return &Session{
		UserID:       userID,
		CurrentState: StateIdle,
	}
}

// ResetDraft discards everything entered so far except the chosen
// publication type. Used by the "back to start" transition and the
// stop-word penalty.
func (s *Session) ResetDraft() {
	pubType := s.Draft.Type
	s.Draft = domain.Draft{Type: pubType}
	s.Autopost = AutopostPlan{}
	s.DelayedSlots = nil
	s.CurrentSlot = 0
}

// SetSlot fills one delayed-publication slot with a datetime string.
func (s *Session) SetSlot(slot int, value string) {
	if s.DelayedSlots == nil {
		s.DelayedSlots = make(map[int]string, 3)
	}
	s.DelayedSlots[slot] = value
}

// ClearSlot removes one delayed-publication slot; other slots are kept.
func (s *Session) ClearSlot(slot int) {
	delete(s.DelayedSlots, slot)
}
