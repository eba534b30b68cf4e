package state

// validTransitions contains the permitted forward and back transitions of
// the composition pipeline. Transitions to StateIdle, StateError,
// StateChoosingFirmType ("back to start") and StateEnteringPaymentAmount
// (the shop is offered from any step on insufficient funds) are always
// allowed and are not listed here.
var validTransitions = map[State][]State{
	StateIdle: {
		StateWaitingStopWords,
	},
	StateChoosingFirmType: {
		StateEnteringFirmName,
	},
	StateEnteringFirmName: {
		StateEnteringAdText,
		StateEnteringJobTitle,
	},
	StateEnteringAdText: {
		StateEnteringContacts,
		StateEnteringFirmName,
	},
	StateEnteringJobTitle: {
		StateEnteringWorkerCount,
		StateEnteringFirmName,
	},
	StateEnteringWorkerCount: {
		StateEnteringWorkPeriod,
		StateEnteringJobTitle,
	},
	StateEnteringWorkPeriod: {
		StateEnteringWorkConditions,
		StateEnteringWorkerCount,
	},
	StateEnteringWorkConditions: {
		StateEnteringRequirements,
		StateEnteringWorkPeriod,
	},
	StateEnteringRequirements: {
		StateEnteringSalary,
		StateEnteringWorkConditions,
	},
	StateEnteringSalary: {
		StateEnteringContacts,
		StateEnteringRequirements,
	},
	StateEnteringContacts: {
		StateReviewingPost,
		StateEnteringSalary,
		StateEnteringAdText,
	},
	StateReviewingPost: {
		StateChoosingAutopostFrequency,
		StateChoosingDelayedSlot,
	},
	StateChoosingAutopostFrequency: {
		StateChoosingWeekday,
		StateEnteringTime,
		StateReviewingPost,
	},
	StateChoosingWeekday: {
		StateEnteringTime,
		StateChoosingAutopostFrequency,
	},
	StateEnteringTime: {
		StateEnteringRepetitions,
		StateChoosingAutopostFrequency,
		StateChoosingWeekday,
	},
	StateEnteringRepetitions: {
		StateEnteringTime,
	},
	StateChoosingDelayedSlot: {
		StateEnteringDelayedDateTime,
		StateConfirmingDelayedPublication,
		StateReviewingPost,
	},
	StateEnteringDelayedDateTime: {
		StateConfirmingDelayedPublication,
		StateChoosingDelayedSlot,
	},
	StateConfirmingDelayedPublication: {
		StateChoosingDelayedSlot,
	},
	StateEnteringPaymentAmount: {
		StateConfirmingPayment,
	},
	StateConfirmingPayment: {
		StateEnteringPaymentAmount,
	},
	StateWaitingStopWords: {},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateError || to == StateIdle || to == StateChoosingFirmType || to == StateEnteringPaymentAmount {
		return true
	}

	if from == to {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
