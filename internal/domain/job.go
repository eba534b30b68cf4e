package domain

import "time"

// TriggerKind tells the scheduler how a job fires.
type TriggerKind string

const (
	TriggerOnce   TriggerKind = "once"
	TriggerDaily  TriggerKind = "daily"
	TriggerWeekly TriggerKind = "weekly"
)

// ScheduledJob is the persisted record of one unit of future publication
// work. One-shot jobs carry RunAt; recurring jobs carry TimeOfDay (HH:MM),
// an optional Weekday and the Horizon past which they stop firing.
type ScheduledJob struct {
	JobID     string
	UserID    int64
	Type      PublicationType
	Text      string
	Trigger   TriggerKind
	RunAt     *time.Time
	TimeOfDay string
	Weekday   *time.Weekday
	Horizon   *time.Time
	Active    bool
	CreatedAt time.Time
}

// StopWord is a moderator-maintained blocked token.
type StopWord struct {
	ID        int64
	Word      string
	AddedBy   int64
	CreatedAt time.Time
}

// PaymentStatus values for top-up payments.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records one balance top-up attempt through the payment provider.
type Payment struct {
	ID            int64
	UserID        int64
	Amount        Kopecks
	Status        PaymentStatus
	Method        string
	TransactionID string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}
