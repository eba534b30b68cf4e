package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

// JobNotifier tells users about scheduler lifecycle events through the
// messenger. It implements scheduler.Notifier; delivery failures are
// logged, never propagated.
type JobNotifier struct {
	msgr Messenger
	log  *slog.Logger
}

// NewJobNotifier creates a notifier over the messenger port.
func NewJobNotifier(msgr Messenger, log *slog.Logger) *JobNotifier {
	if log == nil {
		log = slog.Default()
	}

	return &JobNotifier{msgr: msgr, log: log}
}

// NotifyJobFinished tells the owner a recurring job reached its horizon.
func (n *JobNotifier) NotifyJobFinished(ctx context.Context, userID int64, job *domain.ScheduledJob) {
	text := fmt.Sprintf("✅ Автопостинг вашего %s завершен", genitive(job.Type))

	if err := n.msgr.Send(ctx, userID, text); err != nil {
		n.log.Warn("failed to deliver job-finished notice",
			"user_id", userID, "job_id", job.JobID, "error", err)
	}
}

// NotifyJobStale tells the owner a one-shot publication was missed while
// the bot was down and will not be posted.
func (n *JobNotifier) NotifyJobStale(ctx context.Context, userID int64, job *domain.ScheduledJob) {
	when := ""
	if job.RunAt != nil {
		when = job.RunAt.Format("02.01.2006 15:04")
	}

	text := fmt.Sprintf(
		"❌ Запланированная публикация вашего %s на %s не состоялась. Обратитесь в поддержку",
		genitive(job.Type), when)

	if err := n.msgr.Send(ctx, userID, text); err != nil {
		n.log.Warn("failed to deliver stale-job notice",
			"user_id", userID, "job_id", job.JobID, "error", err)
	}
}

func genitive(t domain.PublicationType) string {
	if t.IsJob() {
		return "объявления о работе"
	}
	return "рекламного объявления"
}
