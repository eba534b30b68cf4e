package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	"github.com/rabota-krsk/rabota-bot/internal/repository"
	"github.com/rabota-krsk/rabota-bot/pkg/metrics"
)

// ScheduledPublisher posts fired scheduler jobs to the feed, keeps the
// publication history and tells the owner how the firing went. It
// implements scheduler.Publisher.
type ScheduledPublisher struct {
	pubs repository.PublicationRepository
	feed FeedPublisher
	msgr Messenger
	log  *slog.Logger
	now  func() time.Time
}

// NewScheduledPublisher wires the feed, the publication history and the
// owner notifications for scheduler-driven posts.
func NewScheduledPublisher(pubs repository.PublicationRepository, feed FeedPublisher, msgr Messenger, log *slog.Logger) *ScheduledPublisher {
	if log == nil {
		log = slog.Default()
	}

	return &ScheduledPublisher{
		pubs: pubs,
		feed: feed,
		msgr: msgr,
		log:  log,
		now:  time.Now,
	}
}

// PublishScheduled records and posts one fired job. The owner is told about
// every firing, success or failure; delivery problems are logged, never
// propagated. The job's price was paid at scheduling time, so the stored
// cost is zero.
func (p *ScheduledPublisher) PublishScheduled(ctx context.Context, job *domain.ScheduledJob) error {
	pub := &domain.Publication{
		UserID: job.UserID,
		Type:   job.Type,
		Text:   job.Text,
		Status: domain.StatusScheduled,
	}
	if err := p.pubs.Create(ctx, pub); err != nil {
		return fmt.Errorf("record scheduled publication: %w", err)
	}

	messageID, err := p.feed.Publish(ctx, job.Type, job.Text)
	if err != nil {
		metrics.RecordPublication(string(job.Type), string(domain.StatusFailed))
		if markErr := p.pubs.MarkFailed(ctx, pub.ID); markErr != nil {
			p.log.Error("failed to mark scheduled publication failed",
				"publication_id", pub.ID, "error", markErr)
		}

		p.notify(ctx, job, fmt.Sprintf(
			"❌ Ошибка при публикации вашего %s. Обратитесь в поддержку", genitive(job.Type)))

		return fmt.Errorf("publish scheduled job %s: %w", job.JobID, err)
	}

	if err := p.pubs.MarkPublished(ctx, pub.ID, messageID, p.now()); err != nil {
		p.log.Error("failed to mark scheduled publication published",
			"publication_id", pub.ID, "error", err)
	}
	metrics.RecordPublication(string(job.Type), string(domain.StatusPublished))

	p.notify(ctx, job, fmt.Sprintf("✅ Ваше %s опубликовано %s",
		pubTypeNominative(job.Type), p.now().Format("02.01.2006 в 15:04")))

	return nil
}

func (p *ScheduledPublisher) notify(ctx context.Context, job *domain.ScheduledJob, text string) {
	if err := p.msgr.Send(ctx, job.UserID, text); err != nil {
		p.log.Warn("failed to deliver firing notice",
			"user_id", job.UserID, "job_id", job.JobID, "error", err)
	}
}
