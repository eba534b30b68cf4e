package flow

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

func scheduledJob(userID int64) *domain.ScheduledJob {
	runAt := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	return &domain.ScheduledJob{
		JobID:   "single_1_1",
		UserID:  userID,
		Type:    domain.TypeAdvertisement,
		Text:    "Грузоперевозки по городу",
		Trigger: domain.TriggerOnce,
		RunAt:   &runAt,
		Active:  true,
	}
}

func TestScheduledPublisher_NotifiesOwnerOnPublish(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pubs := newMemPublications()
	feed := &fakeFeed{}
	messenger := &fakeMessenger{}

	p := NewScheduledPublisher(pubs, feed, messenger, log)
	p.now = func() time.Time { return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, p.PublishScheduled(context.Background(), scheduledJob(5)))

	require.Len(t, feed.published, 1)

	stored, err := pubs.FindByUser(context.Background(), 5, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.StatusPublished, stored[0].Status)

	// the owner hears about the firing
	notice := messenger.last(t)
	assert.Equal(t, int64(5), notice.UserID)
	assert.Contains(t, notice.Text, "✅")
	assert.Contains(t, notice.Text, "опубликовано 01.06.2026 в 10:00")
}

func TestScheduledPublisher_NotifiesOwnerOnFailure(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pubs := newMemPublications()
	feed := &fakeFeed{err: assert.AnError}
	messenger := &fakeMessenger{}

	p := NewScheduledPublisher(pubs, feed, messenger, log)

	err := p.PublishScheduled(context.Background(), scheduledJob(5))
	require.Error(t, err)

	stored, findErr := pubs.FindByUser(context.Background(), 5, 10)
	require.NoError(t, findErr)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.StatusFailed, stored[0].Status)

	notice := messenger.last(t)
	assert.Equal(t, int64(5), notice.UserID)
	assert.Contains(t, notice.Text, "❌ Ошибка при публикации")
}
