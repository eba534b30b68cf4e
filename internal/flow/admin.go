package flow

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/rabota-krsk/rabota-bot/internal/errors"
	"github.com/rabota-krsk/rabota-bot/internal/state"
)

// requireAdmin guards the stop-word panel. Regular users get the main menu
// instead of an error.
func (f *Flow) requireAdmin(ctx context.Context, userID int64) (bool, error) {
	admin, err := f.isAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if !admin {
		f.log.Warn("non-admin attempted admin action", "user_id", userID)
		return false, f.msgr.SendMenu(ctx, userID, msgChooseAction, mainMenu())
	}

	return true, nil
}

func (f *Flow) adminListStopWords(ctx context.Context, session *state.Session) error {
	ok, err := f.requireAdmin(ctx, session.UserID)
	if err != nil || !ok {
		return err
	}

	words := f.filter.Words()

	text := msgStopWordsEmpty
	if len(words) > 0 {
		var b strings.Builder
		b.WriteString("📝 Список стоп-слов:\n\n")
		for _, word := range words {
			fmt.Fprintf(&b, "• %s\n", word)
		}
		text = strings.TrimRight(b.String(), "\n")
	}

	return f.msgr.SendMenu(ctx, session.UserID, text, Menu{
		{{Label: btnBack, Action: ActionAdminBack}},
	})
}

func (f *Flow) adminAskStopWords(ctx context.Context, session *state.Session) error {
	ok, err := f.requireAdmin(ctx, session.UserID)
	if err != nil || !ok {
		return err
	}

	if err := f.fsm.Advance(ctx, session, state.StateWaitingStopWords); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgStopWordsPrompt, Menu{
		{{Label: "❌ Отмена", Action: ActionAdminCancel}},
	})
}

// handleStopWordsInput parses a comma-separated answer, stores the new
// words and reloads the filter snapshot.
func (f *Flow) handleStopWordsInput(ctx context.Context, session *state.Session, text string) error {
	ok, err := f.requireAdmin(ctx, session.UserID)
	if err != nil || !ok {
		return err
	}

	raw := strings.Split(text, ",")

	added, skipped, err := f.filter.AddWords(ctx, raw)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}

	var response string
	switch {
	case len(added) > 0:
		response = fmt.Sprintf("✅ Стоп-слова добавлены: %s", strings.Join(added, ", "))
		if len(skipped) > 0 {
			response += fmt.Sprintf("\nПропущены: %s", strings.Join(skipped, ", "))
		}
	default:
		response = "❌ Не удалось распознать стоп-слова"
	}

	if err := f.fsm.Advance(ctx, session, state.StateIdle); err != nil {
		return err
	}

	if err := f.msgr.Send(ctx, session.UserID, response); err != nil {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgWelcomeAdmin, adminMenu())
}

func (f *Flow) adminClearStopWords(ctx context.Context, session *state.Session) error {
	ok, err := f.requireAdmin(ctx, session.UserID)
	if err != nil || !ok {
		return err
	}

	if err := f.filter.Clear(ctx); err != nil {
		return apperrors.NewDatabaseError(err)
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgStopWordsWiped, Menu{
		{{Label: btnBack, Action: ActionAdminBack}},
	})
}

// adminCreatePublication drops the admin into the regular user menu; the
// pipelines themselves skip balance checks for admins.
func (f *Flow) adminCreatePublication(ctx context.Context, session *state.Session) error {
	ok, err := f.requireAdmin(ctx, session.UserID)
	if err != nil || !ok {
		return err
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgChooseAction, mainMenu())
}

func (f *Flow) adminBackToPanel(ctx context.Context, session *state.Session) error {
	ok, err := f.requireAdmin(ctx, session.UserID)
	if err != nil || !ok {
		return err
	}

	if session.CurrentState != state.StateIdle {
		if err := f.fsm.Advance(ctx, session, state.StateIdle); err != nil {
			return err
		}
	}

	return f.msgr.SendMenu(ctx, session.UserID, msgWelcomeAdmin, adminMenu())
}
