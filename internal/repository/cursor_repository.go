package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mkasajim/realtime-gmail-monitor/interfaces"
	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
	"github.com/mkasajim/realtime-gmail-monitor/internal/tracing"
)

// cursorRepository persists per-account cursors as one small text record:
// "historyId" (legacy) or "historyId,messageId". Records are keyed by the
// account's cursor file path.
type cursorRepository struct{}

func NewCursorRepository() interfaces.CursorRepository {
	return &cursorRepository{}
}

// Load reads the cursor record for an account. Missing or unreadable records
// are treated as a first run for the account, not as an error.
func (r *cursorRepository) Load(ctx context.Context, account *models.Account) (models.CursorState, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "cursorRepository.Load")
	defer span.Finish()
	tracing.TagComponentCursorRepository(span)
	span.SetTag("cursor.file", account.CursorFile)

	content, err := os.ReadFile(account.CursorFile)
	if err != nil {
		if !os.IsNotExist(err) {
			tracing.TraceErr(span, err)
		}
		span.SetTag("found", false)
		return models.CursorState{}, nil
	}

	record := strings.TrimSpace(string(content))
	if record == "" {
		span.SetTag("found", false)
		return models.CursorState{}, nil
	}

	state := models.CursorState{}
	if historyId, messageId, hasMessageId := strings.Cut(record, ","); hasMessageId {
		state.LastHistoryId = strings.TrimSpace(historyId)
		state.LastSeenMessageId = strings.TrimSpace(messageId)
	} else {
		// legacy one-field format
		state.LastHistoryId = record
	}

	span.SetTag("found", true)
	return state, nil
}

// Commit atomically replaces the cursor record. A partially written record is
// never observable: the new content lands in a temp file first and is renamed
// over the old one.
func (r *cursorRepository) Commit(ctx context.Context, account *models.Account, state models.CursorState) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "cursorRepository.Commit")
	defer span.Finish()
	tracing.TagComponentCursorRepository(span)
	span.SetTag("cursor.file", account.CursorFile)
	span.SetTag("history.id", state.LastHistoryId)

	record := state.LastHistoryId
	if state.LastSeenMessageId != "" {
		record = state.LastHistoryId + "," + state.LastSeenMessageId
	}

	dir := filepath.Dir(account.CursorFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to create cursor directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(account.CursorFile)+".*")
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to create temp cursor file")
	}

	if _, err := tmp.WriteString(record); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to write cursor record")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to close temp cursor file")
	}

	if err := os.Rename(tmp.Name(), account.CursorFile); err != nil {
		os.Remove(tmp.Name())
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to replace cursor file")
	}

	return nil
}
