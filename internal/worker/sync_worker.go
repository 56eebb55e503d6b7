package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/log"
	"wealthtrack/internal/services"
	"wealthtrack/internal/sheets"
)

// SyncWorker reacts to record-change events: it drops the user's cached
// aggregates and refreshes the spreadsheet mirror.
type SyncWorker struct {
	records    services.RecordLoader
	aggregates *services.Aggregates
	mirror     sheets.Mirror
	logger     *log.Logger
}

// NewSyncWorker builds a worker. mirror may be nil when spreadsheet
// mirroring is disabled.
func NewSyncWorker(records services.RecordLoader, aggregates *services.Aggregates, mirror sheets.Mirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		records:    records,
		aggregates: aggregates,
		mirror:     mirror,
		logger:     logger.WithComponent(log.ComponentWorker),
	}
}

// HandleRecordChanged processes a single record-change message from AMQP.
// A returned error makes the consumer requeue the message.
func (w *SyncWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing record change",
		log.FieldUserID, msg.UserID.String(),
		log.FieldRecordKind, string(msg.Kind),
		log.FieldRecordID, msg.RecordID.String(),
		log.FieldOperation, string(msg.Op))

	w.aggregates.Invalidate(ctx, msg.UserID)

	if w.mirror == nil {
		w.logger.DebugContext(ctx, "No mirror configured, skipping spreadsheet sync",
			log.FieldUserID, msg.UserID.String())
		return nil
	}
	return w.SyncUser(ctx, msg.UserID)
}

// SyncUser mirrors the full current snapshot of a user's records. Mirroring
// the whole snapshot makes redelivered or out-of-order events harmless.
func (w *SyncWorker) SyncUser(ctx context.Context, userID uuid.UUID) error {
	exps, err := w.records.AllExpenses(ctx, userID)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	invs, err := w.records.AllInvestments(ctx, userID)
	if err != nil {
		return fmt.Errorf("load investments: %w", err)
	}

	if err := w.mirror.MirrorUser(ctx, userID, exps, invs); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror user records",
			log.FieldUserID, userID.String(),
			log.FieldError, err.Error())
		return fmt.Errorf("mirror user records: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully synced user records",
		log.FieldUserID, userID.String(),
		"expenses", len(exps),
		"investments", len(invs))
	return nil
}
