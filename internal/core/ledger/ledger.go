package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitaegraph/vitae/internal/core/model"
	"github.com/vitaegraph/vitae/internal/logger"
	"github.com/vitaegraph/vitae/internal/store"
)

var (
	// ErrNotFound covers both missing rows and rows owned by another
	// user. Ownership violations must not be distinguishable.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned for a status change out of a
	// terminal state or into an unknown status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Ledger owns commit batches and conversation commits. Every mutation of
// a commit row and its batch counters runs in one transaction; the
// counters are recomputed incrementally, never drifted independently.
type Ledger struct {
	db      *sql.DB
	scoring *ScoringPolicy
	logger  *zap.Logger
}

func New(db *sql.DB, scoring *ScoringPolicy) *Ledger {
	return &Ledger{
		db:      db,
		scoring: scoring,
		logger:  logger.Get(),
	}
}

// Scoring exposes the confidence policy.
func (l *Ledger) Scoring() *ScoringPolicy {
	return l.scoring
}

// ValidateTransition checks the status state machine:
// pending -> {approved, rejected, committed}, approved -> {rejected,
// committed}; rejected and committed are terminal. pending -> committed
// is an explicit valid edge, automation uses it.
func ValidateTransition(from, to model.CommitStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if from == to {
		return nil
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	if to == model.StatusPending {
		return fmt.Errorf("%w: cannot return to pending", ErrInvalidTransition)
	}
	return nil
}

// counterColumn maps a status to its batch counter column. Statuses are
// validated before this is interpolated into SQL.
func counterColumn(s model.CommitStatus) string {
	switch s {
	case model.StatusPending:
		return "pending_commits"
	case model.StatusApproved:
		return "approved_commits"
	case model.StatusRejected:
		return "rejected_commits"
	default:
		return "committed_commits"
	}
}

// CreateBatch opens a new commit batch for a conversation.
func (l *Ledger) CreateBatch(ctx context.Context, userID, conversationID string) (*model.CommitBatch, error) {
	batch := &model.CommitBatch{
		ID:             uuid.New().String(),
		UserID:         userID,
		ConversationID: conversationID,
	}

	row := l.db.QueryRowContext(ctx, `
		INSERT INTO commit_batches (id, user_id, conversation_id)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, batch.ID, batch.UserID, batch.ConversationID)

	if err := row.Scan(&batch.CreatedAt, &batch.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert batch: %w", err)
	}
	return batch, nil
}

// GetBatch loads one batch scoped to its owner.
func (l *Ledger) GetBatch(ctx context.Context, userID, id string) (*model.CommitBatch, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, user_id, conversation_id, total_commits, pending_commits,
		       approved_commits, rejected_commits, committed_commits,
		       created_at, updated_at
		FROM commit_batches
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	return scanBatch(row)
}

// UpdateBatch rebinds a batch to a conversation.
func (l *Ledger) UpdateBatch(ctx context.Context, userID, id, conversationID string) (*model.CommitBatch, error) {
	res, err := l.db.ExecContext(ctx, `
		UPDATE commit_batches
		SET conversation_id = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3
	`, conversationID, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return l.GetBatch(ctx, userID, id)
}

// ListBatches returns the caller's batches, newest first.
func (l *Ledger) ListBatches(ctx context.Context, userID string, limit int) ([]*model.CommitBatch, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, user_id, conversation_id, total_commits, pending_commits,
		       approved_commits, rejected_commits, committed_commits,
		       created_at, updated_at
		FROM commit_batches
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []*model.CommitBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// DeleteBatch removes a batch. Its commits survive with batch_id cleared.
func (l *Ledger) DeleteBatch(ctx context.Context, userID, id string) error {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM commit_batches WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateCommit records one extracted action as a reviewable commit. The
// commit insert and the batch counter bump are one transaction; a
// missing or foreign batch fails the create with ErrNotFound.
func (l *Ledger) CreateCommit(ctx context.Context, userID string, batchID *string, action model.ExtractedAction, originalText string, initial model.CommitStatus) (*model.ConversationCommit, error) {
	if !initial.Valid() {
		initial = model.StatusPending
	}

	now := time.Now().UTC()
	commit := &model.ConversationCommit{
		ID:             uuid.New().String(),
		UserID:         userID,
		BatchID:        batchID,
		ExtractionType: action.Type,
		Confidence:     l.scoring.Score(action),
		OriginalText:   snippet(originalText),
		ExtractedData:  extractedData(action),
		TargetLayer:    action.Type.TargetLayer(),
		Status:         initial,
	}
	if initial == model.StatusCommitted {
		commit.CommittedAt = &now
	}

	err := store.WithTx(l.db, func(tx *sql.Tx) error {
		if batchID != nil {
			if err := lockBatch(ctx, tx, *batchID, userID); err != nil {
				return err
			}
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO conversation_commits
				(id, user_id, batch_id, extraction_type, confidence,
				 original_text, extracted_data, target_layer, status, committed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`, commit.ID, commit.UserID, commit.BatchID, commit.ExtractionType,
			commit.Confidence, commit.OriginalText, store.JSONMap(commit.ExtractedData),
			commit.TargetLayer, commit.Status, commit.CommittedAt)

		if err := row.Scan(&commit.CreatedAt, &commit.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert commit: %w", err)
		}

		if batchID != nil {
			return bumpCounters(ctx, tx, *batchID, "", initial)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return commit, nil
}

// GetCommit loads one commit scoped to its owner.
func (l *Ledger) GetCommit(ctx context.Context, userID, id string) (*model.ConversationCommit, error) {
	row := l.db.QueryRowContext(ctx, commitSelect+` WHERE id = $1 AND user_id = $2`, id, userID)
	return scanCommit(row)
}

// CommitFilter narrows ListCommits.
type CommitFilter struct {
	Status  model.CommitStatus
	BatchID string
	Type    model.ActionType
	Limit   int
}

// ListCommits returns the caller's commits matching the filter, newest first.
func (l *Ledger) ListCommits(ctx context.Context, userID string, f CommitFilter) ([]*model.ConversationCommit, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}

	query := commitSelect + ` WHERE user_id = $1`
	args := []interface{}{userID}

	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.BatchID != "" {
		args = append(args, f.BatchID)
		query += fmt.Sprintf(" AND batch_id = $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		query += fmt.Sprintf(" AND extraction_type = $%d", len(args))
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commits: %w", err)
	}
	defer rows.Close()

	var commits []*model.ConversationCommit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

// CommitUpdate carries a reviewer decision and optional edits.
type CommitUpdate struct {
	Status      model.CommitStatus
	ReviewNotes string
	Edits       map[string]interface{}
}

// UpdateCommit applies a status transition and optional data edits. The
// commit row, its reviewed/committed timestamps and the batch counters
// move in one transaction.
func (l *Ledger) UpdateCommit(ctx context.Context, userID, id string, update CommitUpdate) (*model.ConversationCommit, error) {
	var updated *model.ConversationCommit

	err := store.WithTx(l.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, commitSelect+` WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
		current, err := scanCommit(row)
		if err != nil {
			return err
		}

		newStatus := current.Status
		if update.Status != "" {
			if err := ValidateTransition(current.Status, update.Status); err != nil {
				return err
			}
			newStatus = update.Status
		}

		now := time.Now().UTC()
		reviewedAt := current.ReviewedAt
		committedAt := current.CommittedAt
		if newStatus != current.Status {
			reviewedAt = &now
			if newStatus == model.StatusCommitted {
				committedAt = &now
			}
		}

		data := current.ExtractedData
		if len(update.Edits) > 0 {
			if data == nil {
				data = map[string]interface{}{}
			}
			for k, v := range update.Edits {
				data[k] = v
			}
		}
		notes := current.ReviewNotes
		if update.ReviewNotes != "" {
			notes = update.ReviewNotes
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE conversation_commits
			SET status = $1, extracted_data = $2, review_notes = $3,
			    reviewed_at = $4, committed_at = $5, updated_at = now()
			WHERE id = $6
		`, newStatus, store.JSONMap(data), notes, reviewedAt, committedAt, id)
		if err != nil {
			return fmt.Errorf("failed to update commit: %w", err)
		}

		if current.BatchID != nil && newStatus != current.Status {
			if err := lockBatch(ctx, tx, *current.BatchID, userID); err != nil {
				return err
			}
			if err := bumpCounters(ctx, tx, *current.BatchID, current.Status, newStatus); err != nil {
				return err
			}
		}

		current.Status = newStatus
		current.ExtractedData = data
		current.ReviewNotes = notes
		current.ReviewedAt = reviewedAt
		current.CommittedAt = committedAt
		current.UpdatedAt = now
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCommit removes a commit and rolls its batch counters back in the
// same transaction.
func (l *Ledger) DeleteCommit(ctx context.Context, userID, id string) error {
	return store.WithTx(l.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, commitSelect+` WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
		current, err := scanCommit(row)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_commits WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete commit: %w", err)
		}

		if current.BatchID != nil {
			if err := lockBatch(ctx, tx, *current.BatchID, userID); err != nil {
				return err
			}
			return bumpCounters(ctx, tx, *current.BatchID, current.Status, "")
		}
		return nil
	})
}

// ListAutoCommittable returns pending commits confident and old enough
// for the auto-commit job.
func (l *Ledger) ListAutoCommittable(ctx context.Context, minConfidence float64, minAge time.Duration) ([]*model.ConversationCommit, error) {
	cutoff := time.Now().UTC().Add(-minAge)

	rows, err := l.db.QueryContext(ctx, commitSelect+`
		WHERE status = $1 AND confidence >= $2 AND created_at <= $3
		ORDER BY created_at ASC
		LIMIT 100
	`, model.StatusPending, minConfidence, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query auto-committable commits: %w", err)
	}
	defer rows.Close()

	var commits []*model.ConversationCommit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

// lockBatch serializes counter updates on the batch row and doubles as
// the ownership check.
func lockBatch(ctx context.Context, tx *sql.Tx, batchID, userID string) error {
	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM commit_batches WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		batchID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock batch: %w", err)
	}
	return nil
}

// bumpCounters moves a commit between batch counters. An empty from
// means a create (total +1), an empty to means a delete (total -1).
func bumpCounters(ctx context.Context, tx *sql.Tx, batchID string, from, to model.CommitStatus) error {
	set := "updated_at = now()"
	switch {
	case from == "" && to != "":
		set += fmt.Sprintf(", total_commits = total_commits + 1, %s = %s + 1",
			counterColumn(to), counterColumn(to))
	case from != "" && to == "":
		set += fmt.Sprintf(", total_commits = total_commits - 1, %s = %s - 1",
			counterColumn(from), counterColumn(from))
	case from != to:
		set += fmt.Sprintf(", %s = %s - 1, %s = %s + 1",
			counterColumn(from), counterColumn(from), counterColumn(to), counterColumn(to))
	default:
		return nil
	}

	_, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE commit_batches SET %s WHERE id = $1`, set), batchID)
	if err != nil {
		return fmt.Errorf("failed to update batch counters: %w", err)
	}
	return nil
}

const commitSelect = `
	SELECT id, user_id, batch_id, extraction_type, confidence, original_text,
	       extracted_data, target_layer, status, review_notes, reviewed_at,
	       committed_at, created_at, updated_at
	FROM conversation_commits`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCommit(row scanner) (*model.ConversationCommit, error) {
	var c model.ConversationCommit
	var data store.JSONMap

	err := row.Scan(&c.ID, &c.UserID, &c.BatchID, &c.ExtractionType, &c.Confidence,
		&c.OriginalText, &data, &c.TargetLayer, &c.Status, &c.ReviewNotes,
		&c.ReviewedAt, &c.CommittedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan commit: %w", err)
	}

	c.ExtractedData = data
	return &c, nil
}

func scanBatch(row scanner) (*model.CommitBatch, error) {
	var b model.CommitBatch

	err := row.Scan(&b.ID, &b.UserID, &b.ConversationID, &b.TotalCommits,
		&b.PendingCommits, &b.ApprovedCommits, &b.RejectedCommits,
		&b.CommittedCommits, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	return &b, nil
}

// extractedData flattens an action into the commit payload.
func extractedData(a model.ExtractedAction) map[string]interface{} {
	data := map[string]interface{}{"entity": a.Entity}
	for k, v := range a.Details {
		data[k] = v
	}
	return data
}

// snippet bounds the stored original text.
func snippet(text string) string {
	const max = 500
	if len(text) > max {
		return text[:max]
	}
	return text
}
