// Package merge consolidates an unclaimed placeholder person into a claimed
// person of the same group.
//
// A merge runs six phases in order:
//
//	Pending → Authorized → Validated → Reassigned → Reconciled → Archived
//
// Authorization and validation only read. Everything after runs inside one
// store transaction: tasks, recurring tasks and expenses are repointed,
// expense splits and settlements are reconciled, the source is archived and
// an audit entry is written. Any failure rolls all of it back.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/housemerge/internal/ledger"
	"github.com/mmynk/housemerge/internal/lock"
	"github.com/mmynk/housemerge/internal/models"
	"github.com/mmynk/housemerge/internal/storage"
)

const tracerName = "github.com/mmynk/housemerge/internal/merge"

// Phase is a step of the merge state machine.
type Phase int

const (
	PhasePending Phase = iota
	PhaseAuthorized
	PhaseValidated
	PhaseReassigned
	PhaseReconciled
	PhaseArchived
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseAuthorized:
		return "authorized"
	case PhaseValidated:
		return "validated"
	case PhaseReassigned:
		return "reassigned"
	case PhaseReconciled:
		return "reconciled"
	case PhaseArchived:
		return "archived"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// errDryRun forces RunInTx to roll back a preview.
var errDryRun = errors.New("dry run")

// Request identifies the two people to merge and the admin asking for it.
type Request struct {
	GroupID        string
	SourcePersonID string
	TargetPersonID string
	CallerUserID   string
}

func (r Request) check() error {
	if r.CallerUserID == "" {
		return ErrAuthentication
	}
	switch {
	case r.GroupID == "":
		return invalid(KindMissingField, "groupId is required")
	case r.SourcePersonID == "":
		return invalid(KindMissingField, "sourcePersonId is required")
	case r.TargetPersonID == "":
		return invalid(KindMissingField, "targetPersonId is required")
	}
	return nil
}

// Engine runs identity merges against a store.
type Engine struct {
	store   storage.Store
	locker  lock.Locker
	metrics *Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker replaces the default in-process per-group lock.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithMetrics records merge outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the time source used for archive and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine on top of store.
func NewEngine(store storage.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrConfiguration)
	}
	e := &Engine{
		store:  store,
		locker: lock.NewMemory(),
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.locker == nil {
		return nil, fmt.Errorf("%w: nil locker", ErrConfiguration)
	}
	return e, nil
}

// Merge folds the source person into the target and returns the audit entry
// that was recorded.
func (e *Engine) Merge(ctx context.Context, req Request) (*models.MergeAuditEntry, error) {
	return e.run(ctx, req, false)
}

// Preview runs the whole merge and rolls it back, returning the counts a
// real merge would record.
func (e *Engine) Preview(ctx context.Context, req Request) (models.MoveCounts, error) {
	entry, err := e.run(ctx, req, true)
	if err != nil {
		return models.MoveCounts{}, err
	}
	return models.MoveCountsFromMap(entry.MovedCounts), nil
}

// ListAudits returns the group's merge history. Any member may read it.
func (e *Engine) ListAudits(ctx context.Context, groupID, callerUserID string) ([]*models.MergeAuditEntry, error) {
	if callerUserID == "" {
		return nil, ErrAuthentication
	}
	if groupID == "" {
		return nil, invalid(KindMissingField, "groupId is required")
	}
	if _, err := e.roleOf(ctx, groupID, callerUserID); err != nil {
		return nil, err
	}

	entries, err := e.store.ListMergeAudits(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list merge audits: %w", err)
	}
	return entries, nil
}

func (e *Engine) run(ctx context.Context, req Request, dryRun bool) (entry *models.MergeAuditEntry, err error) {
	start := e.now()
	phase := PhasePending

	ctx, span := e.tracer.Start(ctx, "merge.Merge", trace.WithAttributes(
		attribute.String("group_id", req.GroupID),
		attribute.String("source_person_id", req.SourcePersonID),
		attribute.String("target_person_id", req.TargetPersonID),
		attribute.Bool("dry_run", dryRun),
	))
	defer func() {
		var counts *models.MoveCounts
		if entry != nil {
			c := models.MoveCountsFromMap(entry.MovedCounts)
			counts = &c
		}
		e.metrics.observe(outcomeOf(err, dryRun), counts, e.now().Sub(start))

		span.SetAttributes(attribute.String("phase", phase.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.logger.Warn("Merge failed",
				"group_id", req.GroupID,
				"source_person_id", req.SourcePersonID,
				"target_person_id", req.TargetPersonID,
				"phase", phase.String(),
				"dry_run", dryRun,
				"error", err,
			)
		}
		span.End()
	}()

	if err := req.check(); err != nil {
		return nil, err
	}

	if err := e.authorize(ctx, req.GroupID, req.CallerUserID); err != nil {
		return nil, err
	}
	phase = PhaseAuthorized

	// Validation happens under the group lock so a concurrent merge of the
	// same source cannot slip in between the check and the mutation.
	unlock, err := e.locker.Lock(ctx, req.GroupID)
	if err != nil {
		return nil, fmt.Errorf("acquire group lock: %w", err)
	}
	defer unlock()

	if err := e.validate(ctx, req); err != nil {
		return nil, err
	}
	phase = PhaseValidated

	// Once mutation starts the merge runs to completion or rolls back; the
	// store bounds the transaction with its own timeout.
	txCtx := context.WithoutCancel(ctx)
	err = e.store.RunInTx(txCtx, func(tx storage.MergeTx) error {
		var txErr error
		entry, txErr = e.mutate(txCtx, tx, req, &phase)
		if txErr != nil {
			return txErr
		}
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if dryRun && errors.Is(err, errDryRun) {
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("merge %s into %s (after %s): %w", req.SourcePersonID, req.TargetPersonID, phase, err)
	}

	if !dryRun {
		e.logger.Info("Merge successful",
			"group_id", req.GroupID,
			"source_person_id", req.SourcePersonID,
			"target_person_id", req.TargetPersonID,
			"merged_by", req.CallerUserID,
			"audit_id", entry.ID,
			"counts", entry.MovedCounts,
		)
	}
	return entry, nil
}

// mutate runs phases 3 to 6 against tx.
func (e *Engine) mutate(ctx context.Context, tx storage.MergeTx, req Request, phase *Phase) (*models.MergeAuditEntry, error) {
	before, err := snapshot(ctx, tx, req.GroupID)
	if err != nil {
		return nil, err
	}

	var counts models.MoveCounts
	if err := e.traced(ctx, "merge.reassign", func(ctx context.Context) error {
		return reassignOwners(ctx, tx, req.SourcePersonID, req.TargetPersonID, &counts)
	}); err != nil {
		return nil, err
	}
	*phase = PhaseReassigned

	if err := e.traced(ctx, "merge.reconcile_splits", func(ctx context.Context) error {
		return reconcileSplits(ctx, tx, req.SourcePersonID, req.TargetPersonID, &counts)
	}); err != nil {
		return nil, err
	}
	if err := e.traced(ctx, "merge.reconcile_settlements", func(ctx context.Context) error {
		return reconcileSettlements(ctx, tx, req.GroupID, req.SourcePersonID, req.TargetPersonID, &counts)
	}); err != nil {
		return nil, err
	}

	after, err := snapshot(ctx, tx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if err := ledger.CheckMerge(before, after, req.SourcePersonID, req.TargetPersonID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConservation, err)
	}
	*phase = PhaseReconciled

	now := e.now().Unix()
	entry := &models.MergeAuditEntry{
		GroupID:        req.GroupID,
		SourcePersonID: req.SourcePersonID,
		TargetPersonID: req.TargetPersonID,
		MergedBy:       req.CallerUserID,
		MergedAt:       now,
		MovedCounts:    counts.Map(),
	}
	if err := e.traced(ctx, "merge.archive", func(ctx context.Context) error {
		if err := tx.ArchivePerson(ctx, req.SourcePersonID, models.Archival{At: now, By: req.CallerUserID}); err != nil {
			// Another merge archived the source after validation.
			if errors.Is(err, storage.ErrNotFound) {
				return invalid(KindSourceAlreadyArchived, "%s", req.SourcePersonID)
			}
			return fmt.Errorf("archive source: %w", err)
		}
		if err := tx.InsertMergeAudit(ctx, entry); err != nil {
			return fmt.Errorf("record audit: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	*phase = PhaseArchived

	return entry, nil
}

func (e *Engine) traced(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// authorize requires the caller to be an admin of the group.
func (e *Engine) authorize(ctx context.Context, groupID, userID string) error {
	role, err := e.roleOf(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		return fmt.Errorf("%w: role %q cannot merge people", ErrAuthorization, role)
	}
	return nil
}

func (e *Engine) roleOf(ctx context.Context, groupID, userID string) (models.Role, error) {
	role, err := e.store.RoleOf(ctx, groupID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%w: not a member of group %s", ErrAuthorization, groupID)
	}
	if err != nil {
		return "", fmt.Errorf("role lookup: %w", err)
	}
	return role, nil
}

// validate checks the identity rules in order and stops at the first failure.
func (e *Engine) validate(ctx context.Context, req Request) error {
	if req.SourcePersonID == req.TargetPersonID {
		return invalid(KindSameIdentity, "%s", req.SourcePersonID)
	}

	people, err := e.store.GetPeopleByIDs(ctx, []string{req.SourcePersonID, req.TargetPersonID})
	if err != nil {
		return fmt.Errorf("load people: %w", err)
	}
	source, ok := people[req.SourcePersonID]
	if !ok {
		return invalid(KindPersonNotFound, "source %s", req.SourcePersonID)
	}
	target, ok := people[req.TargetPersonID]
	if !ok {
		return invalid(KindPersonNotFound, "target %s", req.TargetPersonID)
	}

	if source.GroupID != req.GroupID {
		return invalid(KindGroupMismatch, "source %s", source.ID)
	}
	if target.GroupID != req.GroupID {
		return invalid(KindGroupMismatch, "target %s", target.ID)
	}
	if source.IsArchived() {
		return invalid(KindSourceAlreadyArchived, "%s", source.ID)
	}
	if source.IsClaimed() {
		return invalid(KindSourceMustBeUnclaimed, "%s", source.ID)
	}
	if !target.IsClaimed() {
		return invalid(KindTargetMustBeClaimed, "%s", target.ID)
	}
	if target.IsArchived() {
		return invalid(KindTargetArchived, "%s", target.ID)
	}
	return nil
}

func reassignOwners(ctx context.Context, tx storage.MergeTx, sourceID, targetID string, counts *models.MoveCounts) error {
	var err error
	if counts.Tasks, err = tx.ReassignTasks(ctx, sourceID, targetID); err != nil {
		return err
	}
	if counts.RecurringTasks, err = tx.ReassignRecurringTasks(ctx, sourceID, targetID); err != nil {
		return err
	}
	if counts.Expenses, err = tx.ReassignExpenses(ctx, sourceID, targetID); err != nil {
		return err
	}
	return nil
}

func reconcileSplits(ctx context.Context, tx storage.MergeTx, sourceID, targetID string, counts *models.MoveCounts) error {
	sourceSplits, err := tx.ListSplitsByPerson(ctx, sourceID)
	if err != nil {
		return err
	}
	targetSplits, err := tx.ListSplitsByPerson(ctx, targetID)
	if err != nil {
		return err
	}

	byExpense := make(map[string]*models.ExpenseSplit, len(targetSplits))
	for i := range targetSplits {
		byExpense[targetSplits[i].ExpenseID] = &targetSplits[i]
	}

	counts.Splits = len(sourceSplits)
	for _, incoming := range sourceSplits {
		existing := byExpense[incoming.ExpenseID]
		result, deleteSource := MergeSplit(existing, incoming, targetID)

		if err := tx.SaveSplit(ctx, result); err != nil {
			return err
		}
		if deleteSource {
			if err := tx.DeleteSplit(ctx, incoming.ID); err != nil {
				return err
			}
			*existing = result
			counts.SplitsMerged++
			continue
		}
		byExpense[result.ExpenseID] = &result
		counts.SplitsMoved++
	}
	return nil
}

func reconcileSettlements(ctx context.Context, tx storage.MergeTx, groupID, sourceID, targetID string, counts *models.MoveCounts) error {
	settlements, err := tx.ListSettlementsTouching(ctx, groupID, sourceID)
	if err != nil {
		return err
	}

	counts.Settlements = len(settlements)
	for _, s := range settlements {
		rewritten, remove := RewriteSettlement(s, sourceID, targetID)
		if remove {
			if err := tx.DeleteSettlement(ctx, s.ID); err != nil {
				return err
			}
			counts.SettlementsRemoved++
			continue
		}
		if err := tx.UpdateSettlementParties(ctx, s.ID, rewritten.FromPersonID, rewritten.ToPersonID); err != nil {
			return err
		}
		counts.SettlementsMoved++
	}
	return nil
}

func snapshot(ctx context.Context, tx storage.MergeTx, groupID string) (ledger.Snapshot, error) {
	expenses, err := tx.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	settlements, err := tx.ListSettlementsByGroup(ctx, groupID)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return ledger.Take(expenses, settlements), nil
}
