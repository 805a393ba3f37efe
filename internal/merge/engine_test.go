package merge

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/housemerge/internal/ledger"
	"github.com/mmynk/housemerge/internal/models"
	"github.com/mmynk/housemerge/internal/storage"
	"github.com/mmynk/housemerge/internal/storage/sqlite"
)

const (
	adminUser    = "admin-user"
	memberUser   = "member-user"
	strangerUser = "stranger-user"
	aliceUser    = "alice-user"
	bobUser      = "bob-user"
)

var mergeTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store   *sqlite.SQLiteStore
	engine  *Engine
	groupID string

	source *models.Person // unclaimed placeholder
	target *models.Person // claimed
	other  *models.Person // claimed bystander
}

// wrappedStore lets a test intercept the transaction handed to the engine.
type wrappedStore struct {
	*sqlite.SQLiteStore
	wrap func(storage.MergeTx) storage.MergeTx
}

func (w *wrappedStore) RunInTx(ctx context.Context, fn func(tx storage.MergeTx) error) error {
	return w.SQLiteStore.RunInTx(ctx, func(tx storage.MergeTx) error {
		return fn(w.wrap(tx))
	})
}

type failingAuditTx struct{ storage.MergeTx }

func (failingAuditTx) InsertMergeAudit(context.Context, *models.MergeAuditEntry) error {
	return errors.New("disk I/O error")
}

// raceArchiveTx archives the person once before the engine does, as a
// concurrent merge of the same source would.
type raceArchiveTx struct{ storage.MergeTx }

func (t raceArchiveTx) ArchivePerson(ctx context.Context, personID string, a models.Archival) error {
	if err := t.MergeTx.ArchivePerson(ctx, personID, a); err != nil {
		return err
	}
	return t.MergeTx.ArchivePerson(ctx, personID, a)
}

// leakyTx drops a cent every time a split is saved.
type leakyTx struct{ storage.MergeTx }

func (t leakyTx) SaveSplit(ctx context.Context, split models.ExpenseSplit) error {
	split.AmountOwedCents--
	return t.MergeTx.SaveSplit(ctx, split)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "merge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	group := &models.Group{Name: "Flat 4B"}
	require.NoError(t, store.CreateGroup(ctx, group))
	require.NoError(t, store.AddMember(ctx, models.Membership{GroupID: group.ID, UserID: adminUser, Role: models.RoleAdmin}))
	require.NoError(t, store.AddMember(ctx, models.Membership{GroupID: group.ID, UserID: memberUser, Role: models.RoleMember}))

	f := &fixture{store: store, groupID: group.ID}
	f.source = f.person(t, group.ID, "Al", "")
	f.target = f.person(t, group.ID, "Alice", aliceUser)
	f.other = f.person(t, group.ID, "Bob", bobUser)
	f.engine = f.newEngine(t, store)
	return f
}

func (f *fixture) newEngine(t *testing.T, store storage.Store, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return mergeTime })}, opts...)
	engine, err := NewEngine(store, opts...)
	require.NoError(t, err)
	return engine
}

func (f *fixture) person(t *testing.T, groupID, name, userID string) *models.Person {
	t.Helper()
	p := &models.Person{GroupID: groupID, Name: name, UserID: userID}
	require.NoError(t, f.store.CreatePerson(context.Background(), p))
	return p
}

func (f *fixture) expense(t *testing.T, paidBy string, splits ...models.ExpenseSplit) *models.Expense {
	t.Helper()
	var total int64
	for _, s := range splits {
		total += s.AmountOwedCents
	}
	e := &models.Expense{
		GroupID:        f.groupID,
		Description:    "Groceries",
		AmountCents:    total,
		PaidByPersonID: paidBy,
		Splits:         splits,
	}
	require.NoError(t, f.store.CreateExpense(context.Background(), e))
	return e
}

func (f *fixture) settlement(t *testing.T, from, to string, amount int64) *models.Settlement {
	t.Helper()
	s := &models.Settlement{GroupID: f.groupID, FromPersonID: from, ToPersonID: to, AmountCents: amount}
	require.NoError(t, f.store.CreateSettlement(context.Background(), s))
	return s
}

func (f *fixture) request() Request {
	return Request{
		GroupID:        f.groupID,
		SourcePersonID: f.source.ID,
		TargetPersonID: f.target.ID,
		CallerUserID:   adminUser,
	}
}

func (f *fixture) snapshot(t *testing.T) ledger.Snapshot {
	t.Helper()
	ctx := context.Background()
	expenses, err := f.store.ListExpensesByGroup(ctx, f.groupID)
	require.NoError(t, err)
	settlements, err := f.store.ListSettlementsByGroup(ctx, f.groupID)
	require.NoError(t, err)
	return ledger.Take(expenses, settlements)
}

func split(personID string, cents int64) models.ExpenseSplit {
	return models.ExpenseSplit{PersonID: personID, AmountOwedCents: cents}
}

func TestMerge_ConflictingSplitsAreSummed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.expense(t, f.other.ID, split(f.source.ID, 3000), split(f.target.ID, 2000))

	entry, err := f.engine.Merge(ctx, f.request())
	require.NoError(t, err)

	got, err := f.store.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Splits, 1)
	assert.Equal(t, f.target.ID, got.Splits[0].PersonID)
	assert.Equal(t, int64(5000), got.Splits[0].AmountOwedCents)

	assert.Equal(t, 1, entry.MovedCounts[models.CountSplitsMerged])
	assert.Equal(t, 0, entry.MovedCounts[models.CountSplitsMoved])
	assert.Equal(t, 1, entry.MovedCounts[models.CountSplits])
}

func TestMerge_SplitWithoutConflictIsMoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.expense(t, f.other.ID, split(f.source.ID, 1500))
	sourceSplitID := e.Splits[0].ID

	entry, err := f.engine.Merge(ctx, f.request())
	require.NoError(t, err)

	got, err := f.store.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Splits, 1)
	assert.Equal(t, sourceSplitID, got.Splits[0].ID, "split is rewritten in place")
	assert.Equal(t, f.target.ID, got.Splits[0].PersonID)
	assert.Equal(t, int64(1500), got.Splits[0].AmountOwedCents)

	assert.Equal(t, 1, entry.MovedCounts[models.CountSplitsMoved])
	assert.Equal(t, 0, entry.MovedCounts[models.CountSplitsMerged])
}

func TestMerge_MutualSettlementIsRemoved(t *testing.T) {
	for _, dir := range []string{"target to source", "source to target"} {
		t.Run(dir, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			from, to := f.target.ID, f.source.ID
			if dir == "source to target" {
				from, to = to, from
			}
			s := f.settlement(t, from, to, 4200)

			entry, err := f.engine.Merge(ctx, f.request())
			require.NoError(t, err)

			_, err = f.store.GetSettlement(ctx, s.ID)
			assert.True(t, errors.Is(err, storage.ErrNotFound), "self-loop settlement must be deleted, got %v", err)

			remaining, err := f.store.ListSettlementsByGroup(ctx, f.groupID)
			require.NoError(t, err)
			assert.Empty(t, remaining)

			assert.Equal(t, 1, entry.MovedCounts[models.CountSettlementsRemoved])
			assert.Equal(t, 0, entry.MovedCounts[models.CountSettlementsMoved])
			assert.Equal(t, 1, entry.MovedCounts[models.CountSettlements])
		})
	}
}

func TestMerge_SettlementWithOtherIsRepointed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	outgoing := f.settlement(t, f.source.ID, f.other.ID, 1000)
	incoming := f.settlement(t, f.other.ID, f.source.ID, 250)

	entry, err := f.engine.Merge(ctx, f.request())
	require.NoError(t, err)

	got, err := f.store.GetSettlement(ctx, outgoing.ID)
	require.NoError(t, err)
	assert.Equal(t, f.target.ID, got.FromPersonID)
	assert.Equal(t, f.other.ID, got.ToPersonID)

	got, err = f.store.GetSettlement(ctx, incoming.ID)
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, got.FromPersonID)
	assert.Equal(t, f.target.ID, got.ToPersonID)

	assert.Equal(t, 2, entry.MovedCounts[models.CountSettlementsMoved])
	assert.Equal(t, 0, entry.MovedCounts[models.CountSettlementsRemoved])
}

func TestMerge_SameIdentityIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := &models.Task{GroupID: f.groupID, Title: "Bins", AssignedToPersonID: f.source.ID}
	require.NoError(t, f.store.CreateTask(ctx, task))

	req := f.request()
	req.TargetPersonID = req.SourcePersonID
	_, err := f.engine.Merge(ctx, req)

	require.Error(t, err)
	assert.Equal(t, KindSameIdentity, ValidationKindOf(err))

	audits, err := f.store.ListMergeAudits(ctx, f.groupID)
	require.NoError(t, err)
	assert.Empty(t, audits)

	person, err := f.store.GetPerson(ctx, f.source.ID)
	require.NoError(t, err)
	assert.False(t, person.IsArchived())
}

func TestMerge_SingleOwnerRecordsAreReassigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sourceTasks := []*models.Task{
		{GroupID: f.groupID, Title: "Dishes", AssignedToPersonID: f.source.ID},
		{GroupID: f.groupID, Title: "Laundry", AssignedToPersonID: f.source.ID},
	}
	for _, task := range sourceTasks {
		require.NoError(t, f.store.CreateTask(ctx, task))
	}
	otherTask := &models.Task{GroupID: f.groupID, Title: "Hoover", AssignedToPersonID: f.other.ID}
	require.NoError(t, f.store.CreateTask(ctx, otherTask))
	unassigned := &models.Task{GroupID: f.groupID, Title: "Fix tap"}
	require.NoError(t, f.store.CreateTask(ctx, unassigned))

	recurring := &models.RecurringTask{GroupID: f.groupID, Title: "Recycling", Cadence: "weekly", AssignedToPersonID: f.source.ID}
	require.NoError(t, f.store.CreateRecurringTask(ctx, recurring))

	paid := f.expense(t, f.source.ID, split(f.other.ID, 900))

	entry, err := f.engine.Merge(ctx, f.request())
	require.NoError(t, err)

	for _, task := range sourceTasks {
		got, err := f.store.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, f.target.ID, got.AssignedToPersonID, task.Title)
	}
	got, err := f.store.GetTask(ctx, otherTask.ID)
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, got.AssignedToPersonID)
	got, err = f.store.GetTask(ctx, unassigned.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AssignedToPersonID)

	gotRecurring, err := f.store.GetRecurringTask(ctx, recurring.ID)
	require.NoError(t, err)
	assert.Equal(t, f.target.ID, gotRecurring.AssignedToPersonID)

	gotExpense, err := f.store.GetExpense(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, f.target.ID, gotExpense.PaidByPersonID)

	assert.Equal(t, 2, entry.MovedCounts[models.CountTasks])
	assert.Equal(t, 1, entry.MovedCounts[models.CountRecurringTasks])
	assert.Equal(t, 1, entry.MovedCounts[models.CountExpenses])
}

func TestMerge_ConservesMoney(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e1 := f.expense(t, f.source.ID, split(f.source.ID, 1000), split(f.target.ID, 1000), split(f.other.ID, 1000))
	e2 := f.expense(t, f.target.ID, split(f.source.ID, 2500), split(f.other.ID, 2500))
	e3 := f.expense(t, f.other.ID, split(f.target.ID, 700), split(f.other.ID, 300))
	f.settlement(t, f.source.ID, f.target.ID, 500)
	f.settlement(t, f.other.ID, f.source.ID, 800)
	f.settlement(t, f.target.ID, f.other.ID, 300)

	before := f.snapshot(t)

	_, err := f.engine.Merge(ctx, f.request())
	require.NoError(t, err)

	after := f.snapshot(t)
	for _, e := range []*models.Expense{e1, e2, e3} {
		assert.Equal(t, before.SplitTotals[e.ID], after.SplitTotals[e.ID], "split total of %s", e.Description)
	}
	assert.Equal(t, before.Net(f.source.ID)+before.Net(f.target.ID), after.Net(f.target.ID))
	assert.Equal(t, before.Net(f.other.ID), after.Net(f.other.ID))
	assert.NotContains(t, after.Balances, f.source.ID)

	got, err := f.store.GetExpense(ctx, e1.ID)
	require.NoError(t, err)
	perPerson := make(map[string]int)
	for _, s := range got.Splits {
		perPerson[s.PersonID]++
	}
	for personID, n := range perPerson {
		assert.Equal(t, 1, n, "person %s has more than one split on the expense", personID)
	}
}

func TestMerge_SecondMergeFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Merge(ctx, f.request())
	require.NoError(t, err)

	_, err = f.engine.Merge(ctx, f.request())
	require.Error(t, err)
	assert.Equal(t, KindSourceAlreadyArchived, ValidationKindOf(err))

	audits, err := f.store.ListMergeAudits(ctx, f.groupID)
	require.NoError(t, err)
	assert.Len(t, audits, 1)
}

func TestMerge_RequiresAdmin(t *testing.T) {
	for _, caller := range []string{memberUser, strangerUser} {
		t.Run(caller, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			task := &models.Task{GroupID: f.groupID, Title: "Bins", AssignedToPersonID: f.source.ID}
			require.NoError(t, f.store.CreateTask(ctx, task))
			s := f.settlement(t, f.target.ID, f.source.ID, 100)

			req := f.request()
			req.CallerUserID = caller
			_, err := f.engine.Merge(ctx, req)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAuthorization), "got %v", err)

			got, err := f.store.GetTask(ctx, task.ID)
			require.NoError(t, err)
			assert.Equal(t, f.source.ID, got.AssignedToPersonID)

			_, err = f.store.GetSettlement(ctx, s.ID)
			assert.NoError(t, err)

			person, err := f.store.GetPerson(ctx, f.source.ID)
			require.NoError(t, err)
			assert.False(t, person.IsArchived())
		})
	}
}

func TestMerge_RequestChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request()
	req.CallerUserID = ""
	_, err := f.engine.Merge(ctx, req)
	assert.True(t, errors.Is(err, ErrAuthentication), "got %v", err)

	for _, blank := range []func(*Request){
		func(r *Request) { r.GroupID = "" },
		func(r *Request) { r.SourcePersonID = "" },
		func(r *Request) { r.TargetPersonID = "" },
	} {
		req := f.request()
		blank(&req)
		_, err := f.engine.Merge(ctx, req)
		assert.Equal(t, KindMissingField, ValidationKindOf(err), "got %v", err)
	}
}

func TestMerge_IdentityRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	elsewhere := &models.Group{Name: "Office"}
	require.NoError(t, f.store.CreateGroup(ctx, elsewhere))
	foreign := f.person(t, elsewhere.ID, "Stranger", "")
	claimedSource := f.person(t, f.groupID, "Carol", "carol-user")
	unclaimedTarget := f.person(t, f.groupID, "Dee", "")
	archived := &models.Person{GroupID: f.groupID, Name: "Ed", Archived: &models.Archival{At: 1, By: adminUser}}
	require.NoError(t, f.store.CreatePerson(ctx, archived))
	archivedTarget := &models.Person{GroupID: f.groupID, Name: "Fay", UserID: "fay-user", Archived: &models.Archival{At: 1, By: adminUser}}
	require.NoError(t, f.store.CreatePerson(ctx, archivedTarget))

	tests := []struct {
		name     string
		source   string
		target   string
		wantKind ValidationKind
	}{
		{"unknown source", "missing-person", f.target.ID, KindPersonNotFound},
		{"unknown target", f.source.ID, "missing-person", KindPersonNotFound},
		{"source in another group", foreign.ID, f.target.ID, KindGroupMismatch},
		{"target in another group", f.source.ID, foreign.ID, KindGroupMismatch},
		{"archived source", archived.ID, f.target.ID, KindSourceAlreadyArchived},
		{"claimed source", claimedSource.ID, f.target.ID, KindSourceMustBeUnclaimed},
		{"unclaimed target", f.source.ID, unclaimedTarget.ID, KindTargetMustBeClaimed},
		{"archived target", f.source.ID, archivedTarget.ID, KindTargetArchived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request()
			req.SourcePersonID = tt.source
			req.TargetPersonID = tt.target

			_, err := f.engine.Merge(ctx, req)

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, ValidationKindOf(err), "got %v", err)
		})
	}

	audits, err := f.store.ListMergeAudits(ctx, f.groupID)
	require.NoError(t, err)
	assert.Empty(t, audits)
}

func TestMerge_ArchivesSourceAndRecordsAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.engine.Merge(ctx, f.request())
	require.NoError(t, err)

	person, err := f.store.GetPerson(ctx, f.source.ID)
	require.NoError(t, err)
	require.NotNil(t, person.Archived)
	assert.Equal(t, mergeTime.Unix(), person.Archived.At)
	assert.Equal(t, adminUser, person.Archived.By)

	target, err := f.store.GetPerson(ctx, f.target.ID)
	require.NoError(t, err)
	assert.False(t, target.IsArchived())

	audits, err := f.store.ListMergeAudits(ctx, f.groupID)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	got := audits[0]
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, f.source.ID, got.SourcePersonID)
	assert.Equal(t, f.target.ID, got.TargetPersonID)
	assert.Equal(t, adminUser, got.MergedBy)
	assert.Equal(t, mergeTime.Unix(), got.MergedAt)
	assert.Equal(t, models.MoveCounts{}.Map(), got.MovedCounts)
}

func TestMerge_FailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := &models.Task{GroupID: f.groupID, Title: "Bins", AssignedToPersonID: f.source.ID}
	require.NoError(t, f.store.CreateTask(ctx, task))
	e := f.expense(t, f.other.ID, split(f.source.ID, 3000), split(f.target.ID, 2000))
	s := f.settlement(t, f.target.ID, f.source.ID, 100)

	store := &wrappedStore{SQLiteStore: f.store, wrap: func(tx storage.MergeTx) storage.MergeTx {
		return failingAuditTx{tx}
	}}
	engine := f.newEngine(t, store)

	_, err := engine.Merge(ctx, f.request())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")

	got, err := f.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, f.source.ID, got.AssignedToPersonID)

	gotExpense, err := f.store.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, gotExpense.Splits, 2)

	_, err = f.store.GetSettlement(ctx, s.ID)
	assert.NoError(t, err)

	person, err := f.store.GetPerson(ctx, f.source.ID)
	require.NoError(t, err)
	assert.False(t, person.IsArchived())

	audits, err := f.store.ListMergeAudits(ctx, f.groupID)
	require.NoError(t, err)
	assert.Empty(t, audits)

	// The untouched data can still be merged.
	_, err = f.engine.Merge(ctx, f.request())
	require.NoError(t, err)
}

func TestMerge_SourceArchivedConcurrently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := &models.Task{GroupID: f.groupID, Title: "Bins", AssignedToPersonID: f.source.ID}
	require.NoError(t, f.store.CreateTask(ctx, task))

	store := &wrappedStore{SQLiteStore: f.store, wrap: func(tx storage.MergeTx) storage.MergeTx {
		return raceArchiveTx{tx}
	}}
	engine := f.newEngine(t, store)

	_, err := engine.Merge(ctx, f.request())
	require.Error(t, err)
	assert.Equal(t, KindSourceAlreadyArchived, ValidationKindOf(err), "got %v", err)
	assert.False(t, errors.Is(err, storage.ErrNotFound))

	got, err := f.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, f.source.ID, got.AssignedToPersonID)

	person, err := f.store.GetPerson(ctx, f.source.ID)
	require.NoError(t, err)
	assert.False(t, person.IsArchived())

	audits, err := f.store.ListMergeAudits(ctx, f.groupID)
	require.NoError(t, err)
	assert.Empty(t, audits)
}

func TestMerge_ConservationGuardRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.expense(t, f.other.ID, split(f.source.ID, 3000), split(f.target.ID, 2000))

	store := &wrappedStore{SQLiteStore: f.store, wrap: func(tx storage.MergeTx) storage.MergeTx {
		return leakyTx{tx}
	}}
	engine := f.newEngine(t, store)

	_, err := engine.Merge(ctx, f.request())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConservation), "got %v", err)
	assert.True(t, errors.Is(err, ledger.ErrNotConserved), "got %v", err)

	got, err := f.store.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, got.Splits, 2)

	person, err := f.store.GetPerson(ctx, f.source.ID)
	require.NoError(t, err)
	assert.False(t, person.IsArchived())
}

func TestPreview_ReportsCountsWithoutChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	engine := f.newEngine(t, f.store, WithMetrics(metrics))

	task := &models.Task{GroupID: f.groupID, Title: "Bins", AssignedToPersonID: f.source.ID}
	require.NoError(t, f.store.CreateTask(ctx, task))
	f.expense(t, f.other.ID, split(f.source.ID, 3000), split(f.target.ID, 2000))
	f.settlement(t, f.target.ID, f.source.ID, 100)

	counts, err := engine.Preview(ctx, f.request())
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Tasks)
	assert.Equal(t, 1, counts.SplitsMerged)
	assert.Equal(t, 1, counts.SettlementsRemoved)

	got, err := f.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, f.source.ID, got.AssignedToPersonID)
	person, err := f.store.GetPerson(ctx, f.source.ID)
	require.NoError(t, err)
	assert.False(t, person.IsArchived())
	audits, err := f.store.ListMergeAudits(ctx, f.groupID)
	require.NoError(t, err)
	assert.Empty(t, audits)

	entry, err := engine.Merge(ctx, f.request())
	require.NoError(t, err)
	assert.Equal(t, counts, models.MoveCountsFromMap(entry.MovedCounts))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Merges.WithLabelValues(OutcomePreviewed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Merges.WithLabelValues(OutcomeMerged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Rows.WithLabelValues(models.CountTasks)))
}

func TestMetrics_RecordsFailures(t *testing.T) {
	f := newFixture(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	engine := f.newEngine(t, f.store, WithMetrics(metrics))
	ctx := context.Background()

	req := f.request()
	req.CallerUserID = memberUser
	_, err := engine.Merge(ctx, req)
	require.Error(t, err)

	req = f.request()
	req.TargetPersonID = req.SourcePersonID
	_, err = engine.Merge(ctx, req)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Merges.WithLabelValues(OutcomeForbidden)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Merges.WithLabelValues(OutcomeInvalid)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Merges.WithLabelValues(OutcomeMerged)))
}

func TestListAudits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Merge(ctx, f.request())
	require.NoError(t, err)

	entries, err := f.engine.ListAudits(ctx, f.groupID, memberUser)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, f.source.ID, entries[0].SourcePersonID)

	_, err = f.engine.ListAudits(ctx, f.groupID, strangerUser)
	assert.True(t, errors.Is(err, ErrAuthorization), "got %v", err)

	_, err = f.engine.ListAudits(ctx, f.groupID, "")
	assert.True(t, errors.Is(err, ErrAuthentication), "got %v", err)

	_, err = f.engine.ListAudits(ctx, "", adminUser)
	assert.Equal(t, KindMissingField, ValidationKindOf(err))
}

func TestNewEngine_RequiresStore(t *testing.T) {
	_, err := NewEngine(nil)
	assert.True(t, errors.Is(err, ErrConfiguration))
}
