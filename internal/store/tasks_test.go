package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func strp(s string) *string { return &s }

func TestAddAndGetTask(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, AddTask(ctx, db.DB, "foo", nil, "a task", nil, nil, false))
	task, err := GetTask(ctx, db.DB, "foo")
	require.NoError(t, err)
	require.Equal(t, "foo", task.Name)
	require.Equal(t, StatusOpen, task.Status)
	require.Nil(t, task.Assignee)
}

func TestAddDuplicateFails(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "foo", nil, "", nil, nil, false))
	err := AddTask(ctx, db.DB, "foo", nil, "", nil, nil, false)
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestAddWithParent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "parent", nil, "", nil, nil, false))
	require.NoError(t, AddTask(ctx, db.DB, "child", strp("parent"), "", nil, nil, false))
	task, err := GetTask(ctx, db.DB, "child")
	require.NoError(t, err)
	require.Equal(t, "parent", *task.Parent)
}

func TestAddWithMissingParentFails(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	err := AddTask(ctx, db.DB, "child", strp("nope"), "", nil, nil, false)
	require.Error(t, err)
}

func TestAddPausedAndClaimIsRejected(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	err := AddTask(ctx, db.DB, "foo", nil, "", nil, strp("a"), true)
	require.Error(t, err)
	var inv *InvariantViolationError
	require.ErrorAs(t, err, &inv)
}

func TestClaimAndRelease(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "foo", nil, "", nil, nil, false))

	require.NoError(t, Claim(ctx, db.DB, "foo", "a"))
	task, err := GetTask(ctx, db.DB, "foo")
	require.NoError(t, err)
	require.Equal(t, StatusActive, task.Status)
	require.Equal(t, "a", *task.Assignee)
	require.NotNil(t, task.StatusChangedAt)

	// Idempotent same-assignee reclaim.
	require.NoError(t, Claim(ctx, db.DB, "foo", "a"))

	// Wrong assignee can't release.
	err = Release(ctx, db.DB, "foo", "b")
	require.Error(t, err)

	require.NoError(t, Release(ctx, db.DB, "foo", "a"))
	task, err = GetTask(ctx, db.DB, "foo")
	require.NoError(t, err)
	require.Equal(t, StatusOpen, task.Status)
	require.Nil(t, task.Assignee)
}

func TestClaimAlreadyActiveByOtherFails(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "foo", nil, "", nil, nil, false))
	require.NoError(t, Claim(ctx, db.DB, "foo", "a"))
	err := Claim(ctx, db.DB, "foo", "b")
	require.Error(t, err)
}

func TestClaimNextNoTasks(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	name, err := ClaimNext(ctx, db.DB, "a", nil)
	require.NoError(t, err)
	require.Empty(t, name)
}

func TestClaimNextPicksOldest(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "first", nil, "", nil, nil, false))
	require.NoError(t, AddTask(ctx, db.DB, "second", nil, "", nil, nil, false))

	name, err := ClaimNext(ctx, db.DB, "a", nil)
	require.NoError(t, err)
	require.Equal(t, "first", name)
}

func TestClaimNextSkipsDoneAndAssigned(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "done-task", nil, "", nil, nil, false))
	require.NoError(t, MarkDone(ctx, db.DB, "done-task"))
	require.NoError(t, AddTask(ctx, db.DB, "active-task", nil, "", nil, strp("x"), false))
	require.NoError(t, AddTask(ctx, db.DB, "open-task", nil, "", nil, nil, false))

	name, err := ClaimNext(ctx, db.DB, "a", nil)
	require.NoError(t, err)
	require.Equal(t, "open-task", name)
}

func TestClaimNextSkipsPaused(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "paused-task", nil, "", nil, nil, true))
	name, err := ClaimNext(ctx, db.DB, "a", nil)
	require.NoError(t, err)
	require.Empty(t, name)
}

func TestClaimNextSkipsBlockedTasks(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "blocker", nil, "", nil, nil, false))
	require.NoError(t, AddTask(ctx, db.DB, "blocked", nil, "", nil, nil, false))
	require.NoError(t, AddBlock(ctx, db.DB, "blocker", "blocked"))

	name, err := ClaimNext(ctx, db.DB, "a", nil)
	require.NoError(t, err)
	require.Equal(t, "blocker", name)
}

func TestClaimNextPrefersUnblockers(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "plain", nil, "", nil, nil, false))
	require.NoError(t, AddTask(ctx, db.DB, "unblocker", nil, "", nil, nil, false))
	require.NoError(t, AddTask(ctx, db.DB, "downstream", nil, "", nil, nil, false))
	require.NoError(t, AddBlock(ctx, db.DB, "unblocker", "downstream"))

	name, err := ClaimNext(ctx, db.DB, "a", nil)
	require.NoError(t, err)
	require.Equal(t, "unblocker", name)
}

func TestClaimNextSetsAssignee(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "foo", nil, "", nil, nil, false))
	name, err := ClaimNext(ctx, db.DB, "ws/1", nil)
	require.NoError(t, err)
	require.Equal(t, "foo", name)
	task, err := GetTask(ctx, db.DB, "foo")
	require.NoError(t, err)
	require.Equal(t, "ws/1", *task.Assignee)
}

func TestMarkDoneReopen(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "foo", nil, "", nil, nil, false))
	require.NoError(t, MarkDone(ctx, db.DB, "foo"))
	task, err := GetTask(ctx, db.DB, "foo")
	require.NoError(t, err)
	require.Equal(t, StatusDone, task.Status)

	require.NoError(t, Reopen(ctx, db.DB, "foo"))
	task, err = GetTask(ctx, db.DB, "foo")
	require.NoError(t, err)
	require.Equal(t, StatusOpen, task.Status)
}

func TestPauseUnpauseRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "foo", nil, "", nil, nil, false))
	require.NoError(t, Pause(ctx, db.DB, "foo"))
	require.NoError(t, Unpause(ctx, db.DB, "foo"))
	task, err := GetTask(ctx, db.DB, "foo")
	require.NoError(t, err)
	require.Equal(t, StatusOpen, task.Status)
}

func TestReparentOntoDescendantFails(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "a", nil, "", nil, nil, false))
	require.NoError(t, AddTask(ctx, db.DB, "b", strp("a"), "", nil, nil, false))
	err := Reparent(ctx, db.DB, "a", strp("b"))
	require.Error(t, err)
	var cyc *CycleDetectedError
	require.ErrorAs(t, err, &cyc)
}

func TestRemoveNonRecursiveWithChildrenFails(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "a", nil, "", nil, nil, false))
	require.NoError(t, AddTask(ctx, db.DB, "b", strp("a"), "", nil, nil, false))
	err := Remove(ctx, db.DB, "a", false)
	require.Error(t, err)

	require.NoError(t, Remove(ctx, db.DB, "a", true))
	_, err = GetTask(ctx, db.DB, "a")
	require.Error(t, err)
	_, err = GetTask(ctx, db.DB, "b")
	require.Error(t, err)
}

func TestAddBlockRejectsSelfAndCycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "a", nil, "", nil, nil, false))
	require.NoError(t, AddTask(ctx, db.DB, "b", nil, "", nil, nil, false))
	require.NoError(t, AddTask(ctx, db.DB, "c", nil, "", nil, nil, false))

	err := AddBlock(ctx, db.DB, "a", "a")
	require.Error(t, err)

	require.NoError(t, AddBlock(ctx, db.DB, "a", "b"))
	require.NoError(t, AddBlock(ctx, db.DB, "b", "c"))
	err = AddBlock(ctx, db.DB, "c", "a")
	require.Error(t, err)
	var cyc *CycleDetectedError
	require.ErrorAs(t, err, &cyc)

	// State after the failed third call matches state after the second.
	blockers, err := GetBlockers(ctx, db.DB, "a")
	require.NoError(t, err)
	require.Empty(t, blockers)
}

func TestAddRemoveBlockRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "a", nil, "", nil, nil, false))
	require.NoError(t, AddTask(ctx, db.DB, "b", nil, "", nil, nil, false))
	require.NoError(t, AddBlock(ctx, db.DB, "a", "b"))
	require.NoError(t, RemoveBlock(ctx, db.DB, "a", "b"))
	blockers, err := GetBlockers(ctx, db.DB, "b")
	require.NoError(t, err)
	require.Empty(t, blockers)
}

func TestSearchMatchesTaskNameDescriptionAndNotes(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "alpha", nil, "fix the widget", nil, nil, false))
	require.NoError(t, AddNote(ctx, db.DB, "alpha", "needs a gadget too"))
	require.NoError(t, AddTask(ctx, db.DB, "beta", nil, "unrelated", nil, nil, false))

	results, err := Search(ctx, db.DB, "widget")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "alpha", results[0].Task.Name)

	results, err = Search(ctx, db.DB, "gadget")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Contains(t, results[0].MatchedIn, "notes")
}

func TestSearchIncludesDoneTasks(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, AddTask(ctx, db.DB, "alpha", nil, "widget work", nil, nil, false))
	require.NoError(t, MarkDone(ctx, db.DB, "alpha"))

	results, err := Search(ctx, db.DB, "widget")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearchEmptyQueryFails(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := Search(ctx, db.DB, "   ")
	require.Error(t, err)
	var empty *EmptyQueryError
	require.ErrorAs(t, err, &empty)
}
