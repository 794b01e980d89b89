package batch

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kbtz-dev/kbtz/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTokenizeLineDoubleQuoteOnly(t *testing.T) {
	tokens, err := tokenizeLine(`add foo "it's a task" --note "a \"quoted\" word"`)
	require.NoError(t, err)
	require.Equal(t, []string{"add", "foo", "it's a task", "--note", `a "quoted" word`}, tokens)
}

func TestTokenizeLineUnterminatedQuote(t *testing.T) {
	_, err := tokenizeLine(`add foo "unterminated`)
	require.Error(t, err)
}

func TestResolveHeredocsJoinsBody(t *testing.T) {
	input := "add foo bar --note <<EOF\nline one\nline two\nEOF\ndone foo\n"
	lines, err := resolveHeredocs(input)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, "line one\nline two", lines[0].Tokens[len(lines[0].Tokens)-1])
	require.Equal(t, []string{"done", "foo"}, lines[1].Tokens)
}

func TestResolveHeredocsSkipsBlankAndCommentLines(t *testing.T) {
	input := "\n# a comment\nadd foo bar\n"
	lines, err := resolveHeredocs(input)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 3, lines[0].LineNo)
}

func TestResolveHeredocsUnterminatedHeredocFails(t *testing.T) {
	input := "add foo bar --note <<EOF\nline one\n"
	_, err := resolveHeredocs(input)
	require.Error(t, err)
}

func TestParseCommandRejectsNestedExecWatchWait(t *testing.T) {
	for _, verb := range []string{"exec", "watch", "wait"} {
		_, err := parseCommand([]string{verb})
		require.Errorf(t, err, "expected %s to be rejected inside exec", verb)
	}
}

func TestParseCommandUnknownVerb(t *testing.T) {
	_, err := parseCommand([]string{"frobnicate", "x"})
	require.Error(t, err)
}

func TestRunAddsTasksInOneTransaction(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	script := "add foo \"a task\"\nadd bar \"another task\" --parent foo\ndone foo\n"

	var out, errOut bytes.Buffer
	require.NoError(t, Run(ctx, db.DB, strings.NewReader(script), &out, &errOut))

	foo, err := store.GetTask(ctx, db.DB, "foo")
	require.NoError(t, err)
	require.Equal(t, store.StatusDone, foo.Status)

	bar, err := store.GetTask(ctx, db.DB, "bar")
	require.NoError(t, err)
	require.NotNil(t, bar.Parent)
	require.Equal(t, "foo", *bar.Parent)
}

func TestRunRollsBackWholeScriptOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	script := "add foo \"a task\"\ndone nonexistent\n"

	var out, errOut bytes.Buffer
	err := Run(ctx, db.DB, strings.NewReader(script), &out, &errOut)
	require.Error(t, err)

	_, err = store.GetTask(ctx, db.DB, "foo")
	require.Error(t, err, "the add from the same batch must not have survived the rollback")
}

func TestRunRejectsNestedExecBeforeRunningAnything(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	script := "add foo \"a task\"\nexec\n"

	var out, errOut bytes.Buffer
	err := Run(ctx, db.DB, strings.NewReader(script), &out, &errOut)
	require.Error(t, err)

	_, err = store.GetTask(ctx, db.DB, "foo")
	require.Error(t, err, "a script rejected at parse time must not partially apply")
}

func TestRunListAppliesAssigneeAndBlockedFilters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	script := "add foo \"task foo\" --claim alice\n" +
		"add bar \"task bar\" --claim bob\n" +
		"add baz \"task baz\"\n" +
		"block foo baz\n"

	var setup bytes.Buffer
	require.NoError(t, Run(ctx, db.DB, strings.NewReader(script), &setup, &setup))

	var out bytes.Buffer
	require.NoError(t, Run(ctx, db.DB, strings.NewReader("list --assignee alice\n"), &out, &bytes.Buffer{}))
	require.Contains(t, out.String(), "foo")
	require.NotContains(t, out.String(), "bar")

	out.Reset()
	require.NoError(t, Run(ctx, db.DB, strings.NewReader("list --blocked\n"), &out, &bytes.Buffer{}))
	require.Contains(t, out.String(), "baz")
	require.NotContains(t, out.String(), "foo")
}

func TestRunEmptyScriptIsANoop(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	var out, errOut bytes.Buffer
	require.NoError(t, Run(ctx, db.DB, strings.NewReader("\n# just a comment\n"), &out, &errOut))
	require.Empty(t, out.String())
}
