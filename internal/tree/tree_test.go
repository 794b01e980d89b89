package tree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kbtz-dev/kbtz/internal/store"
)

func strp(s string) *string { return &s }

func TestFlattenOrdersSiblingsAndNestsChildren(t *testing.T) {
	tasks := []store.Task{
		{Name: "b", Status: store.StatusOpen},
		{Name: "a", Status: store.StatusOpen},
		{Name: "a/1", Parent: strp("a"), Status: store.StatusOpen},
	}
	rows := Flatten(tasks, nil, Collapsed{})
	require.Len(t, rows, 3)
	require.Equal(t, "a", rows[0].Name)
	require.Equal(t, "a/1", rows[1].Name)
	require.Equal(t, 1, rows[1].Depth)
	require.Equal(t, "b", rows[2].Name)
}

func TestFlattenPromotesOrphansToRoots(t *testing.T) {
	tasks := []store.Task{
		{Name: "child", Parent: strp("missing-parent"), Status: store.StatusOpen},
	}
	rows := Flatten(tasks, nil, Collapsed{})
	require.Len(t, rows, 1)
	require.Equal(t, 0, rows[0].Depth)
}

func TestFlattenHidesCollapsedSubtree(t *testing.T) {
	tasks := []store.Task{
		{Name: "a", Status: store.StatusOpen},
		{Name: "a/1", Parent: strp("a"), Status: store.StatusOpen},
	}
	rows := Flatten(tasks, nil, Collapsed{"a": true})
	require.Len(t, rows, 1)
	require.Equal(t, "a", rows[0].Name)
	require.True(t, rows[0].HasChildren)
}

func TestFlattenCarriesBlockedBy(t *testing.T) {
	tasks := []store.Task{{Name: "a", Status: store.StatusOpen}}
	rows := Flatten(tasks, map[string][]string{"a": {"x", "y"}}, Collapsed{})
	require.Equal(t, []string{"x", "y"}, rows[0].BlockedBy)
}

func TestCursorResolveIntentsAgainstSelectedRow(t *testing.T) {
	rows := []Row{{Name: "task-1"}, {Name: "task-2"}}
	c := NewCursor()
	c.MoveDown(len(rows))
	require.Equal(t, Intent{Kind: IntentSpawn, Name: "task-2"}, c.Resolve(rows, 's'))
	require.Equal(t, Intent{Kind: IntentZoomIn, Name: "task-2"}, c.Resolve(rows, 'z'))
	require.Equal(t, Intent{Kind: IntentNone}, c.Resolve(rows, '?'))
}

func TestCursorToggleSelectedOnlyAffectsRowsWithChildren(t *testing.T) {
	rows := []Row{{Name: "leaf", HasChildren: false}}
	c := NewCursor()
	c.ToggleSelected(rows)
	require.False(t, c.Collapsed["leaf"])
}
