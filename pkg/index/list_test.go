package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestList_AddRemove(t *testing.T) {
	var l List[string]
	a := l.Add("a")
	b := l.Add("b")
	c := l.Add("c")
	require.Equal(t, 3, l.Len())
	require.Equal(t, []string{"a", "b", "c"}, l.Values())

	require.True(t, l.Remove(b))
	require.False(t, b.Added())
	require.False(t, l.Remove(b))
	require.Equal(t, []string{"a", "c"}, l.Values())

	require.True(t, l.Remove(a))
	require.True(t, l.Remove(c))
	require.Zero(t, l.Len())
	require.Nil(t, l.First())
}

func TestList_RemoveForeignElement(t *testing.T) {
	var l1, l2 List[int]
	e := l1.Add(1)
	require.False(t, l2.Remove(e))
	require.False(t, l2.Remove(nil))
	require.Equal(t, 1, l1.Len())
}

func TestList_ForEachAllowsRemovalOfVisited(t *testing.T) {
	var l List[int]
	elems := map[int]*Element[int]{}
	for i := 1; i <= 5; i++ {
		elems[i] = l.Add(i)
	}
	var seen []int
	l.ForEach(func(v int) {
		seen = append(seen, v)
		if v%2 == 0 {
			l.Remove(elems[v])
		}
	})
	require.Equal(t, []int{1, 2, 3, 4, 5}, seen)
	require.Equal(t, []int{1, 3, 5}, l.Values())
}
