package score

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore_Arithmetic(t *testing.T) {
	a := HardSoftOf(-1, 10)
	b := HardSoftOf(2, -3)
	require.Equal(t, HardSoftOf(1, 7), a.Add(b))
	require.Equal(t, HardSoftOf(-3, 13), a.Subtract(b))
	require.Equal(t, HardSoftOf(-3, 30), a.Multiply(3))
	require.Equal(t, HardSoftOf(1, -10), a.Negate())
	require.True(t, HardSoft.Zero().IsZero())
	require.False(t, a.IsZero())
}

func TestScore_CompareIsLexicographic(t *testing.T) {
	require.Equal(t, 1, HardSoftOf(0, -100).Compare(HardSoftOf(-1, 100)))
	require.Equal(t, -1, HardSoftOf(0, -2).Compare(HardSoftOf(0, -1)))
	require.Equal(t, 0, HardSoftOf(3, 4).Compare(HardSoftOf(3, 4)))
	require.Equal(t, -1, HardMediumSoftOf(0, -1, 50).Compare(HardMediumSoftOf(0, 0, 0)))
}

func TestScore_Feasibility(t *testing.T) {
	require.True(t, SimpleOf(-5).IsFeasible())
	require.True(t, HardSoftOf(0, -5).IsFeasible())
	require.False(t, HardSoftOf(-1, 5).IsFeasible())
	bend, err := BendableOf([]int64{0, -1}, []int64{3})
	require.NoError(t, err)
	require.False(t, bend.IsFeasible())
}

func TestScore_StringAndParse(t *testing.T) {
	bend, err := BendableOf([]int64{0, -1}, []int64{-2, 0, 7})
	require.NoError(t, err)
	cases := []Score{
		SimpleOf(-5),
		HardSoftOf(-1, -2),
		HardMediumSoftOf(-1, 0, -3),
		bend,
	}
	want := []string{"-5", "-1hard/-2soft", "-1hard/0medium/-3soft", "[0/-1]hard/[-2/0/7]soft"}
	for i, s := range cases {
		require.Equal(t, want[i], s.String())
		parsed, err := s.Definition().Parse(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}
}

func TestScore_ParseErrors(t *testing.T) {
	for _, in := range []string{"", "1hard", "1hard/xsoft", "1soft/1hard", "1hard/2soft/3soft"} {
		_, err := HardSoft.Parse(in)
		require.ErrorIs(t, err, ErrInvalidScore, in)
	}
	bd, err := Bendable(1, 1)
	require.NoError(t, err)
	_, err = bd.Parse("[0/0]hard/[0]soft")
	require.ErrorIs(t, err, ErrInvalidScore)
	_, err = Simple.Parse("abc")
	require.ErrorIs(t, err, ErrInvalidScore)
}

func TestParseDefinition(t *testing.T) {
	d, err := ParseDefinition("hard_soft")
	require.NoError(t, err)
	require.Equal(t, HardSoft, d)

	d, err = ParseDefinition(" Bendable:2/3 ")
	require.NoError(t, err)
	require.Equal(t, 2, d.HardLevels())
	require.Equal(t, 3, d.SoftLevels())
	require.Equal(t, "bendable:2/3", d.String())

	_, err = ParseDefinition("bendable:9/9")
	require.Error(t, err)
	_, err = ParseDefinition("fancy")
	require.Error(t, err)
}

func TestDefinition_Of(t *testing.T) {
	s, err := HardMediumSoft.Of(1, 2, 3)
	require.NoError(t, err)
	require.Equal(t, HardMediumSoftOf(1, 2, 3), s)
	_, err = HardSoft.Of(1)
	require.Error(t, err)
	require.Equal(t, HardSoftOf(1, 0), HardSoft.OneHard())
	require.Equal(t, HardSoftOf(0, 1), HardSoft.OneSoft())
	require.Equal(t, SimpleOf(1), Simple.OneSoft())
}
