package score

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidScore = errors.New("invalid score")

// ParseDefinition reads "simple", "hard_soft", "hard_medium_soft" or
// "bendable:<hard>/<soft>".
func ParseDefinition(text string) (Definition, error) {
	t := strings.ToLower(strings.TrimSpace(text))
	switch t {
	case "simple":
		return Simple, nil
	case "hard_soft", "hardsoft":
		return HardSoft, nil
	case "hard_medium_soft", "hardmediumsoft":
		return HardMediumSoft, nil
	}
	if rest, ok := strings.CutPrefix(t, "bendable:"); ok {
		h, s, ok := strings.Cut(rest, "/")
		if ok {
			hard, err1 := strconv.Atoi(h)
			soft, err2 := strconv.Atoi(s)
			if err1 == nil && err2 == nil {
				return Bendable(hard, soft)
			}
		}
	}
	return Definition{}, fmt.Errorf("unknown score type %q", text)
}

// Parse reads the textual form produced by Score.String for this definition.
func (d Definition) Parse(text string) (Score, error) {
	t := strings.TrimSpace(text)
	fail := func(reason string) (Score, error) {
		return Score{}, fmt.Errorf("%w: %q is not a %s score: %s", ErrInvalidScore, text, d, reason)
	}
	switch d.kind {
	case SimpleKind:
		v, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return fail(err.Error())
		}
		return SimpleOf(v), nil
	case HardSoftKind, HardMediumSoftKind:
		suffixes := []string{"hard", "soft"}
		if d.kind == HardMediumSoftKind {
			suffixes = []string{"hard", "medium", "soft"}
		}
		parts := strings.Split(t, "/")
		if len(parts) != len(suffixes) {
			return fail(fmt.Sprintf("expected %d parts", len(suffixes)))
		}
		levels := make([]int64, len(parts))
		for i, p := range parts {
			num, ok := strings.CutSuffix(p, suffixes[i])
			if !ok {
				return fail(fmt.Sprintf("part %q lacks suffix %q", p, suffixes[i]))
			}
			v, err := strconv.ParseInt(num, 10, 64)
			if err != nil {
				return fail(err.Error())
			}
			levels[i] = v
		}
		return d.Of(levels...)
	case BendableKind:
		// [h1/h2]hard/[s1/s2/s3]soft
		hardPart, softPart, ok := strings.Cut(t, "]hard/[")
		if !ok || !strings.HasPrefix(hardPart, "[") || !strings.HasSuffix(softPart, "]soft") {
			return fail("expected [..]hard/[..]soft")
		}
		hard, err := parseLevelList(strings.TrimPrefix(hardPart, "["), d.HardLevels())
		if err != nil {
			return fail(err.Error())
		}
		soft, err := parseLevelList(strings.TrimSuffix(softPart, "]soft"), d.SoftLevels())
		if err != nil {
			return fail(err.Error())
		}
		return d.Of(append(hard, soft...)...)
	}
	return fail("unknown score kind")
}

func parseLevelList(text string, n int) ([]int64, error) {
	if n == 0 {
		if text != "" {
			return nil, fmt.Errorf("expected no levels, got %q", text)
		}
		return nil, nil
	}
	parts := strings.Split(text, "/")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d levels, got %d", n, len(parts))
	}
	out := make([]int64, n)
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
