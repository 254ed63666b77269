package score

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// DefaultJustification is used when a constraint does not map its matches
// to a custom justification: the matched facts and the impact.
type DefaultJustification struct {
	Facts  []any
	Impact Score
}

func (j DefaultJustification) String() string {
	parts := make([]string, len(j.Facts))
	for i, f := range j.Facts {
		parts[i] = fmt.Sprintf("%v", f)
	}
	return fmt.Sprintf("[%s] %s", strings.Join(parts, ", "), j.Impact)
}

// Explanation is a read-only snapshot of why a session has its score.
type Explanation struct {
	Score       Score
	Totals      []ConstraintMatchTotal
	Indictments []Indictment
}

// Explain snapshots the accumulator. Indictments are only filled in when
// matches are tracked.
func Explain(a *Accumulator) (Explanation, error) {
	e := Explanation{Score: a.Score(), Totals: a.Totals()}
	if !a.TracksMatches() {
		return e, nil
	}
	ind, err := a.Indictments()
	if err != nil {
		return e, fmt.Errorf("explain: %w", err)
	}
	e.Indictments = ind
	return e, nil
}

// String renders the constraint totals and, when present, the indictments.
func (e Explanation) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Score: %s (feasible: %t)\n", e.Score, e.Score.IsFeasible())

	tw := table.NewWriter()
	tw.SetTitle("CONSTRAINTS")
	tw.AppendHeader(table.Row{"Constraint", "Weight", "Matches", "Score"})
	for _, t := range e.Totals {
		tw.AppendRow(table.Row{t.Constraint.ID(), t.Weight.String(), t.MatchCount, t.Score.String()})
	}
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	sb.WriteString(tw.Render())
	sb.WriteString("\n")

	if len(e.Indictments) > 0 {
		iw := table.NewWriter()
		iw.SetTitle("INDICTMENTS")
		iw.AppendHeader(table.Row{"Object", "Matches", "Score", "Constraints"})
		for _, ind := range e.Indictments {
			iw.AppendRow(table.Row{fmt.Sprintf("%v", ind.Object), ind.MatchCount, ind.Score.String(), constraintsOf(ind)})
		}
		iw.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 48}})
		iw.SetStyle(style)
		sb.WriteString(iw.Render())
		sb.WriteString("\n")
	}
	return sb.String()
}

func constraintsOf(ind Indictment) string {
	seen := map[string]bool{}
	var ids []string
	for _, m := range ind.Matches {
		id := m.Constraint.ID()
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return strings.Join(ids, ", ")
}
