package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	cloud "github.com/jtomasevic/incscore/examples/cloud_balancing"
	"github.com/jtomasevic/incscore/pkg/score"
	"github.com/jtomasevic/incscore/pkg/session"
)

type runOptions struct {
	moves   int
	workers int
	assert  bool
}

func newRunCmd(p *problemOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply random moves to a generated problem and report the throughput",
		Long: `run generates one problem and gives every worker its own copy and session.
Each worker applies random moves, keeps those that do not worsen the score
and undoes the rest. Every move is one incremental update.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), p, o)
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&o.moves, "moves", 10000, "moves per worker")
	fs.IntVar(&o.workers, "workers", 1, "parallel workers, one session each")
	fs.BoolVar(&o.assert, "assert", false, "verify every move against a full rebuild (slow)")
	return cmd
}

// workerResult is what one worker reports back.
type workerResult struct {
	worker   int
	moves    int
	accepted int
	initial  score.Score
	final    score.Score
	elapsed  time.Duration
	stats    session.Stats
}

func run(ctx context.Context, out, logOut io.Writer, p *problemOptions, o *runOptions) error {
	if err := p.validate(); err != nil {
		return err
	}
	if o.workers < 1 || o.moves < 0 {
		return fmt.Errorf("workers must be positive and moves not negative, got %d and %d", o.workers, o.moves)
	}
	var extra []session.Option
	if o.assert {
		extra = append(extra, session.WithAssertions())
	}
	f, logger, err := p.factory(logOut, extra...)
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "incscore.run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("computers", p.computers),
		attribute.Int("processes", p.processes),
		attribute.Int("workers", o.workers),
		attribute.Int("moves", o.moves),
	)

	problem := cloud.Generate(p.computers, p.processes, p.seed)
	results := make([]workerResult, o.workers)
	start := time.Now()

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < o.workers; i++ {
		g.Go(func() error {
			r, err := runWorker(gCtx, f, problem.Clone(), i, o.moves, p.seed+int64(i))
			if err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			results[i] = r
			logger.Info("worker done", "worker", i, "moves", r.moves, "score", r.final.String())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		return err
	}
	elapsed := time.Since(start)
	span.SetStatus(codes.Ok, "")

	report(out, results, elapsed)
	return nil
}

// runWorker hill-climbs on its own copy of the problem.
func runWorker(ctx context.Context, f *session.Factory, sol *cloud.Solution, worker, moves int, seed int64) (workerResult, error) {
	s, err := f.NewSession()
	if err != nil {
		return workerResult{}, err
	}
	for _, fact := range sol.Facts() {
		if err := s.Insert(fact); err != nil {
			return workerResult{}, err
		}
	}

	r := workerResult{worker: worker, initial: s.Score()}
	rng := rand.New(rand.NewSource(seed))
	start := time.Now()
	for ; r.moves < moves; r.moves++ {
		if r.moves%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return r, err
			}
		}
		before := s.Score()
		undo, err := cloud.RandomMove(rng, sol).Do(s)
		if err != nil {
			return r, err
		}
		if s.Score().Compare(before) >= 0 {
			r.accepted++
			continue
		}
		if _, err := undo.Do(s); err != nil {
			return r, err
		}
	}
	r.elapsed = time.Since(start)
	r.final = s.Score()
	r.stats = s.Stats()
	return r, nil
}

func report(out io.Writer, results []workerResult, elapsed time.Duration) {
	tw := table.NewWriter()
	tw.SetTitle("WORKERS")
	tw.AppendHeader(table.Row{"Worker", "Moves", "Accepted", "Initial", "Final", "Moves/s"})
	total := 0
	for _, r := range results {
		total += r.moves
		tw.AppendRow(table.Row{
			r.worker,
			humanize.Comma(int64(r.moves)),
			humanize.Comma(int64(r.accepted)),
			r.initial.String(),
			r.final.String(),
			humanize.Comma(int64(rate(r.moves, r.elapsed))),
		})
	}
	tw.SetStyle(table.StyleLight)
	fmt.Fprintln(out, tw.Render())
	fmt.Fprintf(out, "%s moves in %s (%s moves/s)\n",
		humanize.Comma(int64(total)), elapsed.Round(time.Millisecond), humanize.Comma(int64(rate(total, elapsed))))

	if len(results) > 0 {
		fmt.Fprintln(out, nodeTable(results[0].stats))
	}
}

// nodeTable shows how much work every node of one session did.
func nodeTable(st session.Stats) string {
	tw := table.NewWriter()
	tw.SetTitle(fmt.Sprintf("NETWORK (%d nodes, %d layers, %d facts)", st.Nodes, st.Layers, st.Facts))
	tw.AppendHeader(table.Row{"Node", "Kind", "Layer", "Parents", "Inserted", "Updated", "Retracted"})
	for _, n := range st.PerNode {
		parents := make([]string, len(n.Parents))
		for i, id := range n.Parents {
			parents[i] = fmt.Sprint(id)
		}
		tw.AppendRow(table.Row{
			n.ID,
			n.Kind,
			n.Layer,
			strings.Join(parents, ","),
			humanize.Comma(int64(n.Inserted)),
			humanize.Comma(int64(n.Updated)),
			humanize.Comma(int64(n.Retracted)),
		})
	}
	tw.SetStyle(table.StyleLight)
	return tw.Render()
}

func rate(moves int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(moves) / d.Seconds()
}
