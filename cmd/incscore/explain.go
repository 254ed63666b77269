package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	cloud "github.com/jtomasevic/incscore/examples/cloud_balancing"
	"github.com/jtomasevic/incscore/pkg/session"
)

type explainOptions struct {
	network bool
	verify  bool
}

func newExplainCmd(p *problemOptions) *cobra.Command {
	o := &explainOptions{}
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Score a generated problem and explain the score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return explain(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), p, o)
		},
	}
	cmd.Flags().BoolVar(&o.network, "network", false, "also print the node network")
	cmd.Flags().BoolVar(&o.verify, "verify", true, "check the score against a full rebuild")
	return cmd
}

func explain(ctx context.Context, out, logOut io.Writer, p *problemOptions, o *explainOptions) error {
	if err := p.validate(); err != nil {
		return err
	}
	f, _, err := p.factory(logOut, session.WithConstraintMatches())
	if err != nil {
		return err
	}
	s, err := f.NewSession()
	if err != nil {
		return err
	}
	for _, fact := range cloud.Generate(p.computers, p.processes, p.seed).Facts() {
		if err := s.Insert(fact); err != nil {
			return err
		}
	}
	if o.verify {
		if err := s.Verify(ctx); err != nil {
			return err
		}
	}

	e, err := s.Explain()
	if err != nil {
		return err
	}
	fmt.Fprint(out, e.String())
	if o.network {
		fmt.Fprintln(out)
		fmt.Fprint(out, s.Network())
	}
	return nil
}
