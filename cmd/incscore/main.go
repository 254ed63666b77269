// Command incscore exercises incremental scoring on generated cloud balancing
// problems.
//
//	incscore run --computers 20 --processes 400 --moves 100000 --workers 4
//	incscore explain --computers 4 --processes 12
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"

	cloud "github.com/jtomasevic/incscore/examples/cloud_balancing"
	"github.com/jtomasevic/incscore/pkg/session"
)

var tracer = otel.Tracer("incscore.cmd")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// problemOptions are shared by every subcommand.
type problemOptions struct {
	configPath string
	computers  int
	processes  int
	seed       int64
}

func newRootCmd() *cobra.Command {
	p := &problemOptions{}
	root := &cobra.Command{
		Use:          "incscore",
		Short:        "Incremental constraint scoring on cloud balancing problems",
		SilenceUsage: true,
	}
	addProblemFlags(root.PersistentFlags(), p)
	root.AddCommand(newRunCmd(p), newExplainCmd(p))
	return root
}

func addProblemFlags(fs *pflag.FlagSet, p *problemOptions) {
	fs.StringVar(&p.configPath, "config", "", "session config file (yaml); INCSCORE_* variables override it")
	fs.IntVar(&p.computers, "computers", 10, "number of computers")
	fs.IntVar(&p.processes, "processes", 100, "number of processes")
	fs.Int64Var(&p.seed, "seed", 1, "random seed of the generated problem")
}

func (p *problemOptions) validate() error {
	if p.computers < 1 || p.processes < 1 {
		return fmt.Errorf("need at least one computer and one process, got %d and %d", p.computers, p.processes)
	}
	return nil
}

// factory loads the config and compiles the cloud balancing constraints.
// Log output goes to w.
func (p *problemOptions) factory(w io.Writer, extra ...session.Option) (*session.Factory, *slog.Logger, error) {
	cfg, err := session.LoadConfig(p.configPath)
	if err != nil {
		return nil, nil, err
	}
	// both already validated by LoadConfig
	level, _ := cfg.Level()
	def, _ := cfg.Definition()

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	opts := append([]session.Option{session.WithLogger(logger), session.WithConfig(cfg)}, extra...)
	f, err := session.NewFactory(def, cloud.Constraints, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("build constraints: %w", err)
	}
	logger.Debug("constraints compiled", "score", def, "config", p.configPath)
	return f, logger, nil
}
