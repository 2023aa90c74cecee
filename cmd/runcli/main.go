package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/wyfcoding/runtracker/internal/runs/application"
	"github.com/wyfcoding/runtracker/pkg/config"
	"github.com/wyfcoding/runtracker/pkg/logger"
	"github.com/wyfcoding/runtracker/pkg/utils"
)

var (
	configPath string
	inputPath  string
	initial    int64
)

var rootCmd = &cobra.Command{
	Use:   "runcli",
	Short: "run a range-add / longest-run script",
	Long: `
Reads "n m", then n initial values, then m commands from the input and
prints one line per C command:

  N a b k   add k to every position in [a, b]
  C a b     print the longest non-decreasing run inside [a, b]

With --initial the initial values are omitted from the input and every
position starts at the given value.
`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runScript,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "path to config file (only the logger section is used)")
	f.StringVarP(&inputPath, "input", "i", "", "script file, default stdin")
	f.Int64Var(&initial, "initial", 1, "uniform initial value; initial values are then not read from the input")
}

func runScript(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return err
	}
	// stdout 只输出结果
	log := logger.NewWithWriter(cfg.Logger, cmd.ErrOrStderr())

	var in io.Reader = cmd.InOrStdin()
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var uniform *int64
	if cmd.Flags().Changed("initial") {
		uniform = utils.Int64Ptr(initial)
	}
	return application.NewScriptRunner(uniform, log).Run(cmd.Context(), in, cmd.OutOrStdout())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "runcli:", err)
		stop()
		os.Exit(1)
	}
}
