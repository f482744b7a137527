package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/akitasoftware/flowcore/cfg"
	"github.com/akitasoftware/flowcore/elements"
	"github.com/akitasoftware/flowcore/errutil"
	"github.com/akitasoftware/flowcore/printer"
	"github.com/akitasoftware/flowcore/runtime"
)

// buildVersion is set at release time; "dev" covers local builds the
// same way the teacher's version package defaults an unset ldflag.
var buildVersion = "dev"

var (
	graphPathFlag     string
	graphNameFlag     string
	numThreadsFlag    int
	flowTimeoutFlag   time.Duration
	tableCapacityFlag int
	debugFlag         bool
)

var rootCmd = &cobra.Command{
	Use:           "flowcore",
	Short:         "Build and drive graph-based packet-processing pipelines.",
	Long:          "flowcore assembles a declarative graph of elements into a running dataflow pipeline.",
	SilenceErrors: true, // we print our own errors from subcommands in Execute
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI, translating an errutil.ExitError into the
// matching process exit code (adapted from the teacher's cmd/root.go
// Execute function).
func Execute() {
	if cmd, err := rootCmd.ExecuteC(); err != nil {
		cmd.Println(cmd.UsageString())

		exitCode := 1
		var exitErr errutil.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode
		}
		printer.Stderr.Errorf("%s\n", err)
		os.Exit(exitCode)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&graphPathFlag, "graph", "", "Path to a JSON graph definition file")
	rootCmd.PersistentFlags().StringVar(&graphNameFlag, "graph-name", "", "Name of a graph saved under "+cfg.Dir()+"/graphs, used when --graph is not set")
	rootCmd.PersistentFlags().IntVar(&numThreadsFlag, "threads", 1, "Number of scheduler threads")
	rootCmd.PersistentFlags().DurationVar(&flowTimeoutFlag, "flow-timeout", 60*time.Second, "Idle timeout for flow table entries")
	rootCmd.PersistentFlags().IntVar(&tableCapacityFlag, "table-capacity", 65536, "Maximum live entries in the flow classification table")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable verbose logging")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func classRegistry() *runtime.Registry {
	return elements.NewRegistry(elements.RegistryConfig{
		NumThreads:    numThreadsFlag,
		FlowTimeout:   flowTimeoutFlag,
		TableCapacity: tableCapacityFlag,
	})
}

// resolveGraphPath prefers an explicit --graph path, falling back to a
// named graph resolved under cfg.Dir()'s graphs subdirectory.
func resolveGraphPath() (string, error) {
	if graphPathFlag != "" {
		return graphPathFlag, nil
	}
	if graphNameFlag != "" {
		return cfg.GraphPath(graphNameFlag), nil
	}
	return "", errors.New("one of --graph or --graph-name is required")
}

func buildFromFlags() (*runtime.Runtime, error) {
	path, err := resolveGraphPath()
	if err != nil {
		return nil, err
	}
	g, err := runtime.LoadGraph(path)
	if err != nil {
		return nil, err
	}
	return runtime.Build(g, classRegistry(), numThreadsFlag)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build a graph and drive it until SIGINT or the driver-stop flag is raised.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildFromFlags()
		if err != nil {
			return errutil.ExitError{ExitCode: 1, Err: err}
		}
		defer rt.Cleanup()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		go func() {
			<-sig
			printer.Stderr.Infof("Received SIGINT, stopping...\n")
			rt.Stop()
			cancel()
		}()

		if err := rt.Run(ctx); err != nil {
			return errutil.ExitError{ExitCode: 1, Err: err}
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Configure and initialize a graph without running it, reporting any errors.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildFromFlags()
		if err != nil {
			return errutil.ExitError{ExitCode: 1, Err: err}
		}
		rt.Cleanup()
		fmt.Fprintln(cmd.OutOrStdout(), "graph OK")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the flowcore version.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), buildVersion)
		return nil
	},
}
