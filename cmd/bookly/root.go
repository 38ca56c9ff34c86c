package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/booklyapp/bookly/internal/config"
	"github.com/booklyapp/bookly/internal/di"
)

// app carries the global flags shared by every command.
type app struct {
	flags   config.Flags
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bookly",
		Short:         "Track the books you own, read and want to read",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// One-shot commands stay quiet unless asked otherwise.
			if cmd.Name() != "serve" && a.flags.LogLevel == "" && os.Getenv("LOG_LEVEL") == "" {
				a.flags.LogLevel = "warn"
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.Env, "env", "", "environment: development, staging or production")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&a.flags.DataPath, "data", "", "data directory (default ~/Bookly/data)")
	pf.StringVar(&a.flags.StorageBackend, "backend", "", "storage backend: badger or sqlite")
	pf.StringVar(&a.flags.Namespace, "namespace", "", "storage key namespace")
	pf.StringVar(&a.flags.SeedPath, "seed", "", "seed catalog JSON file (default: embedded catalog)")
	pf.StringVar(&a.flags.EnvFile, "env-file", "", "path of the .env file (default .env)")
	pf.BoolVar(&a.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(
		newServeCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newRmCmd(a),
		newRateCmd(a),
		newStatusCmd(a),
		newStatsCmd(a),
		newSearchCmd(a),
		newInspectCmd(a),
	)

	return root
}

// withCore opens storage and the domain services for one command and closes them afterwards.
func (a *app) withCore(fn func(ctx context.Context, injector do.Injector, core *di.Core) error) error {
	injector := di.NewContainer(a.flags)
	defer func() {
		_ = injector.Shutdown()
	}()

	core, err := di.InvokeCore(injector)
	if err != nil {
		return err
	}
	return fn(context.Background(), injector, core)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func notFound(id string) error {
	return fmt.Errorf("book %s not found", id)
}
