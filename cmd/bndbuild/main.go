// Command bndbuild packages compiled project output into OSGi-compliant
// archives, driving the bundle build engine from declarative configuration.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/osgikit/bndbuild/internal/logging"
)

var logLevelIds = map[logging.Level][]string{
	logging.LevelError: {"error"},
	logging.LevelWarn:  {"warn"},
	logging.LevelInfo:  {"info"},
	logging.LevelDebug: {"debug"},
}

func main() {
	logLevel := logging.LevelInfo

	root := &cobra.Command{
		Use:           "bndbuild",
		Short:         "Build OSGi bundles from declarative instructions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().Var(
		enumflag.New(&logLevel, "log-level", logLevelIds, enumflag.EnumCaseInsensitive),
		"log-level",
		"log level: error, warn, info, debug")

	root.AddCommand(
		buildCommand(&logLevel),
		watchCommand(&logLevel),
		schemaCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
