package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wkalt/dynconn/cli/util"
	"github.com/wkalt/dynconn/config"
	"github.com/wkalt/dynconn/connector"
	"github.com/wkalt/dynconn/memengine"
	"github.com/wkalt/dynconn/util/log"
)

var (
	configPath  string
	participant string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "dynconn",
	Short: "Inspect field paths and types, and move samples through the in-process engine",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			bailf("%s", err)
		}
		log.Configure(os.Stderr, level)
		if util.StdoutRedirected() {
			color.NoColor = true
		}
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func bailf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func checkErr(err error) {
	if err != nil {
		bailf("error: %v", err)
	}
}

// loadConfig reads --config, falling back to the built-in shapes topology.
func loadConfig() *config.Config {
	if configPath == "" {
		cfg, err := config.Parse([]byte(shapesConfig), "")
		checkErr(err)
		return cfg
	}
	cfg, err := config.Load(configPath)
	checkErr(err)
	return cfg
}

// openConnector starts an in-process engine over the configuration and opens
// --participant on it.
func openConnector(ctx context.Context) *connector.Connector {
	eng := memengine.New(ctx, loadConfig())
	c, err := connector.New(eng, participant, connector.WithContext(ctx))
	checkErr(err)
	return c
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "engine configuration file (default: built-in shapes topology)")
	rootCmd.PersistentFlags().StringVarP(&participant, "participant", "p", shapesParticipant, "participant to open")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "warn", "log level (debug, info, warn, error)")
}
