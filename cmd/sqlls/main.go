// Command sqlls is the SQL language server's entry point: a cobra CLI
// exposing a serve subcommand (speaks LSP over stdio or TCP) and a schema
// subcommand (dumps a live database's catalog to a static snapshot file).
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgPath  string
	logLevel string
	log      *zap.SugaredLogger
)

func main() {
	log = newLogger(zap.InfoLevel).Sugar()

	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:   "sqlls",
		Short: "Multi-dialect SQL language server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var lvl zapcore.Level
			if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
				return err
			}
			log = newLogger(lvl).Sugar()
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(schemaCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%s", err)
	}
}

func newLogger(level zapcore.Level) *zap.Logger {
	econf := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(econf), zapcore.AddSync(os.Stderr), level)
	return zap.New(core)
}
