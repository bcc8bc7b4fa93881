// Package cmd implements the CLI commands for mdbatch using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gaurav-prasanna/mdbatch/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "mdbatch",
	Short: "mdbatch converts a list of web pages into Markdown files",
	Long: `mdbatch reads a file of page URLs, one per line, and converts every page
into a Markdown file named after its title. Images are downloaded into a
shared images directory with collision-free names, and image links are
pointed at a canonical host.

Usage:
  mdbatch convert [url-file] [flags]`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(viper.GetString(config.KeyLogLevel))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mdbatch.yaml or ~/.config/mdbatch/mdbatch.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mdbatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mdbatch"))
		}
	}

	viper.SetEnvPrefix("MDBATCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Reading config file %s: %v\n", cfgFile, err)
	}
}

func setupLogging(level string) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// Execute runs the root command. SIGINT and SIGTERM cancel tasks that
// have not started yet.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
