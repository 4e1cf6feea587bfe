package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nsxbet/sql-scanner/pkg/config"
	"github.com/nsxbet/sql-scanner/pkg/logger"
)

var (
	cfgFile string

	// Version is stamped at build time with -ldflags "-X .../cmd.Version=...".
	Version = "dev"

	log *logger.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sql-scanner",
	Short: "An AI assisted scanner for SQL migrations",
	Long: `SQL Scanner reads the SQL migration files of a GitLab project,
classifies them by database type and asks a language model to review
each file for syntax, performance and security problems.

It supports Ollama and any OpenAI compatible API as analysis backend.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logger.Init(viper.GetBool("debug"), viper.GetBool("verbose"))
		if used := viper.ConfigFileUsed(); used != "" {
			log.Debug("Using config file", "file", used)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yaml in the working or home directory)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

// initConfig locates the config file and binds the environment overrides.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	cobra.CheckErr(config.BindEnv(viper.GetViper()))

	if err := viper.ReadInConfig(); err != nil {
		slog.Debug("No config file loaded", "error", err)
	}
}

// loadConfig reads the scanner configuration and applies the environment
// overrides. A missing or invalid file is fatal for every command.
func loadConfig() (*config.Config, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		return nil, errors.New("no configuration file found, pass --config")
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(viper.GetViper())
	return cfg, nil
}
