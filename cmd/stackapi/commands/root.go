package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fivetwenty-io/stackapi/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand creates the stackapi command with every subcommand attached.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stackapi",
		Short: "Stack Exchange API v2.1 CLI",
		Long: `A command-line interface for the Stack Exchange API v2.1.

Query any site of the network, create filters, authorize with OAuth and
manage the local response cache.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.stackapi/config.yml)")
	flags.StringP("key", "k", "", "application key")
	flags.StringP("site", "s", "", "site to query, e.g. stackoverflow")
	flags.String("access-token", "", "OAuth access token")
	flags.StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Bool("no-color", false, "disable colored output")

	// Bind flags to viper
	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("key", flags.Lookup("key"))
	_ = viper.BindPFlag("site", flags.Lookup("site"))
	_ = viper.BindPFlag("access_token", flags.Lookup("access-token"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("no_color", flags.Lookup("no-color"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig()
	}

	// Add commands
	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewQueryCommand())
	rootCmd.AddCommand(NewSitesCommand())
	rootCmd.AddCommand(NewSiteInfoCommand())
	rootCmd.AddCommand(NewFilterCommand())
	rootCmd.AddCommand(NewOAuthCommand())
	rootCmd.AddCommand(NewCacheCommand())
	rootCmd.AddCommand(NewTypesCommand())

	return rootCmd
}

// initConfig reads the config file and STACKAPI_* environment variables.
func initConfig() error {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := ConfigDir()
		if err != nil {
			return err
		}

		// Search config in ~/.stackapi/config.yml
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("STACKAPI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	err := viper.ReadInConfig()
	if err == nil {
		newLogger(os.Stderr).Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")

		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if cfgFile == "" && errors.As(err, &notFound) {
		return nil
	}

	if cfgFile != "" {
		if _, statErr := os.Stat(cfgFile); os.IsNotExist(statErr) {
			return nil
		}
	}

	return fmt.Errorf("failed to read config file: %w", err)
}
