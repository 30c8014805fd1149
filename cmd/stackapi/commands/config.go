package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"
	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration file.
type Config struct {
	Key          string `json:"key,omitempty"           yaml:"key,omitempty"`
	ClientID     string `json:"client_id,omitempty"     yaml:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	AccessToken  string `json:"access_token,omitempty"  yaml:"access_token,omitempty"`
	Site         string `json:"site,omitempty"          yaml:"site,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"      yaml:"endpoint,omitempty"`
	Filter       string `json:"filter,omitempty"        yaml:"filter,omitempty"`
	TTL          string `json:"ttl,omitempty"           yaml:"ttl,omitempty"`

	Output  string `json:"output,omitempty" yaml:"output,omitempty"`
	NoColor bool   `json:"no_color"         yaml:"no_color"`

	Cache CacheSettings `json:"cache" yaml:"cache"`
}

// CacheSettings selects and configures the response cache.
type CacheSettings struct {
	Type          string   `json:"type,omitempty"           yaml:"type,omitempty"`
	SQLitePath    string   `json:"sqlite_path,omitempty"    yaml:"sqlite_path,omitempty"`
	RedisURL      string   `json:"redis_url,omitempty"      yaml:"redis_url,omitempty"`
	NATSURL       string   `json:"nats_url,omitempty"       yaml:"nats_url,omitempty"`
	PostgresDSN   string   `json:"postgres_dsn,omitempty"   yaml:"postgres_dsn,omitempty"`
	EtcdEndpoints []string `json:"etcd_endpoints,omitempty" yaml:"etcd_endpoints,omitempty"`
}

// configSetters maps the keys accepted by "config set" to their fields.
var configSetters = map[string]func(config *Config, value string) error{
	"key":           func(c *Config, v string) error { c.Key = v; return nil },
	"client_id":     func(c *Config, v string) error { c.ClientID = v; return nil },
	"client_secret": func(c *Config, v string) error { c.ClientSecret = v; return nil },
	"access_token":  func(c *Config, v string) error { c.AccessToken = v; return nil },
	"site":          func(c *Config, v string) error { c.Site = v; return nil },
	"endpoint":      func(c *Config, v string) error { c.Endpoint = v; return nil },
	"filter":        func(c *Config, v string) error { c.Filter = v; return nil },
	"output":        setOutput,
	"ttl":           setTTL,
	"no_color":      setNoColor,
	"cache.type":    setCacheType,
	"cache.sqlite_path": func(c *Config, v string) error {
		c.Cache.SQLitePath = v

		return nil
	},
	"cache.redis_url":    func(c *Config, v string) error { c.Cache.RedisURL = v; return nil },
	"cache.nats_url":     func(c *Config, v string) error { c.Cache.NATSURL = v; return nil },
	"cache.postgres_dsn": func(c *Config, v string) error { c.Cache.PostgresDSN = v; return nil },
	"cache.etcd_endpoints": func(c *Config, v string) error {
		c.Cache.EtcdEndpoints = splitList(v)

		return nil
	},
}

// secretKeys are masked by "config show".
var secretKeys = map[string]bool{
	"client_secret":      true,
	"access_token":       true,
	"cache.postgres_dsn": true,
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in the configuration file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureColor()

			config := loadConfig()
			properties := configProperties(config)

			for key := range properties {
				if secretKeys[key] && properties[key] != "" {
					properties[key] = constants.MaskedSecret
				}
			}

			return renderProperties(cmd.OutOrStdout(), properties)
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + strings.Join(configKeys(), ", "),
		Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			config := loadConfig()

			err := setConfigValue(config, key, value)
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if secretKeys[key] {
				value = constants.MaskedSecret
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", key, value)

			return err
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value so the default applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			config := loadConfig()

			var err error
			if key == "no_color" {
				config.NoColor = false
			} else {
				err = setConfigValue(config, key, "")
			}

			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", key)

			return err
		},
	}
}

func setConfigValue(config *Config, key, value string) error {
	setter, ok := configSetters[key]
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return setter(config, value)
}

func setOutput(config *Config, value string) error {
	switch value {
	case constants.FormatTable, constants.FormatJSON, constants.FormatYAML, "":
		config.Output = value

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnsupportedOutput, value)
	}
}

func setTTL(config *Config, value string) error {
	if value != "" {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid ttl %q: %w", value, err)
		}
	}

	config.TTL = value

	return nil
}

func setNoColor(config *Config, value string) error {
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid no_color value %q: %w", value, err)
	}

	config.NoColor = enabled

	return nil
}

func setCacheType(config *Config, value string) error {
	switch stackapi.CacheType(value) {
	case stackapi.CacheTypeMemory, stackapi.CacheTypeSQLite, stackapi.CacheTypeRedis, stackapi.CacheTypeNATS,
		stackapi.CacheTypePostgres, stackapi.CacheTypeEtcd, stackapi.CacheTypeNone, "":
		config.Cache.Type = value

		return nil
	default:
		return fmt.Errorf("%w: %s", stackapi.ErrUnsupportedCacheType, value)
	}
}

func configKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for key := range configSetters {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func configProperties(config *Config) map[string]any {
	return map[string]any{
		"key":                  config.Key,
		"client_id":            config.ClientID,
		"client_secret":        config.ClientSecret,
		"access_token":         config.AccessToken,
		"site":                 config.Site,
		"endpoint":             config.Endpoint,
		"filter":               config.Filter,
		"ttl":                  config.TTL,
		"output":               config.Output,
		"no_color":             config.NoColor,
		"cache.type":           config.Cache.Type,
		"cache.sqlite_path":    config.Cache.SQLitePath,
		"cache.redis_url":      config.Cache.RedisURL,
		"cache.nats_url":       config.Cache.NATSURL,
		"cache.postgres_dsn":   config.Cache.PostgresDSN,
		"cache.etcd_endpoints": strings.Join(config.Cache.EtcdEndpoints, ","),
	}
}

// loadConfig reads the settings viper collected from the file, environment and flags.
func loadConfig() *Config {
	return &Config{
		Key:          viper.GetString("key"),
		ClientID:     viper.GetString("client_id"),
		ClientSecret: viper.GetString("client_secret"),
		AccessToken:  viper.GetString("access_token"),
		Site:         viper.GetString("site"),
		Endpoint:     viper.GetString("endpoint"),
		Filter:       viper.GetString("filter"),
		TTL:          viper.GetString("ttl"),
		Output:       viper.GetString("output"),
		NoColor:      viper.GetBool("no_color"),
		Cache: CacheSettings{
			Type:          viper.GetString("cache.type"),
			SQLitePath:    viper.GetString("cache.sqlite_path"),
			RedisURL:      viper.GetString("cache.redis_url"),
			NATSURL:       viper.GetString("cache.nats_url"),
			PostgresDSN:   viper.GetString("cache.postgres_dsn"),
			EtcdEndpoints: viper.GetStringSlice("cache.etcd_endpoints"),
		},
	}
}

// saveConfigStruct writes config to the file in use, or ~/.stackapi/config.yml.
func saveConfigStruct(config *Config) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configDir, err := ConfigDir()
		if err != nil {
			return err
		}

		err = os.MkdirAll(configDir, constants.ConfigDirPerm)
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		configFile = filepath.Join(configDir, "config.yml")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Keep this process in step with the file.
	for key, value := range configProperties(config) {
		viper.Set(key, value)
	}

	viper.Set("cache.etcd_endpoints", config.Cache.EtcdEndpoints)

	return nil
}

// ConfigDir returns ~/.stackapi.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".stackapi"), nil
}

func splitList(value string) []string {
	var items []string

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
