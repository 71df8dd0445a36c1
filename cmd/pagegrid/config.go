// Config loading for the pagegrid CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pagegrid/pagegrid/internal/paths"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDB   = "db"
	cfgKeyUser = "user"
	cfgKeyLang = "lang"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# pagegrid CLI configuration

# Database file (optional; overridable by --db or PAGEGRID_DB)
# db:

# Acting user recorded on saves (optional; overridable by --user)
# user:

# Interface language for column resolution (optional)
# lang: en
`

// loadConfig reads config.yaml from the resolved config directory.
// Environment variables (PAGEGRID_DB, PAGEGRID_USER, PAGEGRID_LANG)
// override file values; flags override both. A missing config.yaml is
// not an error.
func loadConfig() (*viper.Viper, error) {
	configDir, err := paths.ResolveConfigDir(flagConfigDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("PAGEGRID")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// applyConfigDefaults fills flag values the user did not set from the
// configuration.
func applyConfigDefaults(cfg *viper.Viper) {
	if flagUser == "" {
		flagUser = cfg.GetString(cfgKeyUser)
	}
	if flagLang == "" {
		flagLang = cfg.GetString(cfgKeyLang)
	}
}

// ensureDefaultConfigFile creates a default config.yaml if the file
// does not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
