package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = "local"
	defaultConfigDir     = ".prefectlog"
	defaultMode          = ModeLocal
	defaultRetentionDays = 90
)

// Operating modes. Local keeps all records in the on-device store; remote
// forwards every operation to a shared server.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	Mode          string `mapstructure:"mode"`
	ServerAddress string `mapstructure:"server_address"`
	LogLevel      string `mapstructure:"log_level"`
	ConfigDir     string `mapstructure:"config_dir"`
	DataPath      string `mapstructure:"data_path"`
	BackupDir     string `mapstructure:"backup_dir"`
	RetentionDays int    `mapstructure:"retention_days"`
	AdminPIN      string `mapstructure:"admin_pin"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
}

// MustLoad reads the client configuration from the environment, with an
// optional .env file next to the binary or one directory up.
func MustLoad() *Config {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("could not load .env file: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("MODE", defaultMode)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("RETENTION_DAYS", defaultRetentionDays)
	viper.SetDefault("ENABLE_TLS", false)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("could not create config directory: %v\n", err)
	}

	dataPath := viper.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, "data.json")
	}
	backupDir := viper.GetString("BACKUP_DIR")
	if backupDir == "" {
		backupDir = filepath.Join(configDir, "backups")
	}

	config := &Config{
		Env:           viper.GetString("APP_ENV"),
		Mode:          viper.GetString("MODE"),
		ServerAddress: viper.GetString("SERVER_ADDRESS"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
		ConfigDir:     configDir,
		DataPath:      dataPath,
		BackupDir:     backupDir,
		RetentionDays: viper.GetInt("RETENTION_DAYS"),
		AdminPIN:      viper.GetString("ADMIN_PIN"),
		EnableTLS:     viper.GetBool("ENABLE_TLS"),
	}

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("configuration error: %v", err))
	}

	return config
}

func (c *Config) validate() error {
	if c.Mode != ModeLocal && c.Mode != ModeRemote {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeLocal, ModeRemote, c.Mode)
	}
	if c.Mode == ModeRemote && c.ServerAddress == "" {
		return fmt.Errorf("server_address cannot be empty in remote mode")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention_days cannot be negative")
	}
	return nil
}
