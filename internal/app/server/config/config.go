package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultSQLitePath = "prefectlog.db"
	defaultEnv        = "local"
)

// Config holds the server settings. An empty DatabaseURI selects the
// embedded SQLite backend.
type Config struct {
	Env         string
	RunAddress  string
	DatabaseURI string
	SQLitePath  string
	LogLevel    string
}

// MustLoad reads the server configuration from the environment, with an
// optional .env file.
func MustLoad() *Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("could not load .env file, relying on environment variables")
		}
	}

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("RUN_ADDRESS", defaultRunAddress)
	viper.SetDefault("SQLITE_PATH", defaultSQLitePath)
	viper.SetDefault("LOG_LEVEL", "info")

	return &Config{
		Env:         viper.GetString("APP_ENV"),
		RunAddress:  viper.GetString("RUN_ADDRESS"),
		DatabaseURI: viper.GetString("DATABASE_URI"),
		SQLitePath:  viper.GetString("SQLITE_PATH"),
		LogLevel:    viper.GetString("LOG_LEVEL"),
	}
}
