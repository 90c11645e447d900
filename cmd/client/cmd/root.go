// cmd/client/cmd/root.go
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/slog"

	"prefectlog/internal/app/client"
	"prefectlog/internal/app/client/config"
	"prefectlog/internal/utils/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Build information, set through ldflags.
var (
	Version   = "dev"
	BuildDate = "unknown"
)

var (
	cfgFile   string
	cfg       *config.Config
	log       *slog.Logger
	app       *client.App
	serverURL string
	modeFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "prefectlog",
	Short: "Prefectlog is an offline-first attendance tracker for school prefects",
	Long: `Prefectlog records morning check-ins for school prefects and keeps
them in a durable, self-healing local store.

Records survive restarts, are snapshotted automatically every day, and
can be exported or restored as backup files. The tool works fully
offline; a shared server can be used instead with --mode remote.`,
	Version:           Version,
	PersistentPreRunE: setupApp,
	PersistentPostRun: teardownApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Command-line flags win over the environment.
	if serverURL != "" {
		cfg.ServerAddress = serverURL
		cfg.Mode = config.ModeRemote
	}
	if modeFlag != "" {
		cfg.Mode = modeFlag
	}

	log = logger.New(cfg.Env)

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	app.Start(cmd.Context())
	return nil
}

func teardownApp(_ *cobra.Command, _ []string) {
	if app != nil {
		app.Shutdown()
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		configDir := filepath.Join(home, ".prefectlog")
		viper.AddConfigPath(configDir)
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file found, defaults apply.
	}

	return config.MustLoad(), nil
}

func init() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "address of a shared attendance server (implies --mode remote)")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "operating mode: local or remote")

	rootCmd.SetVersionTemplate(fmt.Sprintf("prefectlog %s (built %s)\n", Version, BuildDate))
}
