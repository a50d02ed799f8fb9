package main

import (
	"os"
	"strings"

	"mentorhub/internal/config"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "mentorhub",
	Short:        "Real-time mentoring rooms: chat, whiteboard and call signaling",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		setupLogger(cfg)
		return nil
	},
}

func init() {
	// .env is optional; system environment variables still apply
	_ = godotenv.Load()

	setupLogger(nil)
	v = config.New()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "HTTP listen port")
	rootCmd.PersistentFlags().String("store", "", "storage backend: mongo or memory")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	bindFlag("port", "port")
	bindFlag("store", "store")
	bindFlag("log_level", "log-level")

	rootCmd.AddCommand(serveCmd, tokenCmd)
}

// bindFlag binds a flag only when it was set, so zero values do not mask env or defaults
func bindFlag(key, flag string) {
	f := rootCmd.PersistentFlags().Lookup(flag)
	cobra.OnInitialize(func() {
		if f.Changed {
			v.Set(key, f.Value.String())
		}
	})
}

func setupLogger(c *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if c != nil {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err == nil && parsed != zerolog.NoLevel {
			level = parsed
		}
		if c.Mode == "dev" {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		} else {
			log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		}
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.SetGlobalLevel(level)
}
