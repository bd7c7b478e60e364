// Trackerctl выполняет служебные команды: миграции и разовые проходы с заданным "сейчас".
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "trackerctl",
	Short:         "Subscription tracker maintenance tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	rootCmd.AddCommand(migrateCmd(), evaluateCmd(), notifyCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config path is not set, use --config or CONFIG_PATH")
	}
	return config.Load(configPath)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// parseAt разбирает момент запуска: RFC3339 или дата YYYY-MM-DD
// (полдень в часовом поясе loc). Пустая строка означает текущее время.
func parseAt(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC3339 or YYYY-MM-DD", s)
	}
	return d.Add(12 * time.Hour), nil
}
