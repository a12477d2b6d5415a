package initializer

import (
	"io"
	"log/slog"
	"os"

	"github.com/amirasaad/tripledger/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

type levelStyle struct {
	level log.Level
	icon  string
	color lipgloss.AdaptiveColor
}

var levelStyles = []levelStyle{
	{log.DebugLevel, "🐛", lipgloss.AdaptiveColor{Light: "#7E57C2", Dark: "#7E57C2"}},
	{log.InfoLevel, "ℹ️", lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}},
	{log.WarnLevel, "⚠️", lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}},
	{log.ErrorLevel, "❌", lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF6B6B"}},
}

// ledgerKeys are highlighted so that a purchase can be followed through the logs.
var ledgerKeys = []string{"purchaseId", "gatewayOrderId", "internalOrderId", "status", "error"}

func loggerStyles() *log.Styles {
	styles := log.DefaultStyles()
	for _, ls := range levelStyles {
		styles.Levels[ls.level] = lipgloss.NewStyle().
			SetString(ls.icon).
			Bold(true).
			Padding(0, 1).
			Foreground(ls.color)
	}
	accent := levelStyles[0].color
	for _, key := range ledgerKeys {
		styles.Keys[key] = lipgloss.NewStyle().Foreground(accent)
		styles.Values[key] = lipgloss.NewStyle().Bold(true)
	}
	styles.Keys["error"] = lipgloss.NewStyle().Foreground(levelStyles[3].color)
	return styles
}

func newLogger(w io.Writer, cfg *config.Log) *slog.Logger {
	if cfg == nil {
		cfg = &config.Log{Format: "text", Prefix: "[tripledger]"}
	}
	formatter := log.TextFormatter
	if cfg.Format == "json" {
		formatter = log.JSONFormatter
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           log.Level(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatter,
	})
	logger.SetStyles(loggerStyles())
	return slog.New(logger)
}

func setupLogger(cfg *config.Log) *slog.Logger {
	logger := newLogger(os.Stdout, cfg)
	slog.SetDefault(logger)
	return logger
}
