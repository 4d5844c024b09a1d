package utils

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Log 进程级 logger，由 Init 创建后注入各组件
var Log = log.Default()

func levelStyle(label, bg, fg string) lipgloss.Style {
	return lipgloss.NewStyle().
		SetString(label).
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color(bg)).
		Foreground(lipgloss.Color(fg)).Bold(true)
}

// New builds a logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level string) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)

	styles := log.DefaultStyles()
	styles.Levels[log.DebugLevel] = levelStyle("DEBUG🔍", "#1E90FF80", "#FFFFFFFF")
	styles.Levels[log.InfoLevel] = levelStyle("INFO🎰", "#90EE9080", "#006400FF")
	styles.Levels[log.WarnLevel] = levelStyle("WARN🃏", "#FFD70080", "#000000FF")
	styles.Levels[log.ErrorLevel] = levelStyle("ERROR🔥", "#FF0000FF", "#00FFFF00")
	styles.Levels[log.FatalLevel] = levelStyle("FATAL⚡️", "#000000FF", "#00FFFF00")
	l.SetStyles(styles)
	return l
}

func Init(level string) *log.Logger {
	Log = New(os.Stderr, level)
	return Log
}
