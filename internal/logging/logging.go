// Package logging wires the application's structured logger, following
// the teacher's arbor-based setup: console/file writers chosen from
// config, a package-level singleton with a safe fallback for code that
// runs before explicit setup.
package logging

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"

	"github.com/careercrawl/orchestrator/internal/config"
)

var (
	global      arbor.ILogger
	globalMutex sync.RWMutex
)

// Get returns the global logger, falling back to a bare console logger
// with a warning if Setup has not run yet.
func Get() arbor.ILogger {
	globalMutex.RLock()
	if global != nil {
		defer globalMutex.RUnlock()
		return global
	}
	globalMutex.RUnlock()

	globalMutex.Lock()
	defer globalMutex.Unlock()
	if global == nil {
		global = arbor.NewLogger().WithConsoleWriter(consoleWriterConfig("15:04:05.000"))
		global.Warn().Msg("logging.Setup was not called before first use - falling back to console logging")
	}
	return global
}

// Setup configures the global logger from resolved configuration and
// stores it as the package singleton.
func Setup(cfg *config.Config) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFile, hasConsole := false, false
	for _, out := range cfg.Logging.Output {
		switch out {
		case "file":
			hasFile = true
		case "stdout", "console":
			hasConsole = true
		}
	}

	if hasFile {
		logger = logger.WithFileWriter(fileWriterConfig(cfg.Logging.TimeFormat))
	}
	if hasConsole || !hasFile {
		logger = logger.WithConsoleWriter(consoleWriterConfig(cfg.Logging.TimeFormat))
	}

	logger = logger.WithLevelFromString(cfg.Logging.Level)

	globalMutex.Lock()
	global = logger
	globalMutex.Unlock()

	return logger
}

func consoleWriterConfig(timeFormat string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       timeFormat,
		TextOutput:       true,
		DisableTimestamp: false,
	}
}

func fileWriterConfig(timeFormat string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             models.LogWriterTypeFile,
		FileName:         "logs/careercrawl.log",
		TimeFormat:       timeFormat,
		MaxSize:          100 * 1024 * 1024,
		MaxBackups:       3,
		TextOutput:       true,
		DisableTimestamp: false,
	}
}
