// Package logger provides structured logging for imgcrawl.
//
// It wraps zerolog behind the Logger interface so crawl components can be
// handed a logger (or a TestLogger in tests) instead of reaching for a
// global. A process-wide logger is still available through Initialize and
// GetLogger for the command layer.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("query", "cat")
//	log.InfoWithFields("Image saved", map[string]interface{}{"counter": 1})
//
// Console output is colourised; when a log file is configured, entries are
// written both to the console and (as JSON) to the file.
package logger
