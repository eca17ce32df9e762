// Package logger provides the structured logging interface used throughout
// the scraper.
//
// It wraps zerolog. Console output is human readable with colored levels;
// when a log file is configured every message is also appended to it as a
// JSON line.
//
// Basic Usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("Starting scrape", map[string]interface{}{
//	    "accounts": len(accounts),
//	})
//
// Tests use NewTestLogger to capture messages, or NewNopLogger to discard them.
package logger
