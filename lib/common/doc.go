// Package common holds the configuration types and the logger setup shared
// by all dLog packages and the command-line interface.
//
// The logging is based on the dragonboat logger interface (logger.ILogger).
// InitLoggers installs a factory writing to stderr and sets the level of the
// loggers of all dLog packages:
//
//	if err := common.InitLoggers("debug"); err != nil {
//		return err
//	}
package common
