// Package utils holds the ambient plumbing shared by the fimon commands:
// ConfigurationLoader layers embedded defaults, configuration files and
// environment variables through Viper, and LoggerFactory builds zap loggers.
package utils
