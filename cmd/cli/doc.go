// Package cli builds the fimon command-line interface: the Cobra root command,
// layered configuration loading and zap logging shared by the check, init and
// baseline subcommands.
package cli
