// Package common holds helpers shared by the subcommands.
package common

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jonesrussell/jobsweep/internal/bootstrap"
	"github.com/jonesrussell/jobsweep/internal/domain"
)

// Options reads the global flags bound on the root command.
func Options() bootstrap.Options {
	return bootstrap.Options{
		ConfigPath: viper.GetString("config"),
		LogLevel:   viper.GetString("log-level"),
		Debug:      viper.GetBool("debug"),
	}
}

// Deps loads config and logger for a command.
func Deps() (*bootstrap.CommandDeps, error) {
	deps, err := bootstrap.NewCommandDeps(Options())
	if err != nil {
		return nil, fmt.Errorf("failed to get dependencies: %w", err)
	}
	return deps, nil
}

// ParseSources converts flag values to sources.
func ParseSources(values []string) ([]domain.Source, error) {
	sources := make([]domain.Source, 0, len(values))
	for _, v := range values {
		s, err := domain.ParseSource(v)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// SourceNames renders sources for table cells.
func SourceNames(sources []domain.Source) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	return names
}
