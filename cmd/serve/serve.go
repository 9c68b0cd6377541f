// Package serve provides the command that runs the HTTP API, worker pool
// and scheduler.
package serve

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/jobsweep/cmd/common"
	"github.com/jonesrussell/jobsweep/internal/bootstrap"
)

// Command creates the serve command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server, worker pool and scheduler",
		RunE: func(_ *cobra.Command, _ []string) error {
			return bootstrap.Start(common.Options())
		},
	}
}
