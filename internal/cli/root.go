package cli

import (
	"github.com/spf13/cobra"

	"github.com/fived/therapists/internal/config"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates the root command for the therapists binary
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "therapists",
		Short: "5D questionnaire scoring and analysis service",
		Long: `therapists scores the five-dimension wellbeing questionnaire, stores
patient analyses and serves the history, trend and report API used by
the therapist frontend.`,
		Version:      Version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("config", "config.yaml", "path to the YAML config file")

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewScoreCommand())
	cmd.AddCommand(NewTokenCommand())

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}
