package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prismtools/prism/internal/config"
	"github.com/prismtools/prism/internal/tui"
	"github.com/prismtools/prism/internal/tui/wizards"
	"github.com/prismtools/prism/pkg/prism"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Configure tenant access interactively",
	Long: `Walks through the tenant and API client details and writes them to
prism.yaml in the current directory. Secrets can be left blank in the
file and supplied via PRISM_CLIENT_SECRET / PRISM_REFRESH_TOKEN
instead.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !tui.IsInteractive() {
		return fmt.Errorf("init needs an interactive terminal; write %s by hand or set PRISM_* environment variables: %w",
			config.ConfigFileName, prism.ErrInvalidConfig)
	}

	// Pre-fill from an existing config so init can amend it.
	var existing *config.TenantConfig
	if cfg, err := config.Load("."); err == nil {
		existing = &cfg.Connection
	}

	result, err := wizards.RunInitWizard(existing)
	if err != nil {
		return err
	}
	if result.Cancelled {
		fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
		return nil
	}

	if err := config.Save(".", &config.ProjectConfig{Connection: result.Config}); err != nil {
		return err
	}

	path, _ := filepath.Abs(config.ConfigFileName)
	wizards.ShowInitComplete(path)
	return nil
}
