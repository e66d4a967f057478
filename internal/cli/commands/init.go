package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/flowcanvas/internal/config"
)

// initConfig is the shape written to a fresh flowcanvas.yaml.
type initConfig struct {
	BackendURL string `yaml:"backend_url"`
	Project    int    `yaml:"project,omitempty"`
	StatePath  string `yaml:"state_path"`
	Autosave   struct {
		Interval string `yaml:"interval"`
		Coalesce string `yaml:"coalesce"`
	} `yaml:"autosave"`
	UI struct {
		Port     int  `yaml:"port"`
		AutoOpen bool `yaml:"auto_open"`
	} `yaml:"ui"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var backendURL string
	var projectID int

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a flowcanvas.yaml config file",
		Long: `Write a flowcanvas.yaml with the default settings, ready to edit.

Pass --backend-url and --project to bake in the backend address and the
project to open.`,
		Example: `  # Initialize in the current directory
  flowcanvas init

  # Initialize for a specific backend and project
  flowcanvas init --backend-url http://localhost:8000 --project 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, backendURL, projectID, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&backendURL, "backend-url", config.DefaultBackendURL, "Pipeline backend base URL")
	cmd.Flags().IntVar(&projectID, "project", 0, "Project id to open by default")

	return cmd
}

func runInit(cmd *cobra.Command, dir, backendURL string, projectID int, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "flowcanvas.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("flowcanvas.yaml already exists. Use --force to overwrite")
	}

	cfg := initConfig{
		BackendURL: backendURL,
		Project:    projectID,
		StatePath:  config.DefaultStateFile,
	}
	cfg.Autosave.Interval = config.DefaultAutosaveInterval.String()
	cfg.Autosave.Coalesce = config.DefaultAutosaveCoalesce.String()
	cfg.UI.Port = config.DefaultUIPort
	cfg.UI.AutoOpen = true

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	fmt.Fprintln(cmd.OutOrStdout(), "")
	fmt.Fprintln(cmd.OutOrStdout(), "Next steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  1. Point backend_url at your pipeline backend")
	fmt.Fprintln(cmd.OutOrStdout(), "  2. Set project to the id you want to open")
	fmt.Fprintln(cmd.OutOrStdout(), "  3. Run 'flowcanvas canvas' to open the editor")

	return nil
}
