package main

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/deliverycal/internal/config"
)

//go:embed templates/deliverycal.yaml
var configTemplate embed.FS

const templatePath = "templates/deliverycal.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a commented configuration file",
		Long: `Init writes a .deliverycal configuration file with every option and its
default value. The file is created with mode 0600 because it may hold
passwords.

Examples:
  # Create .deliverycal in the current directory
  deliverycal init

  # Create the file in the XDG config directory
  deliverycal init -o ~/.config/deliverycal/config.yaml

  # Overwrite an existing file
  deliverycal init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to check configuration file: %w", err)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nAdd the credentials of the retailers you use, then start tracking with:")
	fmt.Fprintln(out, "  deliverycal run")
	return nil
}
