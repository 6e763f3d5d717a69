package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Generate a server config file interactively",
	Long: `Generate a config.yaml for the server interactively.

You will be prompted for the server port, storage path, database
backend and logging settings. The result is written as YAML to the
path given by --output (default: ./config.yaml).`,
	RunE: runConfigure,
}

var configureOutput string

func init() {
	configureCmd.Flags().StringVar(&configureOutput, "output", "config.yaml", "path to write the generated config")
	rootCmd.AddCommand(configureCmd)
}

// serverConfigFile mirrors the config package's YAML layout.
type serverConfigFile struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		Type  string `yaml:"type"`
		DSN   string `yaml:"dsn"`
		Table string `yaml:"table"`
	} `yaml:"database"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func runConfigure(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(configureOutput); err == nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("File '%s' already exists. Overwrite it", configureOutput),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	var cfg serverConfigFile

	portPrompt := promptui.Prompt{
		Label:   "Server port",
		Default: "9000",
		Validate: func(input string) error {
			port, err := strconv.Atoi(input)
			if err != nil {
				return errors.New("port must be a number")
			}
			if port < 1 || port > 65535 {
				return errors.New("port must be between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	storagePrompt := promptui.Prompt{
		Label:   "Storage path",
		Default: "./data",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("storage path is required")
			}
			return nil
		},
	}
	if cfg.Storage.Path, err = storagePrompt.Run(); err != nil {
		return handlePromptError(err)
	}

	dbTypeSelect := promptui.Select{
		Label: "Database type",
		Items: []string{"sqlite", "postgres"},
	}
	if _, cfg.Database.Type, err = dbTypeSelect.Run(); err != nil {
		return handlePromptError(err)
	}

	dsnDefault := "ossd.db"
	if cfg.Database.Type == "postgres" {
		dsnDefault = "postgres://localhost:5432/ossd"
	}
	dsnPrompt := promptui.Prompt{
		Label:   "Database DSN",
		Default: dsnDefault,
		Validate: func(input string) error {
			if input == "" {
				return errors.New("DSN is required")
			}
			return nil
		},
	}
	if cfg.Database.DSN, err = dsnPrompt.Run(); err != nil {
		return handlePromptError(err)
	}

	tablePrompt := promptui.Prompt{
		Label:   "Object index table",
		Default: "objects",
	}
	if cfg.Database.Table, err = tablePrompt.Run(); err != nil {
		return handlePromptError(err)
	}

	levelSelect := promptui.Select{
		Label: "Log level",
		Items: []string{"debug", "info", "warn", "error"},
	}
	if _, cfg.Log.Level, err = levelSelect.Run(); err != nil {
		return handlePromptError(err)
	}

	formatSelect := promptui.Select{
		Label: "Log format",
		Items: []string{"text", "json"},
	}
	if _, cfg.Log.Format, err = formatSelect.Run(); err != nil {
		return handlePromptError(err)
	}

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(configureOutput, out, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Config written to %s\n", configureOutput)
	return nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
