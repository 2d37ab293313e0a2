package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ctxlab/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update stored configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.File()
		if err != nil {
			return err
		}
		key := "(not set)"
		if cfg.APIKey != "" {
			key = "(set)"
		}
		fmt.Printf("Config file: %s\n", path)
		fmt.Printf("api_key:     %s\n", key)
		fmt.Printf("model:       %s\n", cfg.Model)
		fmt.Printf("log_dir:     %s\n", cfg.LogDir)
		fmt.Printf("skills_dir:  %s\n", cfg.SkillsDir)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a config field and persist it (api_key, model, log_dir, skills_dir)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyConfigField(&cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		path, err := config.File()
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s to %s\n", args[0], path)
		return nil
	},
}

func applyConfigField(c *config.Config, field, value string) error {
	switch field {
	case "api_key":
		c.APIKey = value
	case "model":
		c.Model = value
	case "log_dir":
		c.LogDir = value
	case "skills_dir":
		c.SkillsDir = value
	default:
		return fmt.Errorf("unknown config field %q (use api_key, model, log_dir, skills_dir)", field)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configSetCmd)
}
