package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Alias1177/SmartVest/internal/config"
	"github.com/Alias1177/SmartVest/internal/model"
)

func (a *app) profilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "Print the effective risk profiles as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := make(map[string]model.RiskConfig, len(a.profiles))
			for _, name := range config.ProfileNames(a.profiles) {
				cfg := a.profiles[model.Profile(name)]
				if err := cfg.Validate(len(a.cfg.Universe)); err != nil {
					return fmt.Errorf("profile %s: %w", name, err)
				}
				out[name] = cfg
			}

			data, err := yaml.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
