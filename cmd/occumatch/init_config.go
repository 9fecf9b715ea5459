package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yashubustudio/occumatch/skillmatch"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a starter occumatch.yaml and classification rules file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := cfgFile
		if path == "" {
			path = app + ".yaml"
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := skillmatch.WriteDefaultConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)

		if rules, _ := cmd.Flags().GetString("rules"); rules != "" {
			if err := skillmatch.EnsureRuleFile(rules); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rules at %s\n", rules)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initConfigCmd)
	initConfigCmd.Flags().Bool("force", false, "overwrite an existing config file")
	initConfigCmd.Flags().String("rules", "classification_rules.json", "also create this classification rules file when missing, empty to skip")
}
