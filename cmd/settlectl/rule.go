package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ridersettle/internal/model"
	"ridersettle/internal/rule"
)

func newRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Inspect and store parsing rules",
	}
	cmd.AddCommand(newRuleValidateCmd(), newRulePutCmd(), newRuleTemplatesCmd())
	return cmd
}

func readRuleFile(path string) (*model.ParsingRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return rule.Parse(data)
}

func newRuleValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [rule.json]",
		Short: "Validate a parsing rule and print its normalized form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := readRuleFile(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, r)
		},
	}
}

func newRulePutCmd() *cobra.Command {
	var branchID, companyID, platform string
	cmd := &cobra.Command{
		Use:   "put [rule.json]",
		Short: "Store a parsing rule for a branch and platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := readRuleFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, _, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.PutRule(cmd.Context(), companyID, branchID, platform, r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rule stored for %s / %s\n", branchID, platform)
			return nil
		},
	}
	cmd.Flags().StringVar(&branchID, "branch", "", "Branch id")
	cmd.Flags().StringVar(&companyID, "company", "", "Company id")
	cmd.Flags().StringVar(&platform, "platform", "", "Platform name")
	cmd.MarkFlagRequired("branch")
	cmd.MarkFlagRequired("platform")
	return cmd
}

func newRuleTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "Print the built-in rule templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, rule.Templates())
		},
	}
}
