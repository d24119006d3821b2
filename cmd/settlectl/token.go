package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ridersettle/internal/auth"
	"ridersettle/internal/model"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API access tokens",
	}
	cmd.AddCommand(newTokenAddCmd())
	return cmd
}

func newTokenAddCmd() *cobra.Command {
	var role, companyID, branchID string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Issue a new access token and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller := model.Caller{Role: model.Role(role), CompanyID: companyID, BranchID: branchID}
			switch caller.Role {
			case model.RoleSuperAdmin, model.RoleCompanyAdmin, model.RoleBranchManager, model.RoleRider:
			default:
				return fmt.Errorf("invalid role: %s", role)
			}
			if caller.Role == model.RoleBranchManager && branchID == "" {
				return fmt.Errorf("branch_manager requires --branch")
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

			token := auth.NewToken()
			if err := st.PutToken(cmd.Context(), token, caller); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(model.RoleBranchManager), "Role: super_admin, company_admin, branch_manager, rider")
	cmd.Flags().StringVar(&companyID, "company", "", "Company id")
	cmd.Flags().StringVar(&branchID, "branch", "", "Branch id")
	return cmd
}
