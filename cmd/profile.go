package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-audit/internal/api"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Resolve and print the network profile",
	Long: `Resolve the public IP, geolocation, VPN, IPv6 and HTTPS state of this machine.

The command exits non-zero when the public IP could not be resolved. A failed
VPN, IPv6 or HTTPS probe keeps its previous value and is only logged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		services, err := appCtx.services()
		if err != nil {
			return err
		}

		done, err := services.Profile.Refresh()
		if err != nil {
			return fmt.Errorf("failed to refresh network profile: %w", err)
		}
		if err := waitAll(cmd.Context(), done); err != nil {
			return err
		}

		state := services.Profile.State()
		out := cmd.OutOrStdout()
		if appCtx.Config.Profile.JSON {
			resp := api.ProfileResponse{Snapshot: state.Snapshot, IsLoading: state.IsLoading, Error: state.Error}
			if err := writeJSON(out, resp); err != nil {
				return fmt.Errorf("failed to encode profile: %w", err)
			}
		} else {
			renderProfile(out, state)
		}

		if state.Error != "" {
			return &ProfileError{Message: state.Error}
		}
		return nil
	},
}

func init() {
	profileCmd.Flags().BoolVar(&cliConfig.Profile.JSON, "json", false, "print the profile as JSON")
	profileCmd.Flags().IntVar(&cliConfig.Profile.StepTimeoutSecs, "step-timeout", defaultStepTimeoutSeconds, "timeout in seconds for each resolution step")
}
