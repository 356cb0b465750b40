package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Provision the secret and decoy vaults",
	Long: `Set the secret and decoy PINs. The decoy PIN must differ from the secret
PIN; both must satisfy the configured PIN policy. Running setup again
replaces the PINs wholesale but does not delete stored evidence.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	secret, err := promptPIN("Secret PIN")
	if err != nil {
		return err
	}
	confirm, err := promptPIN("Confirm secret PIN")
	if err != nil {
		return err
	}
	if secret != confirm {
		return fmt.Errorf("secret PIN confirmation does not match")
	}

	decoy, err := promptPIN("Decoy PIN")
	if err != nil {
		return err
	}

	if err := engine.Setup(secret, decoy); err != nil {
		return err
	}

	fmt.Println("Vaults provisioned.")
	return nil
}
