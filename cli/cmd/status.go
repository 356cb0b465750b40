package cmd

import (
	"fmt"

	"github.com/Ch4lkP0wd3r/CalcPro/internal/mem"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine status",
	Long:  "Display setup state, storage backend and memory protection level. Says nothing about vault contents.",
	RunE:  showStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func showStatus(cmd *cobra.Command, args []string) error {
	status, err := engine.Status()
	if err != nil {
		return err
	}

	fmt.Println("Engine Status")
	fmt.Println("=============")
	fmt.Printf("Setup Complete:    %v\n", status.IsSetup)
	fmt.Printf("Store Type:        %s\n", status.StoreType)
	fmt.Printf("Memory Protection: %s\n", protectionName(status.MemoryProtection))
	fmt.Printf("Vault Path:        %s\n", vaultPath)

	return nil
}

func protectionName(level mem.ProtectionLevel) string {
	switch level {
	case mem.ProtectionFull:
		return "full (memory locked)"
	case mem.ProtectionPartial:
		return "partial"
	default:
		return "none"
	}
}
