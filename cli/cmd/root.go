package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	calcpro "github.com/Ch4lkP0wd3r/CalcPro"
	"github.com/Ch4lkP0wd3r/CalcPro/audit"
	"github.com/Ch4lkP0wd3r/CalcPro/forensic"
	"github.com/Ch4lkP0wd3r/CalcPro/media"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	cfgFile    string
	vaultPath  string
	engine     *calcpro.Vault
	mediaStore *media.Store
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "calcpro",
	Short: "Encrypted dual-vault evidence store",
	Long: `The storage core behind the CalcPro app: two independent evidence vaults,
each sealed under its own PIN with ChaCha20-Poly1305 and a PBKDF2-stretched
key. A wrong PIN and a missing vault are deliberately indistinguishable.`,
	PersistentPreRunE: initializeEngine,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if engine != nil {
			return engine.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.calcpro.yaml)")
	rootCmd.PersistentFlags().StringVarP(&vaultPath, "vault-path", "p", "", "path to vault storage")
	rootCmd.PersistentFlags().Int("pin-min-length", 4, "minimum PIN length enforced at setup")
	rootCmd.PersistentFlags().Bool("pin-digits-only", true, "restrict PINs to digits at setup")

	bindFlagOrPanic("vault.path", "vault-path")
	bindFlagOrPanic("vault.pin_policy.min_length", "pin-min-length")
	bindFlagOrPanic("vault.pin_policy.digits_only", "pin-digits-only")

	// Audit flags
	rootCmd.PersistentFlags().Bool("audit", false, "enable audit logging")
	rootCmd.PersistentFlags().String("audit-file", "", "audit log file path")

	bindFlagOrPanic("audit.enabled", "audit")
	bindFlagOrPanic("audit.options.file_path", "audit-file")
}

func bindFlagOrPanic(configKey, flagName string) {
	if err := viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")

		viper.SetConfigType("yaml")
		viper.SetConfigName(".calcpro")
	}

	viper.SetEnvPrefix("CALCPRO")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Config file not found is OK - defaults and env vars apply
	}
}

func setDefaults() {
	viper.SetDefault("vault.path", ".calcpro")
	viper.SetDefault("vault.pin_policy.min_length", 4)
	viper.SetDefault("vault.pin_policy.digits_only", true)

	viper.SetDefault("device.brand", "")
	viper.SetDefault("device.model", "")
	viper.SetDefault("device.os_name", "")
	viper.SetDefault("device.os_version", "")
	viper.SetDefault("device.name", "")

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.type", "file")
	viper.SetDefault("audit.options.file_path", "audit.log")
}

func initializeEngine(cmd *cobra.Command, args []string) error {
	// Skip initialization for help, completion and config commands
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", "__complete", "config":
			return nil
		}
	}

	vaultPath = viper.GetString("vault.path")

	if err := os.MkdirAll(vaultPath, 0700); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	// Audit log lives next to the vault unless explicitly placed elsewhere
	if viper.GetString("audit.options.file_path") == "audit.log" {
		viper.Set("audit.options.file_path", filepath.Join(vaultPath, "audit.log"))
	}

	var auditConfig *audit.Config
	if viper.GetBool("audit.enabled") {
		auditConfig = &audit.Config{
			Enabled: true,
			Type:    audit.ConfigType(viper.GetString("audit.type")),
			Options: viper.GetStringMap("audit.options"),
		}
	}

	options := calcpro.Options{
		BasePath: vaultPath,
		PinPolicy: calcpro.PinPolicy{
			MinLength:  viper.GetInt("vault.pin_policy.min_length"),
			DigitsOnly: viper.GetBool("vault.pin_policy.digits_only"),
		},
		Device: forensic.DeviceInfo{
			Brand:      viper.GetString("device.brand"),
			Model:      viper.GetString("device.model"),
			OSName:     viper.GetString("device.os_name"),
			OSVersion:  viper.GetString("device.os_version"),
			DeviceName: viper.GetString("device.name"),
		},
		Audit:            auditConfig,
		EnableMemoryLock: true,
	}

	var err error
	engine, err = calcpro.New(options)
	if err != nil {
		return fmt.Errorf("failed to open vault engine: %w", err)
	}

	mediaStore, err = media.NewStore(filepath.Join(vaultPath, "media"))
	if err != nil {
		return fmt.Errorf("failed to open media store: %w", err)
	}

	return nil
}

// promptPIN reads a PIN from the terminal without echoing it.
func promptPIN(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	pin, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read PIN: %w", err)
	}
	return string(pin), nil
}

// unlockSession prompts for a PIN and opens a session. Callers must Lock it.
func unlockSession() (*calcpro.Session, error) {
	pin, err := promptPIN("PIN")
	if err != nil {
		return nil, err
	}
	return engine.Unlock(pin)
}
