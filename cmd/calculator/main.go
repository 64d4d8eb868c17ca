package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/abcfe/abcfe-calculator/app"
	"github.com/abcfe/abcfe-calculator/calculator"
	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	conf "github.com/abcfe/abcfe-calculator/config"
	"github.com/abcfe/abcfe-calculator/wallet"
	"github.com/spf13/cobra"
)

// Version info (Injected from Makefile)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	configFile string
	debug      bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "calculator",
		Short:         "Calculator account client",
		Long:          `Runs add and sub operations against a calculator program account derived from the payer key.`,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Register global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Write debug logs to the console")

	rootCmd.AddCommand(operationCmd("add", "Add num1 and num2 to the stored result"))
	rootCmd.AddCommand(operationCmd("sub", "Subtract num1 and num2 from the stored result"))
	rootCmd.AddCommand(resultCmd())
	rootCmd.AddCommand(addressCmd())
	rootCmd.AddCommand(walletCmd())

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", calculator.Describe(err))
		os.Exit(calculator.ExitCode(err))
	}
}

func loadConfig() (*conf.Config, error) {
	cfg, err := conf.NewConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("%w: config: %w", calculator.ErrInvalidInput, err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		// Keep going with logging disabled
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
	}
	return cfg, nil
}

func openSession() (*app.ClientSession, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.NewClientSession(cfg)
}

func operationCmd(op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   op + " <num1> <num2>",
		Short: short,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("%w: %s takes 2 operands, got %d", calculator.ErrInvalidInput, op, len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			operand1, err := calculator.ParseOperand(args[0])
			if err != nil {
				return err
			}
			operand2, err := calculator.ParseOperand(args[1])
			if err != nil {
				return err
			}

			session, err := openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), session.Timeout)
			defer cancel()

			state, err := session.Run(ctx, op, operand1, operand2)
			if err != nil {
				return err
			}

			fmt.Printf("result = %d\n", state.Result)
			return nil
		},
	}
}

func resultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "result",
		Short: "Print the stored result without submitting anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), session.Timeout)
			defer cancel()

			state, err := session.ReadResult(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("result = %d\n", state.Result)
			return nil
		},
	}
}

func addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Show the payer, program and derived calculator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			handle := session.Handle()
			fmt.Printf("Payer:   %s\n", utils.PublicKeyToString(session.Payer().PublicKey()))
			fmt.Printf("Program: %s\n", utils.PublicKeyToString(handle.Owner))
			fmt.Printf("Seed:    %s\n", handle.Seed)
			fmt.Printf("Account: %s\n", utils.PublicKeyToString(handle.Address))
			return nil
		},
	}
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Payer key management commands",
		Long:  `Commands for creating, restoring and encrypting the payer keypair.`,
	}

	cmd.AddCommand(walletCreateCmd())
	cmd.AddCommand(walletRestoreCmd())
	cmd.AddCommand(walletShowCmd())
	cmd.AddCommand(walletEncryptCmd())

	return cmd
}

// Create new payer keypair from a fresh mnemonic
func walletCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new payer keypair with mnemonic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			wm := wallet.NewWalletManager(cfg.Wallet.Path)
			mnemonicWallet, err := wm.CreateWallet()
			if err != nil {
				return fmt.Errorf("failed to create wallet: %w", err)
			}
			path, err := wm.SaveKeypair(cfg.Wallet.KeypairFile)
			if err != nil {
				return err
			}

			fmt.Println("=== New Wallet Created ===")
			fmt.Println("")
			fmt.Println("IMPORTANT: Write down your mnemonic phrase and keep it safe!")
			fmt.Println("If you lose it, you will lose access to your wallet forever.")
			fmt.Println("")
			fmt.Printf("Mnemonic: %s\n", mnemonicWallet.Mnemonic)
			fmt.Printf("Address:  %s\n", mnemonicWallet.Keypair.Address())
			fmt.Println("")
			fmt.Printf("Keypair saved to: %s\n", path)
			return nil
		},
	}
}

// Restore payer keypair from mnemonic
func walletRestoreCmd() *cobra.Command {
	var mnemonic string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore the payer keypair from mnemonic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(mnemonic) == "" {
				return fmt.Errorf("%w: provide a mnemonic phrase with --mnemonic", calculator.ErrInvalidInput)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			wm := wallet.NewWalletManager(cfg.Wallet.Path)
			mnemonicWallet, err := wm.RestoreWallet(mnemonic)
			if err != nil {
				return fmt.Errorf("%w: %w", calculator.ErrInvalidInput, err)
			}
			path, err := wm.SaveKeypair(cfg.Wallet.KeypairFile)
			if err != nil {
				return err
			}

			fmt.Println("=== Wallet Restored ===")
			fmt.Println("")
			fmt.Printf("Address: %s\n", mnemonicWallet.Keypair.Address())
			fmt.Printf("Keypair saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mnemonic, "mnemonic", "m", "", "Mnemonic phrase to restore")
	return cmd
}

func walletShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the configured payer address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			kp, err := wallet.LoadSigner(cfg)
			if err != nil {
				return fmt.Errorf("%w: %w", calculator.ErrInvalidInput, err)
			}

			fmt.Printf("Address: %s\n", kp.Address())
			return nil
		},
	}
}

func walletEncryptCmd() *cobra.Command {
	var (
		output string
		light  bool
	)

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt the payer keypair into a keystore",
		Long:  `Reads the passphrase from ` + wallet.PassphraseEnv + ` and writes a scrypt keystore next to the keypair file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase := os.Getenv(wallet.PassphraseEnv)
			if passphrase == "" {
				return fmt.Errorf("%w: set %s to the keystore passphrase", calculator.ErrInvalidInput, wallet.PassphraseEnv)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			scryptN := wallet.StandardScryptN
			if light {
				scryptN = wallet.LightScryptN
			}

			wm := wallet.NewWalletManager(cfg.Wallet.Path)
			path, err := wm.EncryptKeypair(cfg.Wallet.KeypairFile, output, passphrase, scryptN)
			if err != nil {
				return err
			}

			fmt.Printf("Keystore saved to: %s\n", path)
			fmt.Println("Set Wallet.KeystoreFile in the config to use it.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "keystore.json", "Keystore file name")
	cmd.Flags().BoolVar(&light, "light", false, "Use cheaper scrypt parameters")
	return cmd
}
