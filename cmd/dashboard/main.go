package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/abcfe/abcfe-calculator/calculator"
	"github.com/abcfe/abcfe-calculator/common/utils"
	conf "github.com/abcfe/abcfe-calculator/config"
	"github.com/abcfe/abcfe-calculator/internal/dashboard"
	"github.com/abcfe/abcfe-calculator/wallet"
	"github.com/spf13/cobra"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"

	configFile string
	endpoint   string
	account    string
	logPath    string
	refresh    int
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "calculator-dashboard",
		Short: "Localnet 및 계산기 계정 모니터링 대시보드",
		Long: `Calculator Dashboard - localnet 상태와 계산기 계정 결과를 실시간으로 보여주는 TUI

사용 예시:
  calculator-dashboard                          # 설정 파일의 payer 계정 감시
  calculator-dashboard --account <address>      # 특정 계정 감시
  calculator-dashboard --url http://host:8899   # 원격 localnet`,
		Run: func(cmd *cobra.Command, args []string) {
			runDashboard()
		},
	}

	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	rootCmd.Flags().StringVar(&endpoint, "url", "", "Localnet HTTP endpoint (default: Network.RPCURL)")
	rootCmd.Flags().StringVar(&account, "account", "", "감시할 계산기 계정 주소 (default: 설정의 payer에서 유도)")
	rootCmd.Flags().StringVar(&logPath, "log-path", "", "Localnet 로그 경로 (default: LogInfo.Path)")
	rootCmd.Flags().IntVar(&refresh, "refresh", 1, "새로고침 간격 (초)")

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "버전 정보 출력",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Calculator Dashboard v%s (built: %s)\n", Version, BuildTime)
		},
	}
}

// watchedAccount derives the calculator account from the configured payer and program
func watchedAccount(cfg *conf.Config) (string, error) {
	payer, err := wallet.LoadSigner(cfg)
	if err != nil {
		return "", err
	}
	programID, err := wallet.LoadProgramID(cfg)
	if err != nil {
		return "", err
	}
	address, err := calculator.DeriveAddress(payer.PublicKey(), cfg.Program.Seed, programID)
	if err != nil {
		return "", err
	}
	return utils.PublicKeyToString(address), nil
}

func runDashboard() {
	config := dashboard.Config{
		BaseURL:    endpoint,
		Account:    account,
		LogPath:    logPath,
		RefreshSec: refresh,
	}

	// Flags win; the config file fills whatever is left
	if cfg, err := conf.NewConfig(configFile); err == nil {
		if config.BaseURL == "" {
			config.BaseURL = cfg.Network.RPCURL
		}
		if config.LogPath == "" {
			config.LogPath = cfg.LogInfo.Path
		}
		if config.Account == "" {
			if address, err := watchedAccount(cfg); err == nil {
				config.Account = address
			} else {
				fmt.Println("Watching ledger status only:", err)
			}
		}
	} else if config.BaseURL == "" {
		fmt.Println("Error: no --url given and config could not be loaded:", err)
		os.Exit(1)
	}

	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if err := dashboard.Run(config); err != nil {
		fmt.Printf("Dashboard error: %v\n", err)
		os.Exit(1)
	}
}
