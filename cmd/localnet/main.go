package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/abcfe/abcfe-calculator/app"
	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	conf "github.com/abcfe/abcfe-calculator/config"
	"github.com/abcfe/abcfe-calculator/ledger/rpc"
	"github.com/spf13/cobra"
)

// Version info (Injected from Makefile)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// PID file management - Use user home directory
func getPidFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// fallback to current directory
		return "./localnet.pid"
	}
	return filepath.Join(homeDir, ".abcfe-calculator", "localnet.pid")
}

var (
	pidFile = getPidFilePath()
)

var (
	configFile string
	daemon     bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:     "localnet",
		Short:   "Single node ledger for the calculator program",
		Long:    `Local ledger that executes the system and calculator programs and serves JSON-RPC, websocket signature subscriptions and metrics.`,
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Run: func(cmd *cobra.Command, args []string) {
			runNode()
		},
	}

	// Register global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Write debug logs to the console")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the ledger",
		Run: func(cmd *cobra.Command, args []string) {
			if daemon {
				runNodeDaemon(pidFile)
				return
			}
			runNode()
		},
	}
	startCmd.Flags().BoolVarP(&daemon, "daemon", "d", false, "Run in the background")
	rootCmd.AddCommand(startCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the background ledger",
		Run: func(cmd *cobra.Command, args []string) {
			stopDaemon(pidFile)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the background ledger is running",
		Run: func(cmd *cobra.Command, args []string) {
			showStatus(pidFile)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show ledger information from the running node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showInfo(cmd.Context())
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Failed to execute command:", err)
		os.Exit(1)
	}
}

func runNode() {
	application, err := app.New(configFile)
	if err != nil {
		fmt.Println("Failed to initialize application:", err)
		os.Exit(1)
	}

	application.SigHandler()
	logger.Info("Localnet start.")

	if err := application.StartAll(); err != nil {
		logger.Error("Failed to start services:", err)
		application.Terminate()
		os.Exit(1)
	}

	status := application.Ledger.GetStatus()
	fmt.Printf("Localnet listening on port %d (network %s)\n", application.Conf.Server.RestPort, application.Conf.Common.NetworkID)
	fmt.Printf("Slot %d, blockhash %s\n", status.Slot, utils.HashToString(status.Blockhash))
	if status.Faucet != "" {
		fmt.Printf("Faucet %s\n", status.Faucet)
	}

	application.Wait()
	if os.Getenv("LOCALNET_DAEMON_CHILD") == "1" {
		removePidFile(pidFile)
	}
	logger.Info("Localnet terminated.")
}

func showInfo(ctx context.Context) error {
	cfg, err := conf.NewConfig(configFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := rpc.NewClient(cfg.Network.RPCURL)
	if err := client.GetHealth(ctx); err != nil {
		return fmt.Errorf("localnet at %s is not reachable: %w", cfg.Network.RPCURL, err)
	}

	slot, err := client.GetSlot(ctx)
	if err != nil {
		return err
	}
	blockhash, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Endpoint:  %s\n", cfg.Network.RPCURL)
	fmt.Printf("Network:   %s\n", cfg.Common.NetworkID)
	fmt.Printf("Slot:      %d\n", slot)
	fmt.Printf("Blockhash: %s\n", utils.HashToString(blockhash))
	for _, program := range cfg.Genesis.Programs {
		fmt.Printf("Program:   %s\n", program)
	}
	return nil
}

// Start as daemon - improved logger error handling
func runNodeDaemon(pidFilePath string) {
	// Check if already running
	if isRunning(pidFilePath) {
		fmt.Println("Localnet is already running")
		return
	}

	// Get current executable path
	executable, err := os.Executable()
	if err != nil {
		// Use fmt as logger might not be initialized
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	args := []string{"start"}
	if configFile != "" {
		args = append(args, "--config", configFile)
	}
	cmd := exec.Command(executable, args...)
	cmd.Env = append(os.Environ(), "LOCALNET_DAEMON_CHILD=1")

	// Redirect standard I/O to null (Complete daemonization)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	// Start in a new process group
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	if err := cmd.Start(); err != nil {
		fmt.Printf("Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	if err := writePidFile(pidFilePath, cmd.Process.Pid); err != nil {
		fmt.Printf("Failed to write PID file: %v\n", err)
		cmd.Process.Kill()
		os.Exit(1)
	}

	fmt.Printf("Localnet started as daemon with PID %d\n", cmd.Process.Pid)
}

func stopDaemon(pidFilePath string) {
	pid, err := readPidFile(pidFilePath)
	if err != nil {
		fmt.Println("Localnet is not running or PID file not found")
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Println("Process not found")
		removePidFile(pidFilePath)
		return
	}

	// Send SIGTERM signal
	if err := process.Signal(syscall.SIGTERM); err != nil {
		fmt.Printf("Failed to stop process: %v\n", err)
		return
	}

	fmt.Printf("Stopping localnet (PID: %d)...\n", pid)
	removePidFile(pidFilePath)
}

// Check status
func showStatus(pidFilePath string) {
	fmt.Printf("PID file path: %s\n", pidFilePath)

	if isRunning(pidFilePath) {
		pid, _ := readPidFile(pidFilePath)
		fmt.Printf("Localnet is running (PID: %d)\n", pid)
		return
	}

	fmt.Println("Localnet is not running")
	if _, err := os.Stat(pidFilePath); err == nil {
		fmt.Println("PID file exists but process is not running - cleaning up")
		removePidFile(pidFilePath)
	}
}

// Check if running
func isRunning(pidFilePath string) bool {
	pid, err := readPidFile(pidFilePath)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Check if process is actually alive (Unix/Linux)
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

func readPidFile(pidFilePath string) (int, error) {
	data, err := os.ReadFile(pidFilePath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

func writePidFile(pidFilePath string, pid int) error {
	// Create directory if not exists
	if err := os.MkdirAll(filepath.Dir(pidFilePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath, []byte(strconv.Itoa(pid)), 0644)
}

func removePidFile(pidFilePath string) {
	os.Remove(pidFilePath)
}
