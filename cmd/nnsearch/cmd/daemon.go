package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/socket"
	"github.com/mommothazaz123/avrae-search-nn/internal/app"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the nnsearch daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check daemon status",
	RunE:  runDaemonStatus,
}

var daemonReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the catalog in the running daemon",
	RunE:  runDaemonReload,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonReloadCmd)
}

func daemonClient() *socket.Client {
	return socket.NewClient(app.SocketPath(cfg))
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	if daemonClient().Ping() {
		fmt.Println(styleMuted.Render("daemon already running"))
		return nil
	}

	a, err := app.New(cfg, app.Options{})
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := a.Start(); err != nil {
		a.Stop()
		return err
	}
	fmt.Printf("%s at %s\n", styleOK.Render("daemon started"), a.Server.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-a.ShutdownCh():
	}

	fmt.Println(styleMuted.Render("shutting down..."))
	return a.Stop()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	client := daemonClient()
	if !client.Ping() {
		fmt.Println(styleMuted.Render("daemon is not running"))
		return nil
	}
	if err := client.Shutdown(); err != nil {
		return err
	}
	fmt.Println(styleOK.Render("daemon stopped"))
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	client := daemonClient()
	if !client.Ping() {
		fmt.Println(styleMuted.Render("daemon is not running"))
		return nil
	}
	h, err := client.Health()
	if err != nil {
		return err
	}
	fmt.Print(formatHealth(h))
	return nil
}

func runDaemonReload(cmd *cobra.Command, args []string) error {
	client := daemonClient()
	if !client.Ping() {
		return fmt.Errorf("daemon is not running")
	}
	res, err := client.Reload()
	if err != nil {
		return err
	}
	fmt.Printf("%s %d entries in %s\n", styleOK.Render("reloaded"), res.CatalogSize, res.Elapsed)
	return nil
}
