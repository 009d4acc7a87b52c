// Command dmuxd is the background process that owns a project's panes:
// it assembles the pane manager, merge orchestrator, layout engine, tmux
// service, and state store into the daemon's control socket + HTTP/SSE
// surface, and runs one worker goroutine per live agent pane.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	flagProjectRoot string
	flagSession     string
	flagSocketPath  string
	flagHTTPAddr    string
	flagTmuxSocket  string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dmuxd",
		Short:   "dmux daemon: orchestrates parallel AI coding agent panes",
		Version: version,
		RunE:    runDaemon,
	}

	cwd, _ := os.Getwd()
	cmd.Flags().StringVar(&flagProjectRoot, "project", cwd, "project root directory")
	cmd.Flags().StringVar(&flagSession, "session", "", "tmux session name (default: project directory name)")
	cmd.Flags().StringVar(&flagSocketPath, "socket", "", "control socket path (default: <project>/.dmux/daemon.sock)")
	cmd.Flags().StringVar(&flagHTTPAddr, "http-addr", "", "address to serve the HTTP/SSE API on, e.g. 127.0.0.1:7890 (empty disables it)")
	cmd.Flags().StringVar(&flagTmuxSocket, "tmux-socket", "", "tmux -S socket path (empty uses tmux's default)")

	return cmd
}

func runDaemon(cmd *cobra.Command, args []string) error {
	projectRoot, err := filepath.Abs(flagProjectRoot)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}

	session := flagSession
	if session == "" {
		session = filepath.Base(projectRoot)
	}

	dmuxDir := filepath.Join(projectRoot, ".dmux")
	if err := os.MkdirAll(dmuxDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dmuxDir, err)
	}

	socketPath := flagSocketPath
	if socketPath == "" {
		socketPath = filepath.Join(dmuxDir, "daemon.sock")
	}

	app, err := build(buildConfig{
		ProjectRoot: projectRoot,
		ProjectName: filepath.Base(projectRoot),
		Session:     session,
		DmuxDir:     dmuxDir,
		SocketPath:  socketPath,
		HTTPAddr:    flagHTTPAddr,
		TmuxSocket:  flagTmuxSocket,
	})
	if err != nil {
		return fmt.Errorf("wire daemon: %w", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("dmuxd listening on %s (session %q, project %s)\n", socketPath, session, projectRoot)
	if flagHTTPAddr != "" {
		fmt.Printf("dmuxd HTTP/SSE API on %s\n", flagHTTPAddr)
	}

	err = app.Daemon.Run(ctx)
	if err != nil && ctx.Err() != nil {
		// Cancelled by signal: expected, not a failure.
		return nil
	}
	return err
}
