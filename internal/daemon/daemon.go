package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/samuelreed/dmux/internal/harness"
	"github.com/samuelreed/dmux/internal/pane"
)

// ReconcileFunc is called periodically to re-check persisted pane state
// against the live multiplexer. internal/store.Store.Reload satisfies
// this directly: a pane whose TerminalPaneID no longer exists in tmux is
// marked orphaned. Returns an error only for logging; a failed
// reconciliation pass is non-fatal.
type ReconcileFunc func(ctx context.Context) error

// Config holds daemon configuration.
type Config struct {
	SocketPath string

	// HTTPAddr, when non-empty, mounts HTTPHandler (typically
	// internal/httpapi.Server.Routes()) on a TCP listener alongside the
	// control socket, for the §4.8 HTTP/SSE surface.
	HTTPAddr    string
	HTTPHandler http.Handler

	ReconcileInterval time.Duration // default 30s
	ReconcileFunc     ReconcileFunc // nil = skip reconciliation

	// Action handlers — called when a CLI sends requests via socket.
	// If nil, the corresponding action returns "not configured".
	OnCreate func(ctx context.Context, prompt string, agent harness.AgentName) (*pane.Pane, error)
	OnClose  func(ctx context.Context, paneID string, outcome pane.CloseOutcome) error
	OnList   func() []*pane.Pane
}

// Daemon is the background process owning the pane store, the worker
// pool, and the control socket + HTTP surface CLI/TUI clients talk to.
type Daemon struct {
	config     Config
	listener   net.Listener
	httpServer *http.Server
	wg         sync.WaitGroup
	cancel     context.CancelFunc // set during Run, called on shutdown
}

// New creates a new daemon.
func New(config Config) *Daemon {
	return &Daemon{config: config}
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Clean up stale socket
	os.Remove(d.config.SocketPath)

	listener, err := net.Listen("unix", d.config.SocketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	d.listener = listener

	// Accept loop for the control socket
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					log.Printf("[daemon] accept: %v", err)
					time.Sleep(100 * time.Millisecond)
					continue
				}
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.handleConnection(ctx, conn)
			}()
		}
	}()

	// HTTP/SSE surface, if wired
	if d.config.HTTPAddr != "" && d.config.HTTPHandler != nil {
		d.httpServer = &http.Server{Addr: d.config.HTTPAddr, Handler: d.config.HTTPHandler}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[daemon] http: %v", err)
			}
		}()
	}

	// Background reconciliation loop
	if d.config.ReconcileFunc != nil {
		interval := d.config.ReconcileInterval
		if interval == 0 {
			interval = 30 * time.Second
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := d.config.ReconcileFunc(ctx); err != nil {
						log.Printf("[daemon] reconcile: %v", err)
					}
				}
			}
		}()
	}

	// Wait for shutdown
	<-ctx.Done()
	listener.Close()
	if d.httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		d.httpServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	d.wg.Wait()

	// Clean up socket
	os.Remove(d.config.SocketPath)
	return ctx.Err()
}

func (d *Daemon) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Set read deadline to prevent stalled clients from leaking goroutines
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	// Clear deadline for processing + response
	conn.SetReadDeadline(time.Time{})

	var req Request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		writeResponse(conn, Response{Error: "invalid request"})
		return
	}

	resp := d.dispatch(ctx, req)
	writeResponse(conn, resp)
}

func (d *Daemon) dispatch(ctx context.Context, req Request) Response {
	switch req.Action {
	case "ping":
		return Response{OK: true}
	case "create":
		return d.handleCreate(ctx, req.Params)
	case "close":
		return d.handleClose(ctx, req.Params)
	case "list":
		return d.handleList()
	case "shutdown":
		if d.cancel != nil {
			d.cancel()
		}
		return Response{OK: true}
	default:
		return Response{Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}
}

// CreateParams holds parameters for the create action.
type CreateParams struct {
	Prompt string            `json:"prompt"`
	Agent  harness.AgentName `json:"agent,omitempty"`
}

// CloseParams holds parameters for the close action.
type CloseParams struct {
	PaneID  string             `json:"pane_id"`
	Outcome pane.CloseOutcome `json:"outcome"`
}

func (d *Daemon) handleCreate(ctx context.Context, params json.RawMessage) Response {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var p CreateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return Response{Error: fmt.Sprintf("invalid create params: %v", err)}
	}
	if p.Prompt == "" {
		return Response{Error: "prompt is required"}
	}

	if d.config.OnCreate == nil {
		return Response{Error: "create handler not configured"}
	}
	created, err := d.config.OnCreate(ctx, p.Prompt, p.Agent)
	if err != nil {
		var ambiguous *pane.AmbiguousAgentError
		if errors.As(err, &ambiguous) {
			data, _ := json.Marshal(map[string]any{"needs_agent_choice": true, "choices": ambiguous.Choices})
			return Response{OK: false, Error: "ambiguous agent", Data: data}
		}
		return Response{Error: fmt.Sprintf("create failed: %v", err)}
	}

	data, err := json.Marshal(created.Fields())
	if err != nil {
		return Response{Error: fmt.Sprintf("marshal response: %v", err)}
	}
	return Response{OK: true, Data: data}
}

func (d *Daemon) handleClose(ctx context.Context, params json.RawMessage) Response {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var p CloseParams
	if err := json.Unmarshal(params, &p); err != nil {
		return Response{Error: fmt.Sprintf("invalid close params: %v", err)}
	}
	if p.PaneID == "" {
		return Response{Error: "pane_id is required"}
	}
	if p.Outcome == "" {
		p.Outcome = pane.CloseKillOnly
	}

	if d.config.OnClose == nil {
		return Response{Error: "close handler not configured"}
	}
	if err := d.config.OnClose(ctx, p.PaneID, p.Outcome); err != nil {
		return Response{Error: fmt.Sprintf("close failed: %v", err)}
	}
	return Response{OK: true}
}

func (d *Daemon) handleList() Response {
	if d.config.OnList == nil {
		return Response{Error: "list handler not configured"}
	}
	panes := d.config.OnList()
	views := make([]pane.Fields, 0, len(panes))
	for _, p := range panes {
		views = append(views, p.Fields())
	}
	data, err := json.Marshal(views)
	if err != nil {
		return Response{Error: fmt.Sprintf("marshal response: %v", err)}
	}
	return Response{OK: true, Data: data}
}

func writeResponse(conn net.Conn, resp Response) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Printf("[daemon] write response: %v", err)
	}
}
