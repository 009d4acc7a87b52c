package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/samuelreed/dmux/internal/action"
	"github.com/samuelreed/dmux/internal/analyzer"
	"github.com/samuelreed/dmux/internal/callback"
	"github.com/samuelreed/dmux/internal/config"
	"github.com/samuelreed/dmux/internal/daemon"
	"github.com/samuelreed/dmux/internal/git"
	"github.com/samuelreed/dmux/internal/harness"
	"github.com/samuelreed/dmux/internal/httpapi"
	"github.com/samuelreed/dmux/internal/layout"
	"github.com/samuelreed/dmux/internal/merge"
	"github.com/samuelreed/dmux/internal/pane"
	"github.com/samuelreed/dmux/internal/store"
	"github.com/samuelreed/dmux/internal/stream"
	"github.com/samuelreed/dmux/internal/tmux"
	"github.com/samuelreed/dmux/internal/worker"
)

// buildConfig parameterizes build with everything the CLI flags resolve.
type buildConfig struct {
	ProjectRoot string
	ProjectName string
	Session     string
	DmuxDir     string
	SocketPath  string
	HTTPAddr    string
	TmuxSocket  string
}

// app holds every long-lived component build assembles, so main can shut
// them down cleanly on exit.
type app struct {
	Daemon *daemon.Daemon

	store   *store.Store
	watcher *store.Watcher
	workers *workerPool
	cancel  context.CancelFunc
}

// Close releases background resources that outlive a single Daemon.Run
// call: the file watcher and any still-running per-pane workers.
func (a *app) Close() error {
	a.cancel()
	a.workers.stopAll()
	if a.watcher != nil {
		return a.watcher.Stop()
	}
	return nil
}

// build wires the Action Dispatcher, Pane Manager, Merge Orchestrator,
// Layout Engine, Tmux Service, and State Store into one daemon.Config, the
// assembly the review found missing: nothing here is new domain logic,
// every package below already existed as an isolated, independently
// tested unit — build just connects them the way the module layout says
// they connect.
func build(cfg buildConfig) (*app, error) {
	tmuxSocket := cfg.TmuxSocket
	if tmuxSocket == "" {
		tmuxSocket = "default"
	}
	tmuxClient := tmux.NewRetrying(tmux.NewClient(tmuxSocket))
	tmuxClient.Logf = func(format string, args ...any) { log.Printf("[tmux] "+format, args...) }

	gitFor := func(path string) git.GitClient { return git.New(path) }
	projectGit := gitFor(cfg.ProjectRoot)

	claudeH := harness.NewClaude()
	codexH := harness.NewCodex()
	openCodeH := harness.NewOpenCode()
	harnesses := harness.NewRegistry(claudeH, codexH, openCodeH)

	st, err := store.New(store.Config{
		Dir:      cfg.DmuxDir,
		Terminal: &terminalLister{tmux: tmuxClient, session: cfg.Session},
	})
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	watcher, err := store.NewWatcher(st, cfg.DmuxDir, 0)
	if err != nil {
		log.Printf("[dmuxd] state file watcher disabled: %v", err)
	}

	settings := st.GetSettings()

	layoutEngine := &layout.Engine{
		Tmux: tmuxClient,
		Logf: func(format string, args ...any) { log.Printf("[layout] "+format, args...) },
	}

	llmAnalyzer := analyzer.NewLLMAnalyzer(claudeH, codexH, openCodeH)

	workerCtx, cancel := context.WithCancel(context.Background())
	workers := newWorkerPool(tmuxClient, llmAnalyzer, st)

	mgr := &pane.Manager{
		Git:            projectGit,
		Tmux:           tmuxClient,
		Layout:         layoutEngine,
		Store:          st,
		Harnesses:      harnesses,
		Session:        cfg.Session,
		ProjectRoot:    cfg.ProjectRoot,
		ProjectName:    cfg.ProjectName,
		BranchPrefix:   settings.BranchPrefix,
		PermissionMode: settings.PermissionMode,
		Hooks: pane.Hooks{
			PaneCreated: func(p *pane.Pane) { workers.spawn(workerCtx, p) },
		},
	}

	orchestrator := &merge.Orchestrator{
		GitFor:   gitFor,
		Commit:   commitQuery(harnesses),
		Spawner:  &conflictSpawner{mgr: mgr, harnesses: harnesses},
		Monitor:  conflictMonitor(gitFor),
		Close:    closeKillOnly(mgr),
	}

	dispatcher := action.New()
	dispatcher.Store = st
	dispatcher.Closer = mgr
	dispatcher.Merger = orchestrator
	dispatcher.Dup = &duplicator{mgr: mgr}
	dispatcher.Editor = editorOpener{}
	dispatcher.PR = &ghPROpener{gh: git.NewGH()}
	dispatcher.ClipCopy = action.SystemClipboard

	callbacks := callback.New(0)
	streamer := &stream.Streamer{Capturer: tmuxClient}

	httpServer := &httpapi.Server{
		Store:      st,
		Dispatcher: dispatcher,
		Callbacks:  callbacks,
		Creator:    mgr,
		Keys:       tmuxClient,
		Streamer:   streamer,
	}

	// Reconcile any worktrees left behind by a previous, uncleanly
	// stopped daemon before panes are served to clients.
	if err := mgr.ReconcileOrphans(context.Background()); err != nil {
		log.Printf("[dmuxd] reconcile orphans: %v", err)
	}
	for _, p := range st.ListPanes() {
		workers.spawn(workerCtx, p)
	}
	maybeSeedWelcome(workerCtx, mgr, harnesses)

	d := daemon.New(daemon.Config{
		SocketPath:        cfg.SocketPath,
		HTTPAddr:          cfg.HTTPAddr,
		HTTPHandler:       httpServer.Routes(),
		ReconcileInterval: 30 * time.Second,
		ReconcileFunc:     st.Reload,
		OnCreate: func(ctx context.Context, prompt string, agentName harness.AgentName) (*pane.Pane, error) {
			return mgr.Create(ctx, pane.CreateRequest{Prompt: prompt, ExplicitAgent: agentName})
		},
		OnClose: func(ctx context.Context, paneID string, outcome pane.CloseOutcome) error {
			p, ok := findPane(st, paneID)
			if !ok {
				return fmt.Errorf("pane %q not found", paneID)
			}
			workers.stop(paneID)
			return mgr.Close(ctx, p, outcome, commitBeforeDelete(gitFor, harnesses))
		},
		OnList: st.ListPanes,
	})

	return &app{Daemon: d, store: st, watcher: watcher, workers: workers, cancel: cancel}, nil
}

func findPane(st *store.Store, id string) (*pane.Pane, bool) {
	for _, p := range st.ListPanes() {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// maybeSeedWelcome spawns the onboarding welcome pane on a fresh project
// (no panes yet) so a first-time user lands on something other than an
// empty pane list, using the one-time-only copy the global app state
// tracks across every project this daemon ever runs in.
func maybeSeedWelcome(ctx context.Context, mgr *pane.Manager, harnesses *harness.Registry) {
	err := mgr.SyncWelcome(ctx, func(ctx context.Context) (*pane.Pane, error) {
		prompt := welcomeMessage()
		name, ok := harnesses.Default("")
		if !ok {
			names := harnesses.Names()
			if len(names) == 0 {
				return nil, fmt.Errorf("no agents registered")
			}
			name = names[0]
		}
		return mgr.Create(ctx, pane.CreateRequest{Prompt: prompt, ExplicitAgent: name})
	})
	if err != nil {
		log.Printf("[dmuxd] seed welcome pane: %v", err)
		return
	}
	if config.WelcomePending() {
		if err := config.MarkWelcomeShown(); err != nil {
			log.Printf("[dmuxd] mark welcome shown: %v", err)
		}
	}
}

func welcomeMessage() string {
	if config.WelcomePending() {
		return "Welcome to dmux. Describe what you'd like an agent to work on, " +
			"and a new pane with its own git worktree and branch will be created for it."
	}
	return "Describe what you'd like an agent to work on next."
}
