// Package httpapi implements the §4.8 HTTP/SSE surface: the same action
// and dialog protocol the TUI drives, exposed over net/http so a remote
// client can list panes, dispatch actions, resolve dialogs, create panes,
// send keystrokes, and stream a pane's terminal.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samuelreed/dmux/internal/action"
	"github.com/samuelreed/dmux/internal/callback"
	"github.com/samuelreed/dmux/internal/harness"
	"github.com/samuelreed/dmux/internal/pane"
	"github.com/samuelreed/dmux/internal/stream"
)

// PaneStore is the narrow slice of internal/store.Store the server needs
// to look panes up for the pane-scoped endpoints.
type PaneStore interface {
	ListPanes() []*pane.Pane
}

// PaneCreator creates a new pane from a prompt and optional explicit
// agent (POST /api/panes); internal/pane.Manager.Create satisfies this.
type PaneCreator interface {
	Create(ctx context.Context, req pane.CreateRequest) (*pane.Pane, error)
}

// KeySender is the narrow slice of tmux the keystroke endpoint needs.
type KeySender interface {
	SendKeys(ctx context.Context, paneID string, keys ...string) error
	InjectText(ctx context.Context, paneID, bufferName, text string) error
}

// Server wires the HTTP surface to its collaborators. A nil field disables
// the endpoints that need it rather than panicking, matching
// action.Dispatcher's own nil-collaborator convention: they return 503,
// except that with a nil Store the pane-scoped endpoints return 404
// because no pane can be found.
type Server struct {
	Store      PaneStore
	Dispatcher *action.Dispatcher
	Callbacks  *callback.Registry
	Creator    PaneCreator
	Keys       KeySender
	Streamer   *stream.Streamer
}

// Routes builds the full §4.8 endpoint set.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/panes", s.handleListPanes)
	mux.HandleFunc("POST /api/panes", s.handleCreatePane)
	mux.HandleFunc("GET /api/actions", s.handleListActions)
	mux.HandleFunc("GET /api/panes/{id}/actions", s.handlePaneActions)
	mux.HandleFunc("POST /api/panes/{id}/actions/{actionId}", s.handleDispatch)
	mux.HandleFunc("POST /api/callbacks/{kind}/{id}", s.handleCallback)
	mux.HandleFunc("POST /api/keys/{id}", s.handleKeys)
	mux.HandleFunc("GET /api/stream/{id}", s.handleStream)
	return mux
}

func (s *Server) findPane(id string) (*pane.Pane, bool) {
	if s.Store == nil {
		return nil, false
	}
	for _, p := range s.Store.ListPanes() {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// paneView is the JSON projection of a pane's Fields snapshot: a stable
// wire shape independent of pane.Fields's own layout.
type paneView struct {
	ID              string `json:"id"`
	Slug            string `json:"slug"`
	Kind            string `json:"kind"`
	Agent           string `json:"agent"`
	WorktreePath    string `json:"worktreePath,omitempty"`
	Branch          string `json:"branch,omitempty"`
	ProjectRoot     string `json:"projectRoot,omitempty"`
	ProjectName     string `json:"projectName,omitempty"`
	AgentStatus     string `json:"agentStatus"`
	OptionsQuestion string `json:"optionsQuestion,omitempty"`
	AgentSummary    string `json:"agentSummary,omitempty"`
	Autopilot       bool   `json:"autopilot"`
	Orphaned        bool   `json:"orphaned"`
}

func toPaneView(p *pane.Pane) paneView {
	f := p.Fields()
	return paneView{
		ID:              f.ID,
		Slug:            f.Slug,
		Kind:            string(f.Kind),
		Agent:           string(f.Agent),
		WorktreePath:    f.WorktreePath,
		Branch:          f.Branch,
		ProjectRoot:     f.ProjectRoot,
		ProjectName:     f.ProjectName,
		AgentStatus:     string(f.AgentStatus),
		OptionsQuestion: f.OptionsQuestion,
		AgentSummary:    f.AgentSummary,
		Autopilot:       f.Autopilot,
		Orphaned:        f.Orphaned,
	}
}

func (s *Server) handleListPanes(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not wired")
		return
	}
	panes := s.Store.ListPanes()
	views := make([]paneView, 0, len(panes))
	for _, p := range panes {
		views = append(views, toPaneView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, action.AllActions)
}

func (s *Server) handlePaneActions(w http.ResponseWriter, r *http.Request) {
	if s.Dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "dispatcher not wired")
		return
	}
	p, ok := s.findPane(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "pane not found")
		return
	}
	writeJSON(w, http.StatusOK, s.Dispatcher.Actions(p))
}

// dialogResponse is the wire shape for any ActionResult, terminal or
// continuable. A continuable result (confirm/choice/input) additionally
// carries callbackKind/callbackId for the client to resolve via
// POST /api/callbacks/{kind}/{id}.
type dialogResponse struct {
	Type         string          `json:"type"`
	Message      string          `json:"message,omitempty"`
	Title        string          `json:"title,omitempty"`
	CallbackKind string          `json:"callbackKind,omitempty"`
	CallbackID   string          `json:"callbackId,omitempty"`
	ConfirmLabel string          `json:"confirmLabel,omitempty"`
	CancelLabel  string          `json:"cancelLabel,omitempty"`
	Choices      []action.Choice `json:"choices,omitempty"`
	Placeholder  string          `json:"placeholder,omitempty"`
	DefaultValue string          `json:"defaultValue,omitempty"`
	TargetPaneID string          `json:"targetPaneId,omitempty"`
}

func (s *Server) toResponse(paneID string, result action.Result) dialogResponse {
	resp := dialogResponse{
		Type:         string(result.Type),
		Message:      result.Message,
		Title:        result.Title,
		ConfirmLabel: result.ConfirmLabel,
		CancelLabel:  result.CancelLabel,
		Choices:      result.Choices,
		Placeholder:  result.Placeholder,
		DefaultValue: result.DefaultValue,
		TargetPaneID: result.TargetPaneID,
	}
	if s.Callbacks == nil {
		return resp
	}
	if id, kind, ok := s.Callbacks.RegisterIfContinuable(paneID, result); ok {
		resp.CallbackID = id
		resp.CallbackKind = string(kind)
	}
	return resp
}

type dispatchBody struct {
	Params map[string]string `json:"params"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if s.Dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "dispatcher not wired")
		return
	}
	p, ok := s.findPane(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "pane not found")
		return
	}
	var body dispatchBody
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body) // empty/absent body is fine, params stay nil
	}
	result := s.Dispatcher.Dispatch(r.Context(), action.Name(r.PathValue("actionId")), p, body.Params)
	writeJSON(w, http.StatusOK, s.toResponse(p.ID, result))
}

type callbackBody struct {
	Confirmed bool   `json:"confirmed"`
	ChoiceID  string `json:"choiceId"`
	Value     string `json:"value"`
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.Callbacks == nil {
		writeError(w, http.StatusServiceUnavailable, "callback registry not wired")
		return
	}
	kind := callback.Kind(r.PathValue("kind"))
	id := r.PathValue("id")
	var body callbackBody
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}

	var (
		result action.Result
		err    error
	)
	switch kind {
	case callback.KindConfirm:
		result, err = s.Callbacks.Confirm(r.Context(), id, body.Confirmed)
	case callback.KindChoice:
		result, err = s.Callbacks.Select(r.Context(), id, body.ChoiceID)
	case callback.KindInput:
		result, err = s.Callbacks.Submit(r.Context(), id, body.Value)
	default:
		writeError(w, http.StatusBadRequest, "unknown callback kind")
		return
	}
	if err != nil {
		if errors.Is(err, callback.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.toResponse("", result))
}

type createPaneBody struct {
	Prompt string            `json:"prompt"`
	Agent  harness.AgentName `json:"agent"`
}

func (s *Server) handleCreatePane(w http.ResponseWriter, r *http.Request) {
	if s.Creator == nil {
		writeError(w, http.StatusServiceUnavailable, "pane creator not wired")
		return
	}
	var body createPaneBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.Creator.Create(r.Context(), pane.CreateRequest{Prompt: body.Prompt, ExplicitAgent: body.Agent})
	if err != nil {
		var ambiguous *pane.AmbiguousAgentError
		if errors.As(err, &ambiguous) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":   "needs agent choice",
				"choices": ambiguous.Choices,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toPaneView(p))
}

// handleStream serves the §4.8 SSE terminal feed: one INIT frame followed
// by PATCH/RESIZE/HEARTBEAT frames until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.Streamer == nil {
		writeError(w, http.StatusServiceUnavailable, "streamer not wired")
		return
	}
	paneID := r.PathValue("id")
	if _, ok := s.findPane(paneID); !ok {
		writeError(w, http.StatusNotFound, "pane not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, err := s.Streamer.Subscribe(r.Context(), paneID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("event: " + string(evt.Kind) + "\ndata: " + string(payload) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
