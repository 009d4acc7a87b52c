package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

// keyRequest is the JSON keystroke descriptor §4.8 names: a named key
// (e.g. "Enter", "a", "ArrowUp") plus modifier booleans.
type keyRequest struct {
	Key   string `json:"key"`
	Shift bool   `json:"shift"`
	Ctrl  bool   `json:"ctrl"`
	Alt   bool   `json:"alt"`
	Meta  bool   `json:"meta"`
}

// compositeLiterals maps a keyRequest that send-keys cannot express
// unambiguously onto the literal bytes to inject via the paste-buffer
// path instead (§4.8: "Shift+Enter and other composite keys use the
// paste-buffer path when send-keys would otherwise be ambiguous").
var compositeLiterals = map[string]string{
	"Enter+Shift": "\n",
	"Tab+Shift":   "\x1b[Z",
}

// translateKey turns req into either a tmux send-keys argument list or a
// literal string to inject via the paste-buffer, mirroring tmux's own
// C-/M- prefix vocabulary for modified keys.
func translateKey(req keyRequest) (sendKeys []string, pasteLiteral string, usePaste bool) {
	if req.Shift {
		if literal, ok := compositeLiterals[req.Key+"+Shift"]; ok {
			return nil, literal, true
		}
	}

	key := req.Key
	prefix := ""
	if req.Ctrl {
		prefix += "C-"
	}
	if req.Alt || req.Meta {
		prefix += "M-"
	}
	if req.Shift && len(key) == 1 {
		key = strings.ToUpper(key)
	}
	return []string{prefix + key}, "", false
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	if s.Keys == nil {
		writeError(w, http.StatusServiceUnavailable, "key sender not wired")
		return
	}
	paneID := r.PathValue("id")
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	keys, literal, usePaste := translateKey(req)
	var err error
	if usePaste {
		err = s.Keys.InjectText(r.Context(), paneID, "dmux-key", literal)
	} else {
		err = s.Keys.SendKeys(r.Context(), paneID, keys...)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
