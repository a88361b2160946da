package controlplane

import (
	"net/http"
	"strconv"
	"strings"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.statusSnapshot())
}

func (s *Server) handleSessionsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}
		if s.handlers.ListSessions == nil {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		writeJSON(w, http.StatusOK, s.handlers.ListSessions(limit))
	case http.MethodPost:
		s.withMutation(func(w http.ResponseWriter, r *http.Request) {
			body, err := readJSONBody(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			var req struct {
				FromSessionID string `json:"fromSessionId"`
			}
			_ = jsonUnmarshal(body, &req)
			if s.handlers.CreateSession == nil {
				writeError(w, http.StatusNotImplemented, errNotConfigured)
				return
			}
			result, err := s.handlers.CreateSession(req.FromSessionID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusCreated, result)
		})(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSessionSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		s.withAuth(ScopeRead, func(w http.ResponseWriter, r *http.Request) {
			if s.handlers.GetSession == nil {
				writeError(w, http.StatusNotImplemented, errNotConfigured)
				return
			}
			result, err := s.handlers.GetSession(id)
			if err != nil {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		})(w, r)
	case len(parts) == 2 && parts[1] == "switch":
		s.withMutation(func(w http.ResponseWriter, r *http.Request) {
			body, _ := readJSONBody(r)
			if err := s.handlers.SwitchSession(id, body); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})(w, r)
	case len(parts) == 2 && parts[1] == "route":
		s.withMutation(func(w http.ResponseWriter, r *http.Request) {
			body, _ := readJSONBody(r)
			if err := s.handlers.SetRoute(id, body); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})(w, r)
	case len(parts) == 2 && parts[1] == "skills":
		s.withMutation(func(w http.ResponseWriter, r *http.Request) {
			body, _ := readJSONBody(r)
			if err := s.handlers.SetSkills(id, body); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleRetention(w http.ResponseWriter, r *http.Request) {
	if s.handlers.RetentionStatus == nil {
		writeError(w, http.StatusNotImplemented, errNotConfigured)
		return
	}
	writeJSON(w, http.StatusOK, s.handlers.RetentionStatus())
}

func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	dryRun := r.URL.Query().Get("dryRun") != "false"
	result, err := s.handlers.PruneSessions(dryRun)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	body, err := readJSONBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.handlers.ChatSend(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProvidersStatus(w http.ResponseWriter, r *http.Request) {
	if s.handlers.ProvidersStatus == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.handlers.ProvidersStatus())
}

func (s *Server) handleSubagentStart(w http.ResponseWriter, r *http.Request) {
	body, err := readJSONBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.handlers.SubagentStart(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleSubagentList(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	if s.handlers.SubagentList == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, s.handlers.SubagentList(sessionID, limit))
}

func (s *Server) handleSubagentSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/subagents/jobs/")
	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "cancel":
		s.withMutation(func(w http.ResponseWriter, r *http.Request) {
			if err := s.handlers.SubagentCancel(id); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})(w, r)
	case len(parts) == 2 && parts[1] == "logs":
		s.withAuth(ScopeRead, func(w http.ResponseWriter, r *http.Request) {
			result, err := s.handlers.SubagentLogs(id)
			if err != nil {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		})(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleBackupCreate(w http.ResponseWriter, r *http.Request) {
	if s.handlers.BackupCreate == nil {
		writeError(w, http.StatusNotImplemented, errNotConfigured)
		return
	}
	result, err := s.handlers.BackupCreate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBackupRestore(w http.ResponseWriter, r *http.Request) {
	if s.handlers.BackupRestore == nil {
		writeError(w, http.StatusNotImplemented, errNotConfigured)
		return
	}
	body, _ := readJSONBody(r)
	result, err := s.handlers.BackupRestore(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRuntimeRestart(w http.ResponseWriter, r *http.Request) {
	body, _ := readJSONBody(r)
	result, err := s.handlers.RuntimeRestart(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
