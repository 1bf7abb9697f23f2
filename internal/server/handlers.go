package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/telephasma/telephasma/internal/database"
	"github.com/telephasma/telephasma/internal/platform"
	"github.com/telephasma/telephasma/internal/report"
	"github.com/telephasma/telephasma/internal/session"
)

// handleHealth reports liveness and the platform connection state.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"connected": s.client.Connected(),
	})
}

// loginRequest is the body of POST /api/login.
type loginRequest struct {
	Phone string `json:"phone"`
}

// handleLogin connects to the platform and requests a login code. A stored
// session may make the code unnecessary, reported as already_authorized.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	phone := req.Phone
	if phone == "" {
		phone = s.cfg.Phone
	}
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone number required"})
		return
	}

	creds := platform.Credentials{
		APIID:   s.cfg.APIID,
		APIHash: s.cfg.APIHash,
		Phone:   phone,
	}
	if s.store != nil {
		if key, err := s.store.AuthKey(c.Request.Context(), phone); err != nil {
			s.logger.Warn("stored session unreadable, starting fresh", "error", err)
		} else {
			creds.Session = key
		}
	}

	if err := s.client.Connect(c.Request.Context(), creds); err != nil {
		s.logger.Error("platform connect failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not connect to platform"})
		return
	}

	sent, err := s.client.SendCode(c.Request.Context())
	if err != nil {
		s.logger.Error("send code failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not request login code"})
		return
	}
	if !sent {
		c.JSON(http.StatusOK, gin.H{"status": "already_authorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "code_sent"})
}

// verifyRequest is the body of POST /api/verify.
type verifyRequest struct {
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// handleVerify completes the login with the received code, and the
// two-factor password when the account has one.
func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	phone := req.Phone
	if phone == "" {
		phone = s.cfg.Phone
	}

	err := s.client.SignIn(c.Request.Context(), phone, req.Code, req.Password)
	if errors.Is(err, platform.ErrTwoFactorRequired) {
		c.JSON(http.StatusOK, gin.H{"status": "2fa_required"})
		return
	}
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if s.store != nil {
		if key, err := s.client.ExportSession(c.Request.Context()); err != nil {
			s.logger.Warn("session export failed, login not persisted", "error", err)
		} else if err := s.store.SaveAuthKey(c.Request.Context(), phone, key); err != nil {
			s.logger.Warn("session save failed, login not persisted", "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "authorized"})
}

// dialogJSON is one entry of GET /api/dialogs.
type dialogJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// handleDialogs lists recent dialogs. When the platform is unreachable it
// falls back to the peer cache so the UI can still offer known chats.
func (s *Server) handleDialogs(c *gin.Context) {
	dialogs, err := s.client.RecentDialogs(c.Request.Context(), s.cfg.DialogCacheScan)
	if err != nil {
		if s.store == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "platform unavailable"})
			return
		}
		s.logger.Warn("dialog fetch failed, serving cached peers", "error", err)
		peers, cacheErr := s.store.RecentPeers(c.Request.Context(), s.cfg.DialogCacheScan)
		if cacheErr != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "platform unavailable"})
			return
		}
		out := make([]dialogJSON, 0, len(peers))
		for _, p := range peers {
			out = append(out, dialogJSON{ID: p.ID, Name: p.Title, Username: p.Username, Kind: p.Kind})
		}
		c.JSON(http.StatusOK, gin.H{"dialogs": out, "cached": true})
		return
	}

	out := make([]dialogJSON, 0, len(dialogs))
	for _, d := range dialogs {
		// Direct-message dialogs are not scan seeds; only group-like
		// entities are listed.
		if d.Entity != nil && d.Entity.Kind == platform.EntityUser {
			continue
		}
		dj := dialogJSON{ID: d.ID, Name: d.Name}
		if d.Entity != nil {
			dj.Username = d.Entity.Username
			dj.Kind = string(d.Entity.Kind)
		}
		out = append(out, dj)

		if s.store != nil && d.Entity != nil {
			peer := &session.Peer{
				ID:       d.ID,
				Username: d.Entity.Username,
				Title:    d.Name,
				Kind:     string(d.Entity.Kind),
			}
			if err := s.store.CachePeer(c.Request.Context(), peer); err != nil {
				s.logger.Debug("peer cache write failed", "id", d.ID, "error", err)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"dialogs": out, "cached": false})
}

// memberJSON is one entry of the member-listing endpoint.
type memberJSON struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Bot       bool   `json:"bot,omitempty"`
}

// handleChatMembers lists members of a chat.
func (s *Server) handleChatMembers(c *gin.Context) {
	peer, err := s.resolver.Resolve(c.Request.Context(), c.Param("chat"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat identifier"})
		return
	}
	entity, err := s.client.GetEntity(c.Request.Context(), peer)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, platform.ErrPeerNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	members := make([]memberJSON, 0, s.cfg.MemberListLimit)
	for user, err := range s.client.Participants(c.Request.Context(), entity, s.cfg.MemberListLimit, false) {
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if user.Deleted {
			continue
		}
		members = append(members, memberJSON{
			ID:        user.ID,
			Username:  user.Username,
			FirstName: user.FirstName,
			Bot:       user.Bot,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"chat":    gin.H{"id": entity.ID, "title": entity.Title, "kind": string(entity.Kind)},
		"members": members,
	})
}

// handleCommonGroups lists chats shared with a user.
func (s *Server) handleCommonGroups(c *gin.Context) {
	peer, err := s.resolver.Resolve(c.Request.Context(), c.Param("user"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user identifier"})
		return
	}
	chats, err := s.client.GetCommonChats(c.Request.Context(), peer, s.cfg.CommonChatLimit)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, platform.ErrPeerNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(chats))
	for _, chat := range chats {
		out = append(out, gin.H{"id": chat.ID, "title": chat.Title, "kind": string(chat.Kind)})
	}
	c.JSON(http.StatusOK, gin.H{"chats": out})
}

// stopRequest is the body of POST /api/stop-scan.
type stopRequest struct {
	RunID string `json:"run_id"`
}

// handleStopScan stops one run, or every run when no id is given. The stop
// is fire-and-forget: the response does not wait for runs to wind down.
func (s *Server) handleStopScan(c *gin.Context) {
	var req stopRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	if req.RunID != "" {
		if !s.stopRun(req.RunID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "stop_requested", "run_id": req.RunID})
		return
	}

	n := s.StopAll()
	c.JSON(http.StatusOK, gin.H{"status": "stop_requested", "stopped": n})
}

// handleListRuns lists stored scan runs, most recent first.
func (s *Server) handleListRuns(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan history disabled"})
		return
	}
	runs, err := s.db.ListRuns(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		out = append(out, gin.H{
			"id":         run.ID,
			"seed":       run.Seed,
			"max_depth":  run.MaxDepth,
			"status":     run.Status,
			"started_at": run.StartedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

// handleReport renders a stored run as a Markdown document.
func (s *Server) handleReport(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan history disabled"})
		return
	}
	runID := c.Param("run")
	run, err := s.db.GetRun(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
		return
	}

	findings, err := s.db.RunFindings(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	edges, err := s.db.RunEdges(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var sb strings.Builder
	if err := report.NewMarkdownWriter(&sb).Write(run, findings, edges); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(sb.String()))
}

// runStatus maps a finished run's cause to a stored status.
func runStatus(stopped bool, failed bool) string {
	switch {
	case failed:
		return database.RunStatusFailed
	case stopped:
		return database.RunStatusStopped
	default:
		return database.RunStatusCompleted
	}
}
