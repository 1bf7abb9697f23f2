package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/telephasma/telephasma/internal/database"
	"github.com/telephasma/telephasma/internal/model"
	"github.com/telephasma/telephasma/internal/scan"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The CORS layer governs browser access; the upgrade itself
		// accepts any origin.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// wsMessage is the envelope for every frame sent to the client.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// scanParams reads the run parameters from the request query.
//
//	depth      traversal depth (default from config)
//	delay_ms   pause between probes in milliseconds (default from config)
//	recursive  "false" forces depth 0 regardless of the depth parameter
//	targets    comma-separated explicit targets; overrides the chat seed
func (s *Server) scanParams(c *gin.Context) scan.Params {
	p := scan.Params{
		Seed:     c.Param("chat"),
		MaxDepth: s.cfg.Depth,
		Delay:    s.cfg.Delay,
	}
	if v := c.Query("depth"); v != "" {
		if depth, err := strconv.Atoi(v); err == nil && depth >= 0 {
			p.MaxDepth = depth
		}
	}
	if v := c.Query("recursive"); v != "" {
		if recursive, err := strconv.ParseBool(v); err == nil && !recursive {
			p.MaxDepth = 0
		}
	}
	if v := c.Query("delay_ms"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			p.Delay = time.Duration(ms) * time.Millisecond
		}
	}
	if v := c.Query("targets"); v != "" {
		for _, target := range strings.Split(v, ",") {
			if target = strings.TrimSpace(target); target != "" {
				p.Targets = append(p.Targets, target)
			}
		}
	}
	return p
}

// handleScanWebSocket upgrades the connection and streams one scan run over
// it. The run ends when the queue drains, the client disconnects, a stop is
// requested, or the server shuts down; the final frame is always a status
// message naming the outcome.
func (s *Server) handleScanWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	params := s.scanParams(c)
	runID := uuid.New().String()
	st := scan.NewStopper()
	s.registerRun(runID, st)
	defer s.unregisterRun(runID)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// A client that goes away must stop the traversal, not leave it
	// burning the session's rate budget. The read loop doubles as the
	// disconnect watcher; inbound frames are otherwise ignored.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				st.Stop()
				cancel()
				return
			}
		}
	}()

	if err := ws.WriteJSON(wsMessage{Type: "run_started", Data: gin.H{
		"run_id":    runID,
		"seed":      params.Seed,
		"max_depth": params.MaxDepth,
	}}); err != nil {
		return
	}

	rec := s.newRunRecorder(runID)
	rec.start(params)

	failed := false
	events := s.engine.Run(ctx, st, params)
	for ev := range events {
		if _, ok := ev.(model.ErrorEvent); ok {
			failed = true
		}
		rec.event(ev)
		if err := ws.WriteJSON(wsMessage{Type: ev.EventType(), Data: ev}); err != nil {
			s.logger.Info("websocket client disconnected mid-run", "run_id", runID)
			st.Stop()
			cancel()
			// Drain so the producer can exit.
			for range events { //nolint:revive // intentional drain
			}
			break
		}
	}

	status := runStatus(st.Stopped(), failed)
	rec.finish(status)

	_ = ws.WriteJSON(wsMessage{Type: "status", Data: gin.H{
		"run_id": runID,
		"status": status,
	}})
}

// runRecorder accumulates a run's events into scan history. Findings are
// merged per user across the found/detail event pair before being saved, so
// the stored row carries both the traversal position and the extracted
// links. A nil ScanDB disables every method.
type runRecorder struct {
	s        *Server
	runID    string
	findings map[int64]*database.Finding
}

// newRunRecorder builds a recorder for one run.
func (s *Server) newRunRecorder(runID string) *runRecorder {
	return &runRecorder{
		s:        s,
		runID:    runID,
		findings: make(map[int64]*database.Finding),
	}
}

// start persists the run header.
func (r *runRecorder) start(p scan.Params) {
	if r.s.db == nil {
		return
	}
	seed := p.Seed
	if len(p.Targets) > 0 {
		seed = strings.Join(p.Targets, ",")
	}
	run := &database.Run{
		ID:       r.runID,
		Seed:     seed,
		MaxDepth: p.MaxDepth,
		Delay:    p.Delay,
	}
	if err := r.s.db.CreateRun(context.Background(), run); err != nil {
		r.s.logger.Warn("run not recorded", "run_id", r.runID, "error", err)
	}
}

// event folds one scan event into the stored history.
func (r *runRecorder) event(ev model.ScanEvent) {
	if r.s.db == nil {
		return
	}

	switch e := ev.(type) {
	case model.UserFound:
		f := r.finding(e.ID)
		f.Username = e.Username
		f.Depth = e.Depth
		f.DiscoveredFrom = e.DiscoveredFrom
		f.Result.Username = e.Username
		f.Result.FirstName = e.FirstName
		r.save(f)
	case model.UserDetail:
		f := r.finding(e.ID)
		if e.Username != "" {
			f.Username = e.Username
			f.Result.Username = e.Username
		}
		f.Result.Bio = e.Bio
		f.Result.Links = e.ChannelLinks
		r.save(f)
	case model.UserGifts:
		for _, g := range e.Gifts {
			if !g.HasSender() {
				continue
			}
			edge := &database.GiftEdge{
				RunID:      r.runID,
				ReceiverID: e.UserID,
				SenderID:   g.SenderID,
				GiftID:     g.ID,
				Stars:      g.Stars,
			}
			if err := r.s.db.SaveEdge(context.Background(), edge); err != nil {
				r.s.logger.Warn("gift edge not recorded", "run_id", r.runID, "error", err)
			}
		}
	}
}

// finding returns the merged record for a user, creating it on first sight.
func (r *runRecorder) finding(userID int64) *database.Finding {
	f, ok := r.findings[userID]
	if !ok {
		f = &database.Finding{
			RunID:  r.runID,
			UserID: userID,
			Result: &model.ScanResult{UserID: userID},
		}
		r.findings[userID] = f
	}
	return f
}

// save upserts the merged finding.
func (r *runRecorder) save(f *database.Finding) {
	if err := r.s.db.SaveFinding(context.Background(), f); err != nil {
		r.s.logger.Warn("finding not recorded", "run_id", r.runID, "error", err)
	}
}

// finish persists the run outcome.
func (r *runRecorder) finish(status string) {
	if r.s.db == nil {
		return
	}
	if err := r.s.db.FinishRun(context.Background(), r.runID, status); err != nil {
		r.s.logger.Warn("run outcome not recorded", "run_id", r.runID, "error", err)
	}
}
