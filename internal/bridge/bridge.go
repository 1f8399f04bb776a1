// Package bridge exposes the engine to external surfaces (popup, side panel,
// scripts) over a local WebSocket endpoint. Inbound messages are commands;
// outbound messages are engine events broadcast to every connected client.
// Sends are best-effort: a missing or dead listener is never an error.
package bridge

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sweeplab/invitesweep/internal/engine"
	"github.com/sweeplab/invitesweep/internal/invites"
	"github.com/sweeplab/invitesweep/internal/report"
)

// Inbound command types.
const (
	CmdStartWithdraw    = "START_WITHDRAW"
	CmdStopWithdraw     = "STOP_WITHDRAW"
	CmdPauseWithdraw    = "PAUSE_WITHDRAW"
	CmdResumeWithdraw   = "RESUME_WITHDRAW"
	CmdUpdateMessages   = "UPDATE_MESSAGES"
	CmdGetStatus        = "GET_STATUS"
	CmdGetCount         = "GET_COUNT"
	CmdScanConnections  = "SCAN_CONNECTIONS"
	CmdWithdrawSelected = "WITHDRAW_SELECTED"
	CmdShowConnection   = "SHOW_CONNECTION"
)

// Outbound event types.
const (
	EvtScrollProgress = "SCROLL_PROGRESS"
	EvtScrollComplete = "SCROLL_COMPLETE"
	EvtUpdateStatus   = "UPDATE_STATUS"
	EvtScanComplete   = "SCAN_COMPLETE"
	EvtCompleted      = "COMPLETED"
	EvtStatus         = "STATUS"
	EvtCount          = "COUNT"
	EvtError          = "ERROR"
)

// Command is the inbound message envelope.
type Command struct {
	Type           string   `json:"type"`
	Count          int      `json:"count,omitempty"`
	Mode           string   `json:"mode,omitempty"`
	AgeValue       int      `json:"ageValue,omitempty"`
	AgeUnit        string   `json:"ageUnit,omitempty"`
	SafeMode       bool     `json:"safeMode,omitempty"`
	SafeThreshold  int      `json:"safeThreshold,omitempty"`
	SafeUnit       string   `json:"safeUnit,omitempty"`
	Messages       []string `json:"messages,omitempty"`
	SelectedHashes []string `json:"selectedHashes,omitempty"`
	Hash           string   `json:"hash,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local bridge, loopback only
	},
}

// client is one connected surface with a serialized writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Server is the WebSocket bridge. It implements report.Reporter so the
// engine's notifications fan out to every client.
type Server struct {
	engine *engine.Engine
	log    *zap.Logger

	ctx context.Context

	mu      sync.Mutex
	clients map[*client]bool
}

var _ report.Reporter = (*Server)(nil)

// NewServer creates a bridge around an engine. ctx bounds the lifetime of
// commands the bridge launches.
func NewServer(ctx context.Context, eng *engine.Engine, log *zap.Logger) *Server {
	return &Server{
		engine:  eng,
		log:     log,
		ctx:     ctx,
		clients: make(map[*client]bool),
	}
}

// Handler returns the HTTP handler to mount.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe runs the bridge until ctx is done.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-s.ctx.Done()
		srv.Close()
	}()
	s.log.Info("bridge listening", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
	s.log.Info("bridge client connected", zap.String("remote", conn.RemoteAddr().String()))

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		conn.Close()
		s.log.Info("bridge client disconnected", zap.String("remote", conn.RemoteAddr().String()))
	}()

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.dispatch(c, cmd)
	}
}

func (s *Server) dispatch(c *client, cmd Command) {
	switch cmd.Type {
	case CmdStartWithdraw:
		cfg := runConfigFrom(cmd)
		go func() {
			if err := s.engine.Run(s.ctx, cfg); err == engine.ErrRunActive {
				s.log.Info("start ignored, run already active")
			}
		}()

	case CmdStopWithdraw:
		s.engine.Stop()

	case CmdPauseWithdraw:
		s.engine.Pause()

	case CmdResumeWithdraw:
		s.engine.Resume()

	case CmdUpdateMessages:
		s.engine.UpdateMessages(cmd.Messages)

	case CmdGetStatus:
		st := s.engine.Status()
		s.reply(c, map[string]any{
			"type":       EvtStatus,
			"isRunning":  st.IsRunning,
			"statusText": st.StatusText,
			"progress":   st.Progress,
			"target":     st.Target,
		})

	case CmdGetCount:
		go func() {
			n, err := s.engine.PendingCount(s.ctx)
			if err != nil {
				s.reply(c, map[string]any{"type": EvtError, "text": err.Error()})
				return
			}
			s.reply(c, map[string]any{"type": EvtCount, "count": n})
		}()

	case CmdScanConnections:
		go func() {
			if _, _, err := s.engine.Scan(s.ctx); err != nil && err != engine.ErrRunActive {
				s.reply(c, map[string]any{"type": EvtError, "text": err.Error()})
			}
		}()

	case CmdWithdrawSelected:
		safe := invites.Threshold{Value: cmd.SafeThreshold, Unit: invites.Unit(cmd.SafeUnit)}
		go func() {
			err := s.engine.WithdrawSelected(s.ctx, cmd.SelectedHashes, cmd.SafeMode, safe)
			if err == engine.ErrRunActive {
				s.log.Info("withdraw-selected ignored, run already active")
			}
		}()

	case CmdShowConnection:
		go func() {
			if err := s.engine.ShowConnection(s.ctx, cmd.Hash); err != nil {
				s.reply(c, map[string]any{"type": EvtError, "text": err.Error()})
			}
		}()

	default:
		s.log.Debug("unknown command", zap.String("type", cmd.Type))
	}
}

func runConfigFrom(cmd Command) invites.RunConfig {
	return invites.RunConfig{
		Mode:            invites.Mode(cmd.Mode),
		TargetCount:     cmd.Count,
		AgeThreshold:    invites.Threshold{Value: cmd.AgeValue, Unit: invites.Unit(cmd.AgeUnit)},
		MessagePatterns: cmd.Messages,
		SafeMode:        cmd.SafeMode,
		SafeThreshold:   invites.Threshold{Value: cmd.SafeThreshold, Unit: invites.Unit(cmd.SafeUnit)},
	}
}

// reply sends to one client; failures are logged and swallowed.
func (s *Server) reply(c *client, v any) {
	if err := c.send(v); err != nil {
		s.log.Debug("bridge reply failed", zap.Error(err))
	}
}

// broadcast sends to every client; failures are logged and swallowed.
func (s *Server) broadcast(v any) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.send(v); err != nil {
			s.log.Debug("bridge broadcast failed", zap.Error(err))
		}
	}
}

// report.Reporter implementation.

func (s *Server) ScrollProgress(p report.ScrollProgress) {
	s.broadcast(map[string]any{
		"type":         EvtScrollProgress,
		"progress":     p.Progress,
		"found":        p.Found,
		"total":        p.Total,
		"text":         p.Text,
		"foundMatches": p.FoundMatches,
	})
}

func (s *Server) ScrollComplete(count int) {
	s.broadcast(map[string]any{"type": EvtScrollComplete, "count": count})
}

func (s *Server) Status(st report.Status) {
	msg := map[string]any{
		"type":     EvtUpdateStatus,
		"text":     st.Text,
		"progress": st.Progress,
	}
	if st.Cleared != nil {
		msg["clearedData"] = st.Cleared
	}
	if len(st.PartialResults) > 0 {
		msg["partialResults"] = st.PartialResults
	}
	s.broadcast(msg)
}

func (s *Server) ScanComplete(groups []invites.Group, totalScanned int) {
	s.broadcast(map[string]any{
		"type":         EvtScanComplete,
		"results":      groups,
		"totalScanned": totalScanned,
	})
}

func (s *Server) Completed(stats report.Stats, message string) {
	s.broadcast(map[string]any{
		"type":    EvtCompleted,
		"stats":   stats,
		"message": message,
	})
}
