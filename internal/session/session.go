// Package session serves live drawing sessions over websockets. Each project has one
// Session whose goroutine owns the editor, so every mutation of a project's state is
// applied in order on a single goroutine.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/editor"
	"github.com/mythic3d/particle-drawer/internal/state"
	"github.com/mythic3d/particle-drawer/internal/storage"
)

const (
	inboxSize    = 256
	flushTimeout = 10 * time.Second
)

// Backend persists a session's project. Sessions without one are never saved.
type Backend interface {
	storage.Saver
	RenameProject(ctx context.Context, id, name string) error
}

type Options struct {
	Width, Height float64
	Backend       Backend
	AutosaveDelay time.Duration
}

type inbound struct {
	client *Client
	msg    *editor.Message
}

type Session struct {
	projectID string
	ed        *editor.Editor
	backend   Backend
	autosave  *storage.Autosaver
	version   int // last saved snapshot version

	clients map[string]*Client
	seq     int64

	inbox  chan inbound
	joins  chan *Client
	leaves chan *Client
	saves  chan storage.SaveResult

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a session for project p.
func New(projectID string, p *document.Project, opts Options) *Session {
	ed := editor.New(opts.Width, opts.Height)
	ed.Load(p)

	s := &Session{
		projectID: projectID,
		ed:        ed,
		backend:   opts.Backend,
		clients:   make(map[string]*Client),
		inbox:     make(chan inbound, inboxSize),
		joins:     make(chan *Client),
		leaves:    make(chan *Client),
		saves:     make(chan storage.SaveResult),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if s.backend != nil {
		s.autosave = storage.NewAutosaver(s.backend, projectID, opts.AutosaveDelay, s.reportSave)
		s.autosave.Attach(ed.Store())
	}
	go s.run()
	return s
}

func (s *Session) ProjectID() string { return s.projectID }

// Join attaches c; it receives a welcome and the current frame. It returns false once
// the session is closed.
func (s *Session) Join(c *Client) bool {
	select {
	case s.joins <- c:
		return true
	case <-s.done:
		return false
	}
}

// Leave detaches c and closes its send queue.
func (s *Session) Leave(c *Client) {
	select {
	case s.leaves <- c:
	case <-s.done:
	}
}

// Deliver queues an inbound message. It returns false once the session is closed.
func (s *Session) Deliver(c *Client, msg *editor.Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- inbound{client: c, msg: msg}:
		return true
	case <-s.done:
		return false
	}
}

// Close flushes pending changes, disconnects every client and stops the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
}

func (s *Session) reportSave(res storage.SaveResult) {
	select {
	case s.saves <- res:
	case <-s.done:
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case c := <-s.joins:
			s.clients[c.ClientID] = c
			welcome, _ := editor.NewMessage(editor.TypeWelcome, editor.WelcomePayload{
				ClientID:  c.ClientID,
				ProjectID: s.projectID,
				Tools:     state.Tools,
			})
			c.Send(welcome)
			if data, ok := s.frame(); ok {
				c.sendRaw(data)
			}
			slog.Info("client joined", "user", c.UserID, "project", s.projectID)

		case c := <-s.leaves:
			if _, ok := s.clients[c.ClientID]; ok {
				delete(s.clients, c.ClientID)
				close(c.send)
				slog.Info("client left", "user", c.UserID, "project", s.projectID)
			}

		case in := <-s.inbox:
			// Messages can still be queued after their client left.
			if _, ok := s.clients[in.client.ClientID]; ok {
				s.handle(in.client, in.msg)
			}

		case res := <-s.saves:
			s.applySave(res, nil)
			s.broadcastFrame()

		case <-s.quit:
			s.shutdown()
			return
		}
	}
}

func (s *Session) handle(c *Client, msg *editor.Message) {
	if msg.Type == editor.TypeProjectSave {
		s.save(c, msg.Seq)
		s.broadcastFrame()
		return
	}

	reply, err := s.ed.Apply(msg)
	if err != nil {
		s.sendError(c, msg.Seq, editor.ErrorCode(err), err)
		return
	}
	if reply != nil {
		reply.Seq = msg.Seq
		c.Send(reply)
	}

	switch msg.Type {
	case editor.TypeProjectRename:
		if s.backend != nil {
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			err := s.backend.RenameProject(ctx, s.projectID, s.ed.Store().GetState().ProjectName)
			cancel()
			if err != nil {
				slog.Warn("rename project", "project", s.projectID, "error", err)
			}
		}
	case editor.TypeProjectLoad:
		// An imported file replaces the stored project, so it must be written back.
		if s.autosave != nil {
			s.ed.Store().SetUnsavedChanges(true)
		}
	}
	s.broadcastFrame()
}

// save writes pending changes now and answers c.
func (s *Session) save(c *Client, seq int64) {
	if s.autosave == nil {
		s.sendError(c, seq, editor.CodeSaveFailed, errors.New("project is not persisted"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	res, ok := s.autosave.Flush(ctx)
	if !ok {
		msg, _ := editor.NewMessage(editor.TypeSaved, editor.SavedPayload{Version: s.version})
		msg.Seq = seq
		c.Send(msg)
		return
	}
	s.applySave(res, c)
}

// applySave marks the store clean when res saved the latest change. Errors go to c, or
// to every client for background saves.
func (s *Session) applySave(res storage.SaveResult, c *Client) {
	if res.Err != nil {
		code := editor.CodeSaveFailed
		if errors.Is(res.Err, storage.ErrQuotaExceeded) {
			code = editor.CodeQuotaExceeded
		}
		if c != nil {
			s.sendError(c, 0, code, res.Err)
		} else {
			for _, cl := range s.clients {
				s.sendError(cl, 0, code, res.Err)
			}
		}
		return
	}

	s.version = res.Snapshot.Version
	if res.Seq == s.autosave.Seq() {
		s.ed.Store().MarkSaved()
	}
	msg, _ := editor.NewMessage(editor.TypeSaved, editor.SavedPayload{Version: s.version})
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, cl := range s.clients {
		cl.sendRaw(data)
	}
}

func (s *Session) sendError(c *Client, seq int64, code string, err error) {
	msg, _ := editor.NewMessage(editor.TypeError, editor.ErrorPayload{Code: code, Message: err.Error()})
	msg.Seq = seq
	c.Send(msg)
}

func (s *Session) frame() ([]byte, bool) {
	msg, err := editor.NewMessage(editor.TypeFrame, s.ed.Frame())
	if err != nil {
		slog.Error("marshal frame", "error", err)
		return nil, false
	}
	s.seq++
	msg.Seq = s.seq
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal frame", "error", err)
		return nil, false
	}
	return data, true
}

func (s *Session) broadcastFrame() {
	if len(s.clients) == 0 {
		return
	}
	data, ok := s.frame()
	if !ok {
		return
	}
	for _, c := range s.clients {
		c.sendRaw(data)
	}
}

func (s *Session) shutdown() {
	if s.autosave != nil {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if res, ok := s.autosave.Flush(ctx); ok && res.Err != nil {
			slog.Error("final save failed", "project", s.projectID, "error", res.Err)
		}
		cancel()
		s.autosave.Close()
	}
	s.ed.Close()
	for id, c := range s.clients {
		close(c.send)
		delete(s.clients, id)
	}
	slog.Info("session closed", "project", s.projectID)
}
