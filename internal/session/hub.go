package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mythic3d/particle-drawer/internal/document"
)

// PlaygroundProjectID is the shared anonymous project. It starts from the sample
// project and is never persisted.
const PlaygroundProjectID = "proj_playground"

var ErrHubStopped = errors.New("hub stopped")

// Loader fetches a project's latest content.
type Loader func(ctx context.Context, projectID string) (*document.Project, error)

type room struct {
	session *Session
	clients map[string]*Client
}

type registration struct {
	client *Client
	reply  chan registered
}

type registered struct {
	session *Session
	err     error
}

type loaded struct {
	projectID string
	project   *document.Project
	err       error
}

// Hub keeps one Session per project with connected clients. Sessions are created on
// the first join and closed, with a final save, when the last client leaves. Project
// loads and session shutdowns run off the hub goroutine so a slow project never holds
// up the others.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room

	// Owned by the Run goroutine.
	opening map[string][]registration
	closing map[string]*Session

	register   chan registration
	unregister chan *Client
	opened     chan loaded
	stop       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once
	closers    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	load Loader
	opts Options
}

func NewHub(load Loader, opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:      make(map[string]*room),
		opening:    make(map[string][]registration),
		closing:    make(map[string]*Session),
		register:   make(chan registration),
		unregister: make(chan *Client),
		opened:     make(chan loaded),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		load:       load,
		opts:       opts,
	}
}

func (h *Hub) Run() {
	defer close(h.stopped)
	for {
		select {
		case reg := <-h.register:
			h.addClient(reg)
		case res := <-h.opened:
			h.finishOpen(res)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.stop:
			h.cancel()
			h.closeAll()
			return
		}
	}
}

// Register attaches client to its project's session, loading the project if needed.
func (h *Hub) Register(client *Client) (*Session, error) {
	reply := make(chan registered, 1)
	select {
	case h.register <- registration{client: client, reply: reply}:
	case <-h.stopped:
		return nil, ErrHubStopped
	}
	r := <-reply
	if r.err != nil {
		return nil, r.err
	}
	if !r.session.Join(client) {
		return nil, fmt.Errorf("join %s: session closed", client.ProjectID)
	}
	return r.session, nil
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// Stop closes every session, saving pending changes, and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.stopped
}

// Sessions returns the number of live sessions.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) addClient(reg registration) {
	projectID := reg.client.ProjectID
	if rm, ok := h.rooms[projectID]; ok {
		rm.clients[reg.client.ClientID] = reg.client
		reg.reply <- registered{session: rm.session}
		return
	}
	if waiting, ok := h.opening[projectID]; ok {
		h.opening[projectID] = append(waiting, reg)
		return
	}

	h.opening[projectID] = []registration{reg}
	prev := h.closing[projectID]
	delete(h.closing, projectID)
	go h.open(projectID, prev)
}

// open loads a project and hands it back to Run. A session still closing for the same
// project is waited for, so its final save is what gets loaded.
func (h *Hub) open(projectID string, prev *Session) {
	if prev != nil {
		select {
		case <-prev.done:
		case <-h.stop:
			return
		}
	}

	res := loaded{projectID: projectID}
	if projectID == PlaygroundProjectID {
		res.project = document.NewSampleProject()
	} else {
		res.project, res.err = h.load(h.ctx, projectID)
	}
	select {
	case h.opened <- res:
	case <-h.stop:
	}
}

func (h *Hub) finishOpen(res loaded) {
	waiting := h.opening[res.projectID]
	delete(h.opening, res.projectID)

	if res.err != nil {
		err := fmt.Errorf("load project %s: %w", res.projectID, res.err)
		for _, reg := range waiting {
			reg.reply <- registered{err: err}
		}
		return
	}

	opts := h.opts
	if res.projectID == PlaygroundProjectID {
		opts.Backend = nil
	}
	s := New(res.projectID, res.project, opts)
	slog.Info("session opened", "project", res.projectID, "persisted", opts.Backend != nil)

	rm := &room{session: s, clients: make(map[string]*Client, len(waiting))}
	for _, reg := range waiting {
		rm.clients[reg.client.ClientID] = reg.client
		reg.reply <- registered{session: s}
	}
	h.mu.Lock()
	h.rooms[res.projectID] = rm
	h.mu.Unlock()
}

func (h *Hub) removeClient(client *Client) {
	rm, ok := h.rooms[client.ProjectID]
	if !ok {
		return
	}
	if _, ok := rm.clients[client.ClientID]; !ok {
		return
	}
	delete(rm.clients, client.ClientID)

	if len(rm.clients) > 0 {
		go rm.session.Leave(client)
		return
	}
	h.mu.Lock()
	delete(h.rooms, client.ProjectID)
	h.mu.Unlock()
	// Shutdown disconnects the departing client along with the session.
	h.closeSession(client.ProjectID, rm.session)
}

func (h *Hub) closeSession(projectID string, s *Session) {
	for id, prev := range h.closing {
		select {
		case <-prev.done:
			delete(h.closing, id)
		default:
		}
	}
	h.closing[projectID] = s
	h.closers.Add(1)
	go func() {
		defer h.closers.Done()
		s.Close()
	}()
}

func (h *Hub) closeAll() {
	for projectID, waiting := range h.opening {
		for _, reg := range waiting {
			reg.reply <- registered{err: ErrHubStopped}
		}
		delete(h.opening, projectID)
	}

	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*room)
	h.mu.Unlock()

	for projectID, rm := range rooms {
		h.closeSession(projectID, rm.session)
	}
	h.closers.Wait()
}

// ServeWS upgrades the request and runs the client until it disconnects. Callers
// authenticate and authorize userID for projectID first.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, projectID, userID string, originPatterns []string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h, conn, userID, projectID, uuid.New().String())
	s, err := h.Register(client)
	if err != nil {
		slog.Warn("register client", "project", projectID, "error", err)
		conn.Close(websocket.StatusInternalError, "project unavailable")
		return
	}

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx, s)
}
