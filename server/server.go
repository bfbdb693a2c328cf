// Package server is a local stand-in for the QA Learning Platform backend.
// It serves the same HTTP API as the real service, keeps its state in
// SQLite and answers prompts from a pluggable Answerer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/sonnes/qachat/api"
	"github.com/sonnes/qachat/core"
)

const maxUploadBytes = 32 << 20

// Answerer produces the complete assistant answer for a prompt.
type Answerer interface {
	Answer(ctx context.Context, sess core.Session, prompt string, files []File) (string, error)
}

// Rotation answers with its responses in turn.
type Rotation struct {
	mu        sync.Mutex
	responses []string
	next      int
}

// NewRotation returns an Answerer cycling through responses.
func NewRotation(responses []string) *Rotation {
	return &Rotation{responses: responses}
}

func (r *Rotation) Answer(_ context.Context, _ core.Session, _ string, _ []File) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) == 0 {
		return "", errors.New("no responses configured")
	}
	s := r.responses[r.next%len(r.responses)]
	r.next++
	return s, nil
}

// Server serves the chat API for local development and tests.
type Server struct {
	// Store holds sessions, messages, uploads and user sessions.
	Store *Store
	// Answerer produces assistant answers. Defaults to core.MockResponses in rotation.
	Answerer Answerer
	// Latency is added before each answer to imitate the upstream model.
	Latency time.Duration
	// Logger receives request logs.
	Logger *log.Logger

	now   func() time.Time
	newID func() string
}

// New creates a Server over store.
func New(store *Store) *Server {
	return &Server{
		Store:    store,
		Answerer: NewRotation(core.MockResponses),
		Logger:   log.Default(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// SignIn creates a user session for u and returns its cookie token.
func (s *Server) SignIn(ctx context.Context, u core.User) (string, error) {
	token := s.newID()
	if err := s.Store.CreateUserSession(ctx, token, u, s.now()); err != nil {
		return "", err
	}
	return token, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	p := api.BasePath
	mux.HandleFunc("GET "+p+"/auth/google", s.handleGoogle)
	mux.HandleFunc("GET "+p+"/auth/me", s.handleMe)
	mux.HandleFunc("POST "+p+"/auth/logout", s.handleLogout)
	mux.HandleFunc("POST "+p+"/sessions", s.handleCreateSession)
	mux.HandleFunc("GET "+p+"/sessions", s.handleListSessions)
	mux.HandleFunc("DELETE "+p+"/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET "+p+"/sessions/{id}/messages", s.handleSessionMessages)
	mux.HandleFunc("POST "+p+"/chat", s.handleChat)
	mux.HandleFunc("POST "+p+"/upload", s.handleUpload)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		next.ServeHTTP(w, r)
		s.Logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{Status: "healthy"})
}

// handleGoogle stands in for the OAuth consent redirect; the mock backend
// has no identity provider.
func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, "sign-in is not available on the local server; use the printed dev session token")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(api.SessionCookie)
	if err != nil || c.Value == "" {
		writeJSON(w, http.StatusOK, api.MeResponse{})
		return
	}
	u, err := s.Store.UserBySession(r.Context(), c.Value)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusOK, api.MeResponse{})
		return
	}
	if err != nil {
		s.internalError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, api.MeResponse{User: &u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(api.SessionCookie); err == nil && c.Value != "" {
		if err := s.Store.DeleteUserSession(r.Context(), c.Value); err != nil && !errors.Is(err, ErrNotFound) {
			s.internalError(w, "logout", err)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: api.SessionCookie, Value: "", Path: "/", MaxAge: -1})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) createSession(ctx context.Context) (core.Session, error) {
	return s.Store.CreateSession(ctx, s.newID(), "thread_"+strings.ReplaceAll(s.newID(), "-", ""), s.now())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.createSession(r.Context())
	if err != nil {
		s.internalError(w, "create session", err)
		return
	}
	writeJSON(w, http.StatusOK, api.CreateSessionResponse{SessionID: sess.ID, ThreadID: sess.ThreadID})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.Store.ListSessions(r.Context())
	if err != nil {
		s.internalError(w, "list sessions", err)
		return
	}
	out := api.ListSessionsResponse{Sessions: make([]api.WireSession, len(sessions))}
	for i, sess := range sessions {
		out.Sessions[i] = wireSession(sess)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.Store.DeleteSession(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		s.internalError(w, "delete session", err)
		return
	}
	writeJSON(w, http.StatusOK, api.DeleteSessionResponse{SessionID: id, Deleted: true})
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.Store.GetSession(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		s.internalError(w, "get session", err)
		return
	}
	out := api.SessionMessagesResponse{SessionID: id, Messages: make([]api.WireMessage, len(sess.Messages))}
	for i, m := range sess.Messages {
		out.Messages[i] = wireMessage(m)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusUnprocessableEntity, "message is required")
		return
	}

	var sess core.Session
	var err error
	if req.SessionID == "" {
		sess, err = s.createSession(ctx)
	} else {
		sess, err = s.Store.GetSession(ctx, req.SessionID)
	}
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		s.internalError(w, "load session", err)
		return
	}

	var files []File
	for _, id := range append(append([]string{}, req.FileIDs...), req.ImageFileIDs...) {
		f, err := s.Store.GetFile(ctx, id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown file %s", id))
			return
		}
		if err != nil {
			s.internalError(w, "load file", err)
			return
		}
		files = append(files, f)
	}

	userMsg := core.Message{Role: core.RoleUser, Content: req.Message, CreatedAt: s.now()}
	if err := s.Store.AddMessage(ctx, sess.ID, userMsg); err != nil {
		s.internalError(w, "add user message", err)
		return
	}

	if s.Latency > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Latency):
		}
	}

	answer, err := s.Answerer.Answer(ctx, sess, req.Message, files)
	if err != nil {
		s.internalError(w, "answer", err)
		return
	}

	assistantMsg := core.Message{Role: core.RoleAssistant, Content: answer, CreatedAt: s.now()}
	if err := s.Store.AddMessage(ctx, sess.ID, assistantMsg); err != nil {
		s.internalError(w, "add assistant message", err)
		return
	}

	reply := wireMessage(assistantMsg)
	writeJSON(w, http.StatusOK, api.SendMessageResponse{
		SessionID:         sess.ID,
		Message:           wireMessage(userMsg),
		AssistantResponse: &reply,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer file.Close()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		s.internalError(w, "read upload", err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	fileType := api.FileTypeFile
	if strings.HasPrefix(contentType, "image/") {
		fileType = api.FileTypeImage
	}

	f := File{
		ID:          "file-" + strings.ReplaceAll(s.newID(), "-", ""),
		Filename:    filepath.Base(header.Filename),
		ContentType: contentType,
		Size:        size,
		CreatedAt:   s.now(),
	}
	if err := s.Store.SaveFile(r.Context(), f); err != nil {
		s.internalError(w, "save file", err)
		return
	}
	writeJSON(w, http.StatusOK, api.UploadFileResponse{FileID: f.ID, Filename: f.Filename, Type: fileType})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.Logger.Error(op, "err", err)
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("Server error: %v", err))
}

func wireMessage(m core.Message) api.WireMessage {
	return api.WireMessage{Role: string(m.Role), Content: m.Content, Timestamp: api.Timestamp{Time: m.CreatedAt}}
}

func wireSession(sess core.Session) api.WireSession {
	ws := api.WireSession{
		ID:        sess.ID,
		ThreadID:  sess.ThreadID,
		CreatedAt: api.Timestamp{Time: sess.CreatedAt},
		UpdatedAt: api.Timestamp{Time: sess.LastActivity()},
		Messages:  make([]api.WireMessage, len(sess.Messages)),
	}
	for i, m := range sess.Messages {
		ws.Messages[i] = wireMessage(m)
	}
	return ws
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
