package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rzpsarthak13/rowmap/pkg/rowmap"
)

var emailPattern = regexp.MustCompile(`^[a-z0-9.\-_]+@[a-z0-9\-_]+(\.[a-z0-9\-_]+){1,4}$`)

type server struct {
	client   *rowmap.Client
	users    *rowmap.Model
	blogs    *rowmap.Model
	comments *rowmap.Model
	drainer  *rowmap.Drainer
}

func newServer(client *rowmap.Client) *server {
	return &server{
		client:   client,
		users:    client.MustModel(User),
		blogs:    client.MustModel(Blog),
		comments: client.MustModel(Comment),
	}
}

// migrate creates the tables of every model that does not exist yet.
func (s *server) migrate(ctx context.Context) error {
	for _, schema := range []*rowmap.Schema{User, Blog, Comment} {
		if _, err := s.client.Exec(ctx, createTableStmt(schema)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", schema.Table(), err)
		}
	}
	return nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /api/users", s.listUsers)
	mux.HandleFunc("POST /api/users", s.registerUser)
	mux.HandleFunc("GET /api/blogs", s.listBlogs)
	mux.HandleFunc("POST /api/blogs", s.saveBlog)
	mux.HandleFunc("GET /api/blogs/{id}", s.getBlog)
	mux.HandleFunc("POST /api/blogs/{id}/delete", s.deleteBlog)
	mux.HandleFunc("GET /api/blogs/{id}/comments", s.listBlogComments)
	mux.HandleFunc("POST /api/blogs/{id}/comments", s.createComment)
	mux.HandleFunc("GET /api/comments", s.listComments)
	mux.HandleFunc("POST /api/comments/{id}/delete", s.deleteComment)
	return mux
}

// ============================================================================
// HTTP Handlers
// ============================================================================

func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.client.Stats()
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"dialect":   s.client.Dialect(),
		"pool": map[string]interface{}{
			"open":     stats.Open,
			"in_use":   stats.InUse,
			"idle":     stats.Idle,
			"max_size": stats.MaxSize,
		},
	}
	if s.drainer != nil {
		status["drainer"] = map[string]interface{}{
			"running":   s.drainer.IsRunning(),
			"processed": s.drainer.Processed(),
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *server) registerUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Name   string `json:"name"`
		Passwd string `json:"passwd"`
	}
	if !decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "name cannot be empty", http.StatusBadRequest)
		return
	}
	if !emailPattern.MatchString(req.Email) {
		http.Error(w, "invalid email", http.StatusBadRequest)
		return
	}
	if req.Passwd == "" {
		http.Error(w, "passwd cannot be empty", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	existing, err := s.users.FindAll(ctx, rowmap.Where("`email`=?", req.Email), rowmap.Limit(1))
	if err != nil {
		internalError(w, err)
		return
	}
	if len(existing) > 0 {
		http.Error(w, "email is already in use", http.StatusConflict)
		return
	}

	id, _ := rowmap.NextID().(string)
	sum := sha1.Sum([]byte(id + ":" + req.Passwd))
	user, err := s.users.New(map[string]interface{}{
		"id":     id,
		"email":  req.Email,
		"name":   name,
		"passwd": hex.EncodeToString(sum[:]),
		"image":  "about:blank",
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := user.Save(ctx); err != nil {
		if rowmap.IsUniqueViolation(err) {
			http.Error(w, "user already exists", http.StatusConflict)
			return
		}
		internalError(w, err)
		return
	}

	log.Printf("[SERVER] Registered user %s (%s)", id, req.Email)
	if err := user.Set("passwd", "******"); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.listPage(w, r, s.users, "users")
}

func (s *server) listBlogs(w http.ResponseWriter, r *http.Request) {
	s.listPage(w, r, s.blogs, "blogs")
}

func (s *server) listComments(w http.ResponseWriter, r *http.Request) {
	s.listPage(w, r, s.comments, "comments")
}

// listPage renders one page of model rows, newest first.
func (s *server) listPage(w http.ResponseWriter, r *http.Request, model *rowmap.Model, key string) {
	index, err := pageIndex(r.URL.Query().Get("page"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	num, _, err := model.FindNumber(ctx, "count(`id`)", "")
	if err != nil {
		internalError(w, err)
		return
	}
	count, err := toCount(num)
	if err != nil {
		internalError(w, err)
		return
	}

	p := newPage(count, index, defaultPageSize)
	items := []*rowmap.Entity{}
	if count > 0 && p.Limit > 0 {
		items, err = model.FindAll(ctx, rowmap.OrderBy("`created_at` desc"), rowmap.Page(p.Offset, p.Limit))
		if err != nil {
			internalError(w, err)
			return
		}
	}
	if model == s.users {
		for _, u := range items {
			if err := u.Set("passwd", "******"); err != nil {
				internalError(w, err)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"page": p, key: items})
}

// saveBlog inserts a new blog, or updates the blog with the given id.
func (s *server) saveBlog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      string `json:"id"`
		UserID  string `json:"user_id"`
		Name    string `json:"name"`
		Summary string `json:"summary"`
		Content string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	for field, value := range map[string]string{"name": req.Name, "summary": req.Summary, "content": req.Content} {
		if strings.TrimSpace(value) == "" {
			http.Error(w, field+" cannot be empty", http.StatusBadRequest)
			return
		}
	}

	ctx := r.Context()
	author, ok, err := s.users.Find(ctx, req.UserID)
	if err != nil {
		internalError(w, err)
		return
	}
	if !ok {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	values := map[string]interface{}{
		"user_id":    author.GetValue("id"),
		"user_name":  author.GetValue("name"),
		"user_image": author.GetValue("image"),
		"name":       strings.TrimSpace(req.Name),
		"summary":    strings.TrimSpace(req.Summary),
		"content":    strings.TrimSpace(req.Content),
	}

	var existing *rowmap.Entity
	if req.ID != "" {
		existing, ok, err = s.blogs.Find(ctx, req.ID)
		if err != nil {
			internalError(w, err)
			return
		}
		if !ok {
			existing = nil
		}
	}

	if existing == nil {
		blog, err := s.blogs.New(values)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := blog.Save(ctx); err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, blog)
		return
	}

	for name, value := range values {
		if err := existing.Set(name, value); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := existing.Update(ctx); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *server) getBlog(w http.ResponseWriter, r *http.Request) {
	blog, ok, err := s.blogs.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		internalError(w, err)
		return
	}
	if !ok {
		http.Error(w, "blog not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

func (s *server) deleteBlog(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.blogs, "blog")
}

func (s *server) deleteComment(w http.ResponseWriter, r *http.Request) {
	s.remove(w, r, s.comments, "comment")
}

func (s *server) remove(w http.ResponseWriter, r *http.Request, model *rowmap.Model, kind string) {
	id := r.PathValue("id")
	ctx := r.Context()
	e, ok, err := model.Find(ctx, id)
	if err != nil {
		internalError(w, err)
		return
	}
	if !ok {
		http.Error(w, kind+" not found", http.StatusNotFound)
		return
	}
	if err := e.Remove(ctx); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id})
}

func (s *server) listBlogComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.comments.FindAll(r.Context(),
		rowmap.Where("`blog_id`=?", r.PathValue("id")),
		rowmap.OrderBy("`created_at` desc"),
	)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

func (s *server) createComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"user_id"`
		Content string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		http.Error(w, "content cannot be empty", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	blog, ok, err := s.blogs.Find(ctx, r.PathValue("id"))
	if err != nil {
		internalError(w, err)
		return
	}
	if !ok {
		http.Error(w, "blog not found", http.StatusNotFound)
		return
	}
	author, ok, err := s.users.Find(ctx, req.UserID)
	if err != nil {
		internalError(w, err)
		return
	}
	if !ok {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	comment, err := s.comments.New(map[string]interface{}{
		"blog_id":    blog.Key(),
		"user_id":    author.Key(),
		"user_name":  author.GetValue("name"),
		"user_image": author.GetValue("image"),
		"content":    content,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := comment.Save(ctx); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[SERVER] ERROR: Failed to encode response: %v", err)
	}
}

func internalError(w http.ResponseWriter, err error) {
	log.Printf("[SERVER] ERROR: %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
