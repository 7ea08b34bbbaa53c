// Package objecturl hands out short-lived loopback URLs for in-memory
// audio so a media element can open downloaded episodes like any other
// stream. Every URL must be revoked once it is no longer the active source.
package objecturl

import (
	"bytes"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RoutePrefix is the path under which objects are served
const RoutePrefix = "/objects/"

type object struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// Registry holds the live objects
type Registry struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]object

	created atomic.Int64
	revoked atomic.Int64
}

// NewRegistry creates a registry minting URLs under baseURL
func NewRegistry(baseURL string) *Registry {
	return &Registry{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]object),
	}
}

// Create registers data and returns its URL
func (r *Registry) Create(data []byte, contentType string) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	id := uuid.NewString()

	r.mu.Lock()
	r.objects[id] = object{data: data, contentType: contentType, createdAt: time.Now()}
	r.mu.Unlock()

	r.created.Add(1)
	return r.baseURL + RoutePrefix + id
}

// Revoke releases the object behind url. It reports whether a live object
// was released; unknown and already revoked URLs are ignored.
func (r *Registry) Revoke(url string) bool {
	id, ok := r.idFor(url)
	if !ok {
		return false
	}

	r.mu.Lock()
	_, live := r.objects[id]
	delete(r.objects, id)
	r.mu.Unlock()

	if live {
		r.revoked.Add(1)
	}
	return live
}

// Owns reports whether url was minted by this registry
func (r *Registry) Owns(url string) bool {
	_, ok := r.idFor(url)
	return ok
}

func (r *Registry) idFor(url string) (string, bool) {
	prefix := r.baseURL + RoutePrefix
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(url, prefix)
	return id, id != ""
}

// Outstanding returns the number of live objects
func (r *Registry) Outstanding() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// Created returns how many URLs were minted
func (r *Registry) Created() int64 {
	return r.created.Load()
}

// Revoked returns how many URLs were released
func (r *Registry) Revoked() int64 {
	return r.revoked.Load()
}

// RegisterRoutes mounts the object handler on router
func (r *Registry) RegisterRoutes(router gin.IRouter) {
	router.GET(RoutePrefix+":id", r.serve)
	router.HEAD(RoutePrefix+":id", r.serve)
}

func (r *Registry) serve(c *gin.Context) {
	r.mu.RLock()
	obj, ok := r.objects[c.Param("id")]
	r.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
		return
	}

	c.Header("Content-Type", obj.contentType)
	c.Header("Cache-Control", "no-store")
	// ServeContent answers Range requests, which the player uses to seek
	http.ServeContent(c.Writer, c.Request, "", obj.createdAt, bytes.NewReader(obj.data))
}
