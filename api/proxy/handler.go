package proxy

import (
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/podcast-player/pkg/download"
)

// DefaultContentType is sent when the upstream does not name one
const DefaultContentType = "audio/mpeg"

const streamBuffer = 32 * 1024

// AudioRequest is the body of a proxy request
type AudioRequest struct {
	AudioURL string `json:"audioUrl"`
}

// Handler relays audio from public hosts so clients can download it
// without running into CORS
type Handler struct {
	downloader *download.Downloader
	blocked    HostGuard
}

// Option configures a Handler
type Option func(*Handler)

// WithHostGuard replaces the private network check
func WithHostGuard(guard HostGuard) Option {
	return func(h *Handler) { h.blocked = guard }
}

// NewHandler creates a proxy handler around downloader. Redirects and the
// resolved address of each connection are checked against the same host
// guard as the requested URL.
func NewHandler(downloader *download.Downloader, opts ...Option) *Handler {
	h := &Handler{blocked: IsPrivateOrLocalAddress}
	for _, opt := range opts {
		opt(h)
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   dialControl(h.blocked),
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	transport.DisableCompression = true
	client := &http.Client{
		Timeout:       downloader.Options().Timeout,
		Transport:     transport,
		CheckRedirect: checkRedirect(h.blocked),
	}
	h.downloader = downloader.WithClient(client)
	return h
}

// ProxyAudio fetches audioUrl and streams it back
// @Summary Proxy an audio file
// @Description Fetch a public audio URL server-side and relay the bytes
// @Tags proxy
// @Accept json
// @Produce octet-stream
// @Param request body AudioRequest true "Audio to fetch"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/proxy-audio [post]
func (h *Handler) ProxyAudio(c *gin.Context) {
	var req AudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	target, err := validateAudioURL(req.AudioURL, h.blocked)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrPrivateHost) {
			status = http.StatusForbidden
		}
		log.Printf("[WARN] Rejected proxy request: %v", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	log.Printf("[DEBUG] Proxying audio from %s", target.Redacted())

	stream, err := h.downloader.Open(c.Request.Context(), target.String())
	if err != nil {
		log.Printf("[ERROR] Failed to fetch audio: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch audio file: " + err.Error()})
		return
	}
	defer stream.Body.Close()

	contentType := stream.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		log.Printf("[ERROR] Received HTML instead of audio from %s", target.Redacted())
		c.JSON(http.StatusBadGateway, gin.H{"error": "Audio source returned HTML instead of audio content"})
		return
	}

	// without a declared length the body is buffered so the client still gets one
	if stream.ContentLength < 0 {
		result, err := stream.ReadAll(nil)
		if err != nil {
			log.Printf("[ERROR] Failed to read audio: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch audio file: " + err.Error()})
			return
		}
		c.Header("Content-Length", strconv.Itoa(len(result.Data)))
		c.Data(http.StatusOK, contentType, result.Data)
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	c.Status(http.StatusOK)

	written, err := io.CopyBuffer(c.Writer, stream.Reader(nil), make([]byte, streamBuffer))
	if err != nil {
		if !strings.Contains(err.Error(), "broken pipe") && !strings.Contains(err.Error(), "connection reset") {
			log.Printf("[ERROR] Error relaying audio: %v", err)
		} else {
			log.Printf("[DEBUG] Client disconnected after %d bytes", written)
		}
		return
	}
	log.Printf("[DEBUG] Relayed %d bytes", written)
}
