package media

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotStarted is returned when a command is sent before Start
var ErrNotStarted = errors.New("mpv is not running")

const (
	observeTimePos  = 1
	observeDuration = 2
	commandTimeout  = 2 * time.Second
)

type mpvCommand struct {
	Command []interface{} `json:"command"`
}

type mpvResponse struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

type mpvEvent struct {
	Event  string      `json:"event"`
	ID     int         `json:"id,omitempty"`
	Name   string      `json:"name,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// MPV drives an idle mpv process over its JSON IPC socket
type MPV struct {
	binary     string
	socketPath string

	mu        sync.Mutex
	cmd       *exec.Cmd
	eventConn net.Conn
	listener  Listener
	position  float64
	running   bool
}

// NewMPV creates an element backed by the mpv binary at path
func NewMPV(binary string) *MPV {
	if binary == "" {
		binary = "mpv"
	}
	return &MPV{
		binary:     binary,
		socketPath: filepath.Join(os.TempDir(), fmt.Sprintf("podcast-player-mpv-%d.sock", os.Getpid())),
	}
}

// Start launches mpv in idle mode and subscribes to its events
func (m *MPV) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	os.Remove(m.socketPath)

	m.cmd = exec.CommandContext(ctx, m.binary,
		"--no-video",
		"--really-quiet",
		"--no-terminal",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
		"--idle",
		"--force-window=no",
		"--keep-open=no",
	)

	if err := m.cmd.Start(); err != nil {
		m.cmd = nil
		return fmt.Errorf("failed to start mpv: %w", err)
	}

	// mpv creates the socket shortly after start
	socketReady := false
	for i := 0; i < 20; i++ {
		if _, err := os.Stat(m.socketPath); err == nil {
			socketReady = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	if !socketReady {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
		m.cmd = nil
		return fmt.Errorf("mpv socket not created after timeout")
	}

	if err := m.connectEvents(); err != nil {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
		m.cmd = nil
		return err
	}

	m.running = true
	log.Printf("[DEBUG] mpv started in idle mode (socket %s)", m.socketPath)
	return nil
}

// connectEvents opens the long-lived connection used for property
// observation and end-of-file events. Callers hold m.mu.
func (m *MPV) connectEvents() error {
	conn, err := net.Dial("unix", m.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect for events: %w", err)
	}

	commands := []mpvCommand{
		{Command: []interface{}{"observe_property", observeTimePos, "time-pos"}},
		{Command: []interface{}{"observe_property", observeDuration, "duration"}},
		{Command: []interface{}{"enable_event", "end-file"}},
	}
	for _, cmd := range commands {
		data, _ := json.Marshal(cmd)
		if _, err := conn.Write(append(data, '\n')); err != nil {
			conn.Close()
			return fmt.Errorf("failed to subscribe to mpv events: %w", err)
		}
	}

	m.eventConn = conn
	go m.handleEvents(conn)
	return nil
}

func (m *MPV) handleEvents(conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Printf("[DEBUG] mpv event reader stopped: %v", err)
			}
			return
		}

		var event mpvEvent
		if err := json.Unmarshal(line, &event); err != nil || event.Event == "" {
			continue // command replies and malformed lines
		}
		m.dispatch(event)
	}
}

func (m *MPV) dispatch(event mpvEvent) {
	m.mu.Lock()
	listener := m.listener
	m.mu.Unlock()

	switch event.Event {
	case "property-change":
		value, ok := event.Data.(float64)
		if !ok {
			return
		}
		switch event.ID {
		case observeTimePos:
			m.mu.Lock()
			m.position = value
			m.mu.Unlock()
			if listener != nil {
				listener.OnTimeUpdate(value)
			}
		case observeDuration:
			if listener != nil && value > 0 {
				listener.OnLoadedMetadata(value)
			}
		}
	case "end-file":
		if event.Reason == "error" {
			log.Printf("[WARN] mpv could not play the current file")
			return
		}
		if event.Reason != "eof" {
			return // stop, quit and redirect are not track ends
		}
		m.mu.Lock()
		m.position = 0
		m.mu.Unlock()
		if listener != nil {
			listener.OnEnded()
		}
	}
}

// sendCommand sends one command over a fresh IPC connection
func (m *MPV) sendCommand(ctx context.Context, args ...interface{}) (*mpvResponse, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", m.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mpv socket: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(commandTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	data, err := json.Marshal(mpvCommand{Command: args})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("failed to write command: %w", err)
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		// events can be interleaved with the reply
		var peek mpvEvent
		if json.Unmarshal(line, &peek) == nil && peek.Event != "" {
			continue
		}

		var response mpvResponse
		if err := json.Unmarshal(line, &response); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if response.Error != "" && response.Error != "success" {
			return &response, fmt.Errorf("mpv error: %s", response.Error)
		}
		return &response, nil
	}
}

func (m *MPV) command(ctx context.Context, args ...interface{}) error {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if !running {
		return ErrNotStarted
	}
	_, err := m.sendCommand(ctx, args...)
	return err
}

// Load replaces the current file. Playback stays paused until Play.
func (m *MPV) Load(url string) error {
	ctx := context.Background()
	if err := m.command(ctx, "set_property", "pause", true); err != nil {
		return fmt.Errorf("failed to pause before load: %w", err)
	}
	if err := m.command(ctx, "loadfile", url, "replace"); err != nil {
		return fmt.Errorf("failed to load file: %w", err)
	}

	m.mu.Lock()
	m.position = 0
	m.mu.Unlock()
	return nil
}

// Play resumes output of the loaded file
func (m *MPV) Play(ctx context.Context) error {
	if err := m.command(ctx, "set_property", "pause", false); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	return nil
}

// Pause halts output
func (m *MPV) Pause() error {
	if err := m.command(context.Background(), "set_property", "pause", true); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}
	return nil
}

// Stop unloads the current file
func (m *MPV) Stop() error {
	if err := m.command(context.Background(), "stop"); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	m.mu.Lock()
	m.position = 0
	m.mu.Unlock()
	return nil
}

// CurrentTime returns the last observed position
func (m *MPV) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// SetCurrentTime seeks to an absolute position
func (m *MPV) SetCurrentTime(seconds float64) error {
	if err := m.command(context.Background(), "seek", seconds, "absolute"); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	m.mu.Lock()
	m.position = seconds
	m.mu.Unlock()
	return nil
}

// SetVolume sets the output volume from a fraction in [0, 1]
func (m *MPV) SetVolume(fraction float64) error {
	if err := m.command(context.Background(), "set_property", "volume", fraction*100); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return nil
}

// SetListener registers the callback target
func (m *MPV) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// Close quits mpv and removes its socket
func (m *MPV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	if m.eventConn != nil {
		m.eventConn.Close()
		m.eventConn = nil
	}

	if m.cmd != nil && m.cmd.Process != nil {
		// Try graceful quit first
		_, _ = m.sendCommand(context.Background(), "quit")

		done := make(chan error, 1)
		go func() {
			done <- m.cmd.Wait()
		}()

		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
			log.Printf("[WARN] Force killing mpv process (pid: %d)", m.cmd.Process.Pid)
			_ = m.cmd.Process.Kill()
			<-done
		}
		m.cmd = nil
	}

	if err := os.Remove(m.socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
