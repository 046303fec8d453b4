package tunnel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"
	"go.uber.org/zap"
)

var urlPattern = regexp.MustCompile(`https://[a-z0-9-]+\.trycloudflare\.com`)

const stopTimeout = 3 * time.Second

// Service runs a cloudflared quick tunnel as a child process and
// extracts the public URL from its output.
type Service struct {
	binary string
	logger *zap.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	waitDone  chan struct{}
	publicURL string
	onReady   func(url string)
	onExit    func(err error)
}

// NewService creates a tunnel service. binary is the cloudflared
// command name or path.
func NewService(binary string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{binary: binary, logger: logger}
}

// OnReady sets the callback invoked once when the public URL appears.
func (s *Service) OnReady(fn func(url string)) {
	s.mu.Lock()
	s.onReady = fn
	s.mu.Unlock()
}

// OnExit sets the callback invoked when the tunnel process ends. err is
// nil for a clean exit.
func (s *Service) OnExit(fn func(err error)) {
	s.mu.Lock()
	s.onExit = fn
	s.mu.Unlock()
}

// Start launches the tunnel pointing at the local port. Starting while
// a tunnel is already running is a logged no-op.
func (s *Service) Start(port string) error {
	s.mu.Lock()
	if s.cmd != nil {
		s.mu.Unlock()
		s.logger.Warn("tunnel already running")
		return nil
	}

	cmd := exec.Command(s.binary,
		"tunnel", "--url", "http://localhost:"+port, "--no-autoupdate")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("start %s: %w", s.binary, err)
	}
	s.cmd = cmd
	s.waitDone = make(chan struct{})
	s.publicURL = ""
	done := s.waitDone
	s.mu.Unlock()

	// cloudflared logs the assigned URL on stderr, but scan both.
	go s.scan(stdout)
	go s.scan(stderr)
	go s.wait(cmd, done)

	s.logger.Info("tunnel starting", zap.String("binary", s.binary), zap.String("port", port))
	return nil
}

func (s *Service) scan(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		url := ExtractURL(line)
		if url == "" {
			continue
		}
		s.mu.Lock()
		first := s.publicURL == ""
		if first {
			s.publicURL = url
		}
		onReady := s.onReady
		s.mu.Unlock()

		if first {
			s.logger.Info("tunnel ready", zap.String("url", url))
			s.printQR(url)
			if onReady != nil {
				onReady(url)
			}
		}
	}
}

func (s *Service) wait(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()
	close(done)
	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd = nil
		s.publicURL = ""
	}
	onExit := s.onExit
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("tunnel exited", zap.Error(err))
	} else {
		s.logger.Info("tunnel closed")
	}
	if onExit != nil {
		onExit(err)
	}
}

// Stop terminates the tunnel process: SIGTERM first, SIGKILL after a
// timeout. Safe to call when no tunnel is running.
func (s *Service) Stop() {
	s.mu.Lock()
	cmd := s.cmd
	done := s.waitDone
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}

	_ = cmd.Process.Signal(os.Interrupt)
	select {
	case <-done:
	case <-time.After(stopTimeout):
		s.logger.Warn("tunnel did not stop in time, killing")
		_ = cmd.Process.Kill()
		<-done
	}
}

// PublicURL returns the current public URL, or "" before the tunnel is
// ready.
func (s *Service) PublicURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publicURL
}

func (s *Service) printQR(url string) {
	qrterminal.GenerateWithConfig(url, qrterminal.Config{
		Level:      qrterminal.L,
		Writer:     os.Stdout,
		HalfBlocks: true,
		QuietZone:  1,
	})
}

// ExtractURL returns the first trycloudflare URL in the line, or "".
func ExtractURL(line string) string {
	return urlPattern.FindString(line)
}
