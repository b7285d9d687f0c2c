// Package bridge transplants a sandbox session's render surface into the
// host page and republishes the session's game handle to the host.
package bridge

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/sandbox"
	"github.com/GriffinCanCode/scriptgate/internal/shared/id"
)

// DefaultContainerID is the host container the game renders into.
const DefaultContainerID = "game-container"

// DefaultPage is the host page used when none is supplied.
const DefaultPage = `<!DOCTYPE html>
<html>
<head><title>Game</title></head>
<body>
<div id="game-container"></div>
<div id="debug-console"></div>
</body>
</html>`

// ErrNoContainer means the host page lacks the container element.
var ErrNoContainer = errors.New("host container not found")

// Host owns the host page and is the only writer of its container.
type Host struct {
	mu          sync.Mutex
	doc         *goquery.Document
	containerID string
	game        *sandbox.GameHandle
	sessionID   id.SandboxID
	transplants int
}

// NewHost parses page and checks that the container exists.
func NewHost(page, containerID string) (*Host, error) {
	if page == "" {
		page = DefaultPage
	}
	if containerID == "" {
		containerID = DefaultContainerID
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse host page: %w", err)
	}
	if doc.Find("#"+containerID).Length() == 0 {
		return nil, fmt.Errorf("%w: #%s", ErrNoContainer, containerID)
	}

	return &Host{doc: doc, containerID: containerID}, nil
}

// Attach moves the session's first canvas into the container, replacing
// prior content, and republishes the game handle. A session that drew no
// canvas leaves the container empty; its handle is still published.
func (h *Host) Attach(s *sandbox.Session) error {
	surface, err := s.Surface().Render()
	if err != nil {
		return &sandbox.SetupError{Stage: "surface", Err: err}
	}

	root, err := htmlquery.Parse(strings.NewReader(surface))
	if err != nil {
		return &sandbox.SetupError{Stage: "surface", Err: err}
	}
	var markup string
	if canvas := htmlquery.FindOne(root, "//canvas"); canvas != nil {
		markup = htmlquery.OutputHTML(canvas, true)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	container := h.doc.Find("#" + h.containerID)
	if container.Length() == 0 {
		return &sandbox.SetupError{Stage: "container", Err: ErrNoContainer}
	}
	container.Empty()

	h.game = s.Game()
	h.sessionID = s.ID()
	if markup == "" {
		return nil
	}
	container.SetHtml(markup)
	h.transplants++
	return nil
}

// Game returns the handle published by the last transplant.
func (h *Host) Game() *sandbox.GameHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.game
}

// SessionID returns the session shown in the container.
func (h *Host) SessionID() id.SandboxID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionID
}

// Transplants counts successful attaches.
func (h *Host) Transplants() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transplants
}

// Container returns the container's inner HTML.
func (h *Host) Container() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc.Find("#" + h.containerID).Html()
}

// HTML returns the whole host page.
func (h *Host) HTML() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc.Html()
}

// Reset empties the container and drops the game handle.
func (h *Host) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.doc.Find("#" + h.containerID).Empty()
	h.game = nil
	h.sessionID = ""
}
