package browser

import (
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// State is a Handle's lifecycle state.
type State int

const (
	StateCreated State = iota
	StateAvailable
	StateInUse
	StateDisconnected
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAvailable:
		return "available"
	case StateInUse:
		return "in_use"
	case StateDisconnected:
		return "disconnected"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Handle is an opaque reference to one running browser process. Handles
// are owned exclusively by the Pool: state transitions happen only under
// the pool's mutex, and a handle is InUse by at most one caller at a time.
type Handle struct {
	ID int64

	browser  *rod.Browser
	launcher *launcher.Launcher

	state       State
	created     time.Time
	lastChecked time.Time
}

// Browser exposes the underlying rod browser for opening page sessions.
func (h *Handle) Browser() *rod.Browser {
	return h.browser
}

// State returns the handle's current lifecycle state. Callers outside the
// pool should treat it as informational only.
func (h *Handle) State() State {
	return h.state
}

// alive probes the browser process over CDP. A failed probe means the
// process died or the connection dropped.
func (h *Handle) alive() bool {
	h.lastChecked = time.Now()
	_, err := proto.BrowserGetVersion{}.Call(h.browser)
	return err == nil
}

// close tears down the browser process. Safe to call on a dead handle.
func (h *Handle) close() {
	h.state = StateRemoved
	if h.browser != nil {
		_ = h.browser.Close()
	}
	if h.launcher != nil {
		h.launcher.Kill()
	}
}
