package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	sessionMu    sync.Mutex
	sessionUsers int
)

// Initialize starts PortAudio for one more user. Every successful call must
// be balanced by Terminate; the library shuts down with the last user.
func Initialize() error {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if sessionUsers == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("portaudio init: %w", err)
		}
	}
	sessionUsers++
	return nil
}

// Terminate releases one Initialize. Extra calls are ignored.
func Terminate() {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if sessionUsers == 0 {
		return
	}
	sessionUsers--
	if sessionUsers == 0 {
		_ = portaudio.Terminate()
	}
}

// Version describes the linked PortAudio build.
func Version() string { return portaudio.VersionText() }
