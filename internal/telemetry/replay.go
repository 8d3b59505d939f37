package telemetry

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// ReplaySource plays back recorded bridge frames. The cursor moves only when
// Advance is called, so a driver controls exactly which frame every tick sees.
// Camera commands are recorded instead of sent anywhere.
type ReplaySource struct {
	mu          sync.Mutex
	frames      []Frame
	cursor      int
	initialized bool
	unavailable bool
	commands    []Command

	snap pinnedSnapshot
}

// NewReplaySource builds a source over frames. No frame is current until the
// first Advance.
func NewReplaySource(frames []Frame) *ReplaySource {
	return &ReplaySource{frames: frames, cursor: -1}
}

// LoadReplay reads a JSONL recording, one bridge frame per line.
func LoadReplay(path string, validator *FrameValidator) (*ReplaySource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var frames []Frame
	scanner := bufio.NewScanner(file)

	// Session info lines are large
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxFrameSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		frame, err := DecodeFrame(line, validator)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		frames = append(frames, *frame)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames found in %s", path)
	}

	return NewReplaySource(frames), nil
}

// Append adds frames to the end of the recording.
func (r *ReplaySource) Append(frames ...Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frames...)
}

// Advance makes the next frame current. It returns ErrReplayFinished once
// the recording is exhausted; the source then reports disconnected.
func (r *ReplaySource) Advance() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor < len(r.frames) {
		r.cursor++
	}
	if r.cursor >= len(r.frames) {
		r.snap.store(nil)
		return ErrReplayFinished
	}
	r.snap.store(r.frames[r.cursor].Data)
	return nil
}

// Len returns the number of recorded frames.
func (r *ReplaySource) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// SetUnavailable makes Startup fail and drops the link, simulating a bridge
// that went away.
func (r *ReplaySource) SetUnavailable(unavailable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unavailable = unavailable
	if unavailable {
		r.initialized = false
	}
}

func (r *ReplaySource) Startup() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unavailable {
		return false
	}
	r.initialized = true
	return true
}

func (r *ReplaySource) IsInitialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

func (r *ReplaySource) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized || r.cursor < 0 || r.cursor >= len(r.frames) {
		return false
	}
	return r.frames[r.cursor].Connected
}

func (r *ReplaySource) Freeze()  { r.snap.freeze() }
func (r *ReplaySource) Release() { r.snap.release() }

func (r *ReplaySource) Snapshot() *Snapshot { return r.snap.get() }

// SwitchCamera records the command.
func (r *ReplaySource) SwitchCamera(carNumber string, group, mode int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return ErrNotConnected
	}
	r.commands = append(r.commands, Command{
		Type:      CommandCameraSwitch,
		CarNumber: carNumber,
		Group:     group,
		Mode:      mode,
	})
	return nil
}

// Commands returns every camera command received so far.
func (r *ReplaySource) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

func (r *ReplaySource) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialized = false
}
