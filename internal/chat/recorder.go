package chat

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const stopGrace = 3 * time.Second

var (
	// ErrMicrophoneBusy is returned when another recording holds the microphone.
	ErrMicrophoneBusy = errors.New("microphone is in use by another recording")
	ErrNoRecorder     = errors.New("no voice recorder configured")
	ErrEmptyRecording = errors.New("recording is empty")
)

// Recorder runs an external command to capture voice notes. Only one
// recording per Recorder may hold the microphone at a time.
type Recorder struct {
	command string
	dir     string
	mic     sync.Mutex
}

// NewRecorder returns a recorder running command, where {file} is replaced
// by the output path. Recordings are written to dir (the temp dir if empty).
func NewRecorder(command, dir string) *Recorder {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Recorder{command: strings.TrimSpace(command), dir: dir}
}

// Recording is one running capture. Stop or Cancel releases the microphone.
type Recording struct {
	path    string
	cmd     *exec.Cmd
	started time.Time
	done    chan error
	release sync.Once
	unlock  func()
}

// Start acquires the microphone and launches the recorder command.
func (r *Recorder) Start() (*Recording, error) {
	if r.command == "" {
		return nil, ErrNoRecorder
	}
	if !r.mic.TryLock() {
		return nil, ErrMicrophoneBusy
	}
	path := filepath.Join(r.dir, "nestchat-voice-"+uuid.NewString()+".wav")
	args := recorderArgs(r.command, path)
	bin, err := exec.LookPath(args[0])
	if err != nil {
		r.mic.Unlock()
		return nil, fmt.Errorf("recorder %q not found: %w", args[0], err)
	}
	cmd := exec.Command(bin, args[1:]...)
	if err := cmd.Start(); err != nil {
		r.mic.Unlock()
		return nil, fmt.Errorf("start recorder: %w", err)
	}
	rec := &Recording{
		path:    path,
		cmd:     cmd,
		started: time.Now(),
		done:    make(chan error, 1),
		unlock:  r.mic.Unlock,
	}
	go func() { rec.done <- cmd.Wait() }()
	return rec, nil
}

// recorderArgs splits command on whitespace and substitutes {file}. A
// command without {file} gets the path appended.
func recorderArgs(command, path string) []string {
	fields := strings.Fields(command)
	found := false
	for i, f := range fields {
		if strings.Contains(f, "{file}") {
			fields[i] = strings.ReplaceAll(f, "{file}", path)
			found = true
		}
	}
	if !found {
		fields = append(fields, path)
	}
	return fields
}

// Elapsed is the time since the recording started.
func (rec *Recording) Elapsed() time.Duration {
	return time.Since(rec.started)
}

// Stop ends the capture and returns the recorded file and its length in
// seconds.
func (rec *Recording) Stop() (string, float64, error) {
	duration := rec.Elapsed().Seconds()
	rec.finish()
	info, err := os.Stat(rec.path)
	if err != nil {
		return "", 0, fmt.Errorf("read recording: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(rec.path)
		return "", 0, ErrEmptyRecording
	}
	return rec.path, duration, nil
}

// Cancel ends the capture and discards the file.
func (rec *Recording) Cancel() {
	rec.finish()
	_ = os.Remove(rec.path)
}

func (rec *Recording) finish() {
	rec.release.Do(func() {
		defer rec.unlock()
		if rec.cmd.Process != nil {
			_ = rec.cmd.Process.Signal(os.Interrupt)
		}
		select {
		case <-rec.done:
		case <-time.After(stopGrace):
			_ = rec.cmd.Process.Kill()
			<-rec.done
		}
	})
}
