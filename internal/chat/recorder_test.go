package chat

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
)

func TestRecorderArgs(t *testing.T) {
	tests := []struct {
		command string
		want    []string
	}{
		{"rec -q {file}", []string{"rec", "-q", "/tmp/v.wav"}},
		{"arecord -f cd", []string{"arecord", "-f", "cd", "/tmp/v.wav"}},
		{"ffmpeg -i default out={file}", []string{"ffmpeg", "-i", "default", "out=/tmp/v.wav"}},
	}
	for _, tt := range tests {
		got := recorderArgs(tt.command, "/tmp/v.wav")
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("recorderArgs(%q) = %v, want %v", tt.command, got, tt.want)
		}
	}
}

func TestRecorderWithoutCommand(t *testing.T) {
	r := NewRecorder("  ", t.TempDir())
	if _, err := r.Start(); !errors.Is(err, ErrNoRecorder) {
		t.Fatalf("expected ErrNoRecorder, got %v", err)
	}
}

func TestRecorderMissingBinaryReleasesMicrophone(t *testing.T) {
	r := NewRecorder("nestchat-missing-recorder {file}", t.TempDir())
	if _, err := r.Start(); err == nil {
		t.Fatalf("expected start failure")
	}
	if !r.mic.TryLock() {
		t.Fatalf("microphone still held after failed start")
	}
	r.mic.Unlock()
}

func TestRecorderOwnsMicrophoneExclusively(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	r := NewRecorder("sleep 30", t.TempDir())
	first, err := r.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := r.Start(); !errors.Is(err, ErrMicrophoneBusy) {
		t.Fatalf("second start = %v, want ErrMicrophoneBusy", err)
	}
	first.Cancel()
	second, err := r.Start()
	if err != nil {
		t.Fatalf("start after cancel: %v", err)
	}
	second.Cancel()
	second.Cancel()
}

func TestRecordingStopReturnsFile(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp not available")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src.wav")
	if err := os.WriteFile(src, []byte("RIFF0000WAVE"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	r := NewRecorder("cp "+src+" {file}", dir)
	rec, err := r.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	<-rec.done
	rec.done <- nil

	path, duration, err := rec.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if filepath.Dir(path) != dir || duration < 0 {
		t.Fatalf("unexpected recording %q (%v s)", path, duration)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "RIFF0000WAVE" {
		t.Fatalf("recording content %q, err %v", data, err)
	}
}

func TestRecordingStopRejectsEmptyFile(t *testing.T) {
	if _, err := exec.LookPath("touch"); err != nil {
		t.Skip("touch not available")
	}
	r := NewRecorder("touch {file}", t.TempDir())
	rec, err := r.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	<-rec.done
	rec.done <- nil

	if _, _, err := rec.Stop(); !errors.Is(err, ErrEmptyRecording) {
		t.Fatalf("stop = %v, want ErrEmptyRecording", err)
	}
}
