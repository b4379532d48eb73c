package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, false)
	log.Debug("hidden")
	log.WithField("notes", 3).Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line logged at info level: %q", out)
	}
	if !strings.Contains(out, "notes=3") {
		t.Errorf("missing field in %q", out)
	}

	if New(&buf, true).GetLevel() != logrus.DebugLevel {
		t.Error("debug logger should be at debug level")
	}
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")

	log, closer, err := ToFile(path)
	if err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}
	log.WithField("path", "synth.mid").Debug("wrote file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "path=synth.mid") {
		t.Errorf("log file = %q", data)
	}
}
