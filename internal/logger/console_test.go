package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestConsoleLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		logged     []string
		notLogged  []string
	}{
		{
			name:       "info filters debug and trace",
			configured: "info",
			logged:     []string{"info line", "warn line", "error line"},
			notLogged:  []string{"debug line", "trace line"},
		},
		{
			name:       "trace passes everything",
			configured: "trace",
			logged:     []string{"trace line", "debug line", "info line", "warn line", "error line"},
		},
		{
			name:       "error filters everything below",
			configured: "error",
			logged:     []string{"error line"},
			notLogged:  []string{"trace line", "debug line", "info line", "warn line"},
		},
		{
			name:       "invalid level defaults to info",
			configured: "loud",
			logged:     []string{"info line"},
			notLogged:  []string{"debug line"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cl := NewConsoleLogger(&buf, tt.configured)

			cl.Tracef("trace line")
			cl.Debugf("debug line")
			cl.Infof("info line")
			cl.Warnf("warn line")
			cl.Errorf("error line")

			output := buf.String()
			for _, want := range tt.logged {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %q:\n%s", want, output)
				}
			}
			for _, unwanted := range tt.notLogged {
				if strings.Contains(output, unwanted) {
					t.Errorf("output contains %q but should not:\n%s", unwanted, output)
				}
			}
		})
	}
}

func TestConsoleLoggerFormatsArguments(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	cl.Infof("task %s: %d results", "abc", 4)

	if !strings.Contains(buf.String(), "task abc: 4 results") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "[INFO]") {
		t.Errorf("output missing level label: %s", buf.String())
	}
}

func TestConsoleLoggerNilWriter(t *testing.T) {
	cl := NewConsoleLogger(nil, "info")
	// Must not panic
	cl.Infof("into the void")
}

func TestConsoleLoggerConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cl.Infof("line %d", n)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Errorf("got %d lines, want 20", len(lines))
	}
}
