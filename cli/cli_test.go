package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ardnew/dproj/dproj"
	"github.com/ardnew/dproj/log"
)

func TestLogConfig_Scan(t *testing.T) {
	t.Cleanup(func() {
		log.Config(
			log.WithLevel(log.DefaultLevel),
			log.WithFormat(log.DefaultFormat),
			log.WithCaller(false),
			log.WithPretty(true),
		)
	})

	tests := []struct {
		name       string
		args       []string
		wantLevel  log.Level
		wantFormat log.Format
		wantCaller bool
		wantPretty bool
	}{
		{
			name:       "separate values",
			args:       []string{"get", "--log-level", "debug", "--log-format", "json", "X"},
			wantLevel:  log.LevelDebug,
			wantFormat: log.FormatJSON,
			wantPretty: true,
		},
		{
			name:       "assigned values",
			args:       []string{"--log-level=trace", "--log-caller", "--no-log-pretty"},
			wantLevel:  log.LevelTrace,
			wantFormat: log.FormatText,
			wantCaller: true,
		},
		{
			name:       "explicit booleans",
			args:       []string{"--log-caller=false", "--no-log-pretty=false", "--log-level=error"},
			wantLevel:  log.LevelError,
			wantFormat: log.FormatText,
			wantPretty: true,
		},
		{
			name:       "value not consumed from flag",
			args:       []string{"--log-level", "--log-format=json"},
			wantLevel:  log.DefaultLevel,
			wantFormat: log.FormatJSON,
			wantPretty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := logConfig{Format: "text", Pretty: true}
			log.Config(log.WithFormat(log.FormatText))

			f.scan(tt.args)

			if got := log.Default().Level(); got != tt.wantLevel {
				t.Errorf("level = %v, want %v", got, tt.wantLevel)
			}

			if got := log.Default().Format(); got != tt.wantFormat {
				t.Errorf("format = %v, want %v", got, tt.wantFormat)
			}

			if f.Caller != tt.wantCaller || f.Pretty != tt.wantPretty {
				t.Errorf("caller, pretty = %v, %v, want %v, %v",
					f.Caller, f.Pretty, tt.wantCaller, tt.wantPretty)
			}
		})
	}
}

func TestRun(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, "cache"))

	exit := func(code int) { t.Fatalf("unexpected exit(%d)", code) }

	if err := Run(context.Background(), exit, "version"); err != nil {
		t.Errorf("Run(version) error = %v", err)
	}

	missing := filepath.Join(home, "Missing.dproj")

	err := Run(context.Background(), exit, "get", "--project", missing, "DCC_Define")
	if !errors.Is(err, dproj.ErrReadInput) {
		t.Errorf("Run(get) error = %v, want %v", err, dproj.ErrReadInput)
	}
}
