package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// fixtureProject copies the sample project into a temporary directory and
// returns its path.
func fixtureProject(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("..", "..", "dproj", "testdata", "Project1.dproj"))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "Project1.dproj")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

const rsvarsFixture = "../../env/testdata/rsvars.bat"

// testGlobals returns flags reading path with an empty process environment
// and BDS defined.
func testGlobals(path string) *Globals {
	return &Globals{
		Project:     path,
		CleanEnv:    true,
		EnvFallback: true,
		MaxDepth:    64,
		Define:      map[string]string{"BDS": `C:\Studio`},
	}
}

// capture runs fn with command output directed to a buffer.
func capture(t *testing.T, fn func(ctx context.Context) error) (string, error) {
	t.Helper()

	var buf bytes.Buffer

	err := fn(WithOutput(context.Background(), &buf))

	return buf.String(), err
}

func TestGlobals_ProjectPath(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		want    string
		wantErr error
	}{
		{"none", []string{"readme.txt"}, "", ErrNoProject},
		{"one", []string{"App.dproj", "App.dpr"}, "App.dproj", nil},
		{"ambiguous", []string{"A.dproj", "B.dproj"}, "", ErrAmbiguousProject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, f), nil, 0o644); err != nil {
					t.Fatal(err)
				}
			}

			t.Chdir(dir)

			got, err := (&Globals{}).projectPath()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("projectPath() error = %v, want %v", err, tt.wantErr)
			}

			if got != tt.want {
				t.Errorf("projectPath() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("explicit", func(t *testing.T) {
		g := &Globals{Project: "elsewhere/X.dproj"}
		if got, err := g.projectPath(); err != nil || got != g.Project {
			t.Errorf("projectPath() = %q, %v", got, err)
		}
	})
}

func TestUniqueFiles(t *testing.T) {
	dir := t.TempDir()

	a := filepath.Join(dir, "a.bat")
	b := filepath.Join(dir, "b.bat")
	link := filepath.Join(dir, "link.bat")
	missing := filepath.Join(dir, "missing.bat")

	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := os.Symlink(a, link); err != nil {
		t.Skipf("symlink: %v", err)
	}

	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"empty", nil, []string{}},
		{"distinct", []string{a, b}, []string{a, b}},
		{"repeated", []string{a, b, a}, []string{a, b}},
		{"symlink", []string{a, link}, []string{a}},
		{"missing kept", []string{missing, a, missing}, []string{missing, a, missing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uniqueFiles(tt.paths); !slices.Equal(got, tt.want) {
				t.Errorf("uniqueFiles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGlobals_Active(t *testing.T) {
	path := fixtureProject(t)

	tests := []struct {
		name         string
		config       string
		platform     string
		unscoped     bool
		wantConfig   string
		wantPlatform string
	}{
		{"defaults", "", "", false, "Debug", "Win32"},
		{"platform only", "", "Win64", false, "Debug", "Win64"},
		{"both", "Release", "Win64", false, "Release", "Win64"},
		{"unscoped", "Release", "", true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGlobals(path)
			g.Config, g.Platform, g.Unscoped = tt.config, tt.platform, tt.unscoped

			a, err := g.active(context.Background())
			if err != nil {
				t.Fatalf("active() error = %v", err)
			}

			if a.Configuration() != tt.wantConfig || a.Platform() != tt.wantPlatform {
				t.Errorf("active() = %s|%s, want %s|%s",
					a.Configuration(), a.Platform(), tt.wantConfig, tt.wantPlatform)
			}
		})
	}
}

func TestGlobals_Builder(t *testing.T) {
	dir := t.TempDir()

	dotenv := filepath.Join(dir, "local.env")
	if err := os.WriteFile(dotenv, []byte("LANGDIR=FR\nEXTRA=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := &Globals{
		CleanEnv: true,
		Rsvars:   []string{rsvarsFixture, rsvarsFixture},
		EnvFile:  []string{dotenv},
		Define:   map[string]string{"extra": "2"},
	}

	store, err := g.builder().Env()
	if err != nil {
		t.Fatalf("Env() error = %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"BDS", `C:\Program Files (x86)\Embarcadero\Studio\23.0`},
		{"LANGDIR", "FR"},
		{"EXTRA", "2"},
	}

	for _, tt := range tests {
		if got := store.Get(tt.key); got != tt.want {
			t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}

	if _, ok := store.Lookup("HOME"); ok {
		t.Error("process environment leaked into clean store")
	}
}
