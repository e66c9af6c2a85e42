package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ardnew/dproj/dproj"
	"github.com/ardnew/dproj/pkg"
)

func TestProps_Run(t *testing.T) {
	path := fixtureProject(t)

	tests := []struct {
		name     string
		props    Props
		config   string
		platform string
		want     string
		contains []string
	}{
		{
			name:  "all",
			props: Props{Output: Output{Format: "text"}},
			contains: []string{
				"DCC_ExeOutput=.\\Win32\\Debug\n",
				"DCC_UnitSearchPath=C:\\Studio\\lib;$(DCC_UnitSearchPath)\n",
				"DCC_Define=DEBUG;$(DCC_Define)\n",
				"DCC_RemoteDebug=\n",
			},
		},
		{
			name:  "named",
			props: Props{Output: Output{Format: "text"}, Names: []string{"dcc_define", "DCC_ExeOutput"}},
			want:  "DCC_Define=DEBUG;$(DCC_Define)\nDCC_ExeOutput=.\\Win32\\Debug\n",
		},
		{
			name:  "raw",
			props: Props{Output: Output{Format: "text"}, Raw: true, Names: []string{"DCC_ExeOutput"}},
			want:  "DCC_ExeOutput=.\\$(Platform)\\$(Config)\n",
		},
		{
			name:     "release win64",
			props:    Props{Output: Output{Format: "text"}, Names: []string{"DCC_Namespace", "DCC_Define"}},
			config:   "Release",
			platform: "Win64",
			want:     "DCC_Namespace=Winapi;System.Win;System;Xml;Data;$(DCC_Namespace)\nDCC_Define=RELEASE;$(DCC_Define)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGlobals(path)
			g.Config, g.Platform = tt.config, tt.platform

			got, err := capture(t, func(ctx context.Context) error {
				return tt.props.Run(ctx, g)
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if tt.want != "" && got != tt.want {
				t.Errorf("Run() output = %q, want %q", got, tt.want)
			}

			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Run() output missing %q:\n%s", s, got)
				}
			}
		})
	}
}

func TestProps_RunJSON(t *testing.T) {
	p := Props{Output: Output{Format: "json", Indent: 2}}

	got, err := capture(t, func(ctx context.Context) error {
		return p.Run(ctx, testGlobals(fixtureProject(t)))
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var view propsView
	if err := json.Unmarshal([]byte(got), &view); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, got)
	}

	if view.Config != "Debug" || view.Platform != "Win32" {
		t.Errorf("selection = %s|%s", view.Config, view.Platform)
	}

	if v := view.Properties["DCC_DcuOutput"]; v != `.\Win32\Debug\dcu` {
		t.Errorf("DCC_DcuOutput = %q", v)
	}
}

func TestProps_RunNotFound(t *testing.T) {
	p := Props{Output: Output{Format: "text"}, Names: []string{"DCC_Defin"}}

	_, err := capture(t, func(ctx context.Context) error {
		return p.Run(ctx, testGlobals(fixtureProject(t)))
	})
	if !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("Run() error = %v, want %v", err, ErrPropertyNotFound)
	}
}

func TestGet_Run(t *testing.T) {
	path := fixtureProject(t)

	tests := []struct {
		name       string
		get        Get
		noFallback bool
		want       string
		wantErr    error
	}{
		{"expanded", Get{Name: "DCC_ExeOutput"}, false, ".\\Win32\\Debug\n", nil},
		{"case-insensitive", Get{Name: "dcc_exeoutput"}, false, ".\\Win32\\Debug\n", nil},
		{"raw", Get{Name: "DCC_DcuOutput", Raw: true}, false, ".\\$(Platform)\\$(Config)\\dcu\n", nil},
		{"split", Get{Name: "DCC_Namespace", Split: true}, false, "System\nXml\nData\n$(DCC_Namespace)\n", nil},
		{"environment", Get{Name: "BDS"}, false, "C:\\Studio\n", nil},
		{"no fallback", Get{Name: "BDS"}, true, "", ErrPropertyNotFound},
		{"missing", Get{Name: "Nope"}, false, "", ErrPropertyNotFound},
		{"missing raw", Get{Name: "Nope", Raw: true}, false, "", ErrPropertyNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGlobals(path)
			g.EnvFallback = !tt.noFallback

			got, err := capture(t, func(ctx context.Context) error {
				return tt.get.Run(ctx, g)
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}

			if got != tt.want {
				t.Errorf("Run() output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	names := []string{"DCC_Define", "DCC_ExeOutput", "DCC_DcuOutput", "Base"}

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"near miss", "dcc_defin", []string{"DCC_Define"}},
		{"no match", "zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := suggest(tt.in, names); !slices.Equal(got, tt.want) {
				t.Errorf("suggest(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if got := suggest("o", names); len(got) > maxSuggestions {
		t.Errorf("suggest() returned %d names, limit %d", len(got), maxSuggestions)
	}
}

func TestSet_Run(t *testing.T) {
	tests := []struct {
		name     string
		set      Set
		old, new string
	}{
		{
			name: "effective definition",
			set:  Set{Group: -1, Name: "DCC_ExeOutput", Value: `.\bin`},
			old:  `<DCC_ExeOutput>.\$(Platform)\$(Config)</DCC_ExeOutput>`,
			new:  `<DCC_ExeOutput>.\bin</DCC_ExeOutput>`,
		},
		{
			name: "explicit group",
			set:  Set{Group: 8, Name: "DCC_Define", Value: "RELEASE;NDEBUG"},
			old:  `<DCC_Define>RELEASE;$(DCC_Define)</DCC_Define>`,
			new:  `<DCC_Define>RELEASE;NDEBUG</DCC_Define>`,
		},
		{
			name: "self-closing",
			set:  Set{Group: -1, Name: "DCC_RemoteDebug", Value: "true"},
			old:  `<DCC_RemoteDebug/>`,
			new:  `<DCC_RemoteDebug>true</DCC_RemoteDebug>`,
		},
		{
			name: "escaped",
			set:  Set{Group: -1, Name: "DCC_Define", Value: "A<B&C"},
			old:  `<DCC_Define>DEBUG;$(DCC_Define)</DCC_Define>`,
			new:  `<DCC_Define>A&lt;B&amp;C</DCC_Define>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := fixtureProject(t)

			orig, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}

			if _, err := capture(t, func(ctx context.Context) error {
				return tt.set.Run(ctx, testGlobals(path))
			}); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}

			want := bytes.Replace(orig, []byte(tt.old), []byte(tt.new), 1)
			if !bytes.Equal(got, want) {
				t.Errorf("project after set:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

func TestSet_RunDryRun(t *testing.T) {
	path := fixtureProject(t)

	orig, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	s := Set{Group: -1, DryRun: true, Name: "DCC_ExeOutput", Value: `.\bin`}

	got, err := capture(t, func(ctx context.Context) error {
		return s.Run(ctx, testGlobals(path))
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := bytes.Replace(orig,
		[]byte(`<DCC_ExeOutput>.\$(Platform)\$(Config)</DCC_ExeOutput>`),
		[]byte(`<DCC_ExeOutput>.\bin</DCC_ExeOutput>`), 1)
	if got != string(want) {
		t.Errorf("dry run output differs from edited project")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(after, orig) {
		t.Error("dry run modified the project file")
	}
}

func TestSet_RunErrors(t *testing.T) {
	tests := []struct {
		name    string
		set     Set
		wantErr error
	}{
		{"missing property", Set{Group: -1, Name: "Nope", Value: "x"}, ErrPropertyNotFound},
		{"missing in group", Set{Group: 0, Name: "DCC_Define", Value: "x"}, dproj.ErrPropertyNotFound},
		{"missing group", Set{Group: 42, Name: "DCC_Define", Value: "x"}, dproj.ErrGroupNotFound},
		{"invalid value", Set{Group: -1, Name: "DCC_Define", Value: "a\x00b"}, dproj.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := fixtureProject(t)

			orig, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}

			_, err = capture(t, func(ctx context.Context) error {
				return tt.set.Run(ctx, testGlobals(path))
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}

			if after, _ := os.ReadFile(path); !bytes.Equal(after, orig) {
				t.Error("failed set modified the project file")
			}
		})
	}
}

func TestWriteProject(t *testing.T) {
	path := fixtureProject(t)

	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	doc, err := dproj.Parse(context.Background(), data)
	if err != nil {
		t.Fatal(err)
	}

	fingerprint := doc.Fingerprint()

	if err := doc.SetProperty(5, "DCC_ExeOutput", "out"); err != nil {
		t.Fatal(err)
	}

	t.Run("changed on disk", func(t *testing.T) {
		changed := append(bytes.Clone(data), "\r\n"...)
		if err := os.WriteFile(path, changed, 0o600); err != nil {
			t.Fatal(err)
		}

		if err := writeProject(path, doc, fingerprint); !errors.Is(err, ErrProjectChanged) {
			t.Errorf("writeProject() error = %v, want %v", err, ErrProjectChanged)
		}

		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("replaced", func(t *testing.T) {
		if err := writeProject(path, doc, fingerprint); err != nil {
			t.Fatalf("writeProject() error = %v", err)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(got, doc.Bytes()) {
			t.Error("file does not hold the edited document")
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}

		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("mode = %v, want %v", perm, os.FileMode(0o600))
		}

		entries, err := os.ReadDir(filepath.Dir(path))
		if err != nil {
			t.Fatal(err)
		}

		if len(entries) != 1 {
			t.Errorf("unexpected files: %v", entries)
		}
	})
}

func TestEnv_Run(t *testing.T) {
	tests := []struct {
		name   string
		env    Env
		define map[string]string
		want   string
	}{
		{
			name:   "selected keys",
			env:    Env{Output: Output{Format: "text"}, Keys: []string{"langdir", "bds", "platform", "unset"}},
			define: map[string]string{"LANGDIR": "DE"},
			want:   "LANGDIR=DE\nBDS=C:\\Program Files (x86)\\Embarcadero\\Studio\\23.0\nPLATFORM=\n",
		},
		{
			name: "expanded",
			env:  Env{Output: Output{Format: "text"}, Keys: []string{"path"}},
			want: "PATH=C:\\Windows\\Microsoft.NET\\Framework\\v4.0.30319;;" +
				"C:\\Program Files (x86)\\Embarcadero\\Studio\\23.0\\bin;" +
				"C:\\Program Files (x86)\\Embarcadero\\Studio\\23.0\\bin64;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Globals{CleanEnv: true, Rsvars: []string{rsvarsFixture}, Define: tt.define}

			got, err := capture(t, func(ctx context.Context) error {
				return tt.env.Run(ctx, g)
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if got != tt.want {
				t.Errorf("Run() output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnv_RunJSON(t *testing.T) {
	e := Env{Output: Output{Format: "json", Indent: 2}}
	g := &Globals{CleanEnv: true, Define: map[string]string{"a": "1", "b": "2"}}

	got, err := capture(t, func(ctx context.Context) error {
		return e.Run(ctx, g)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var m map[string]string
	if err := json.Unmarshal([]byte(got), &m); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	if len(m) != 2 || m["A"] != "1" || m["B"] != "2" {
		t.Errorf("Run() = %v", m)
	}
}

func TestConfigs_Run(t *testing.T) {
	path := fixtureProject(t)

	t.Run("text", func(t *testing.T) {
		c := Configs{Output: Output{Format: "text"}}

		got, err := capture(t, func(ctx context.Context) error {
			return c.Run(ctx, testGlobals(path))
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		for _, s := range []string{
			"default: Debug|Win32\n",
			"main source: Project1.dpr\n",
			"  Base (Base)\n",
			"  Debug (Cfg_1) < Base\n",
			"  Release (Cfg_2) < Base\n",
			" *Win64\n",
			"  Linux64\n",
			"  $(BDS)\\Bin\\CodeGear.Delphi.Targets\n",
		} {
			if !strings.Contains(got, s) {
				t.Errorf("output missing %q:\n%s", s, got)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		c := Configs{Output: Output{Format: "json", Indent: 2}}

		got, err := capture(t, func(ctx context.Context) error {
			return c.Run(ctx, testGlobals(path))
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		var view configsView
		if err := json.Unmarshal([]byte(got), &view); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}

		if len(view.Configurations) != 3 || len(view.Platforms) != 3 || len(view.Imports) != 2 {
			t.Errorf("Run() = %+v", view)
		}

		if view.Platforms[2] != (platformView{Name: "Linux64"}) {
			t.Errorf("Platforms[2] = %+v", view.Platforms[2])
		}
	})
}

func TestQuery_Run(t *testing.T) {
	path := fixtureProject(t)

	tests := []struct {
		name    string
		query   Query
		want    string
		wantErr error
	}{
		{"string", Query{Output: Output{Format: "text"}, Expr: "props.DCC_ExeOutput"}, ".\\Win32\\Debug\n", nil},
		{"list", Query{Output: Output{Format: "text"}, Expr: "split(props.DCC_Define)"}, "DEBUG\n$(DCC_Define)\n", nil},
		{"bool", Query{Output: Output{Format: "text"}, Expr: `config == "Debug"`}, "true\n", nil},
		{"json", Query{Output: Output{Format: "json"}, Expr: "split(props.DCC_Define)"}, "[\"DEBUG\",\"$(DCC_Define)\"]\n", nil},
		{"compile error", Query{Output: Output{Format: "text"}, Expr: "props."}, "", dproj.ErrQueryCompile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := capture(t, func(ctx context.Context) error {
				return tt.query.Run(ctx, testGlobals(path))
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}

			if got != tt.want {
				t.Errorf("Run() output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPaths_Run(t *testing.T) {
	path := fixtureProject(t)

	tests := []struct {
		name    string
		paths   Paths
		want    string
		wantErr error
	}{
		{
			name:  "default property",
			paths: Paths{Output: Output{Format: "text"}, Name: "DCC_UnitSearchPath"},
			want:  "C:\\Studio\\lib\n",
		},
		{
			name:  "prepend",
			paths: Paths{Output: Output{Format: "text"}, Name: "DCC_UnitSearchPath", Prepend: []string{`C:\extra`, `C:\Studio\lib`}, Join: true},
			want:  "C:\\extra;C:\\Studio\\lib\n",
		},
		{
			name:  "joined",
			paths: Paths{Output: Output{Format: "text"}, Name: "DCC_Namespace", Join: true},
			want:  "System;Xml;Data\n",
		},
		{
			name:    "missing",
			paths:   Paths{Output: Output{Format: "text"}, Name: "DCC_IncludePath"},
			wantErr: ErrPropertyNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := capture(t, func(ctx context.Context) error {
				return tt.paths.Run(ctx, testGlobals(path))
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}

			if got != tt.want {
				t.Errorf("Run() output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDropReference(t *testing.T) {
	got := dropReference([]string{"a", "$(dcc_unitsearchpath)", "$(Other)", "$(DCC_UnitSearchPath"}, "DCC_UnitSearchPath")
	want := []string{"a", "$(Other)", "$(DCC_UnitSearchPath"}

	if !slices.Equal(got, want) {
		t.Errorf("dropReference() = %v, want %v", got, want)
	}
}

func TestVersion_Run(t *testing.T) {
	got, err := capture(t, Version{}.Run)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if want := pkg.Name + " " + pkg.Version() + "\n"; got != want {
		t.Errorf("Run() output = %q, want %q", got, want)
	}
}
