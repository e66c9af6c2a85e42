package dproj

import (
	"context"
	"errors"
	"testing"
)

func TestActiveGroup_Query(t *testing.T) {
	c := fixtureContext(t, nil)

	a, err := c.ActivePropertyGroupFor("Release", "Win64")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		query string
		want  any
	}{
		{"property map", `props.DCC_ExeOutput`, `.\Win64\Release`},
		{"prop function", `prop("dcc_define")`, "RELEASE;$(DCC_Define)"},
		{"undefined prop", `prop("Nope")`, ""},
		{"selection", `config + "|" + platform`, "Release|Win64"},
		{"environment", `env("bds")`, `C:\Studio`},
		{"expand", `expand("$(BDS)\\bin")`, `C:\Studio\bin`},
		{"split", `len(split(props.DCC_Namespace))`, 6},
		{"comparison", `props.BT_BuildType == "Debug" && platform startsWith "Win"`, true},
		{"membership", `"Winapi" in split(props.DCC_Namespace)`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Query(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Query(%q) error = %v", tt.query, err)
			}

			if got != tt.want {
				t.Errorf("Query(%q) = %#v, want %#v", tt.query, got, tt.want)
			}
		})
	}
}

func TestActiveGroup_QueryPrefix(t *testing.T) {
	c := fixtureContext(t, nil)

	a, err := c.ActivePropertyGroupFor("Debug", "Win32")
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.Query(context.Background(), `mung.prefix(props.DCC_Namespace, "Vcl")`)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if _, ok := got.(string); !ok {
		t.Errorf("Query() = %T, want string", got)
	}
}

func TestActiveGroup_QueryErrors(t *testing.T) {
	c := fixtureContext(t, nil)

	a, err := c.ActivePropertyGroupFor("Release", "Win64")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		query string
		want  error
	}{
		{"syntax", `props.DCC_Define +`, ErrQueryCompile},
		{"unknown identifier", `nope(1)`, ErrQueryCompile},
		{"runtime", `split(prop("DCC_Define"))[10]`, ErrQueryEvaluate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Query(context.Background(), tt.query); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
