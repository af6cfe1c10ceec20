package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sha1n/relic-corpus/internal/archive"
	"github.com/sha1n/relic-corpus/internal/codec"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

var (
	utilID  = symbols.SymbolIDFromUSR("c:@N@util")
	clampID = symbols.SymbolIDFromUSR("c:@N@util@F@clamp#I#I#I#")
)

// writeUtilArchive writes namespace util with one function into dir.
func writeUtilArchive(t *testing.T, dir string, extra ...archive.Fragment) {
	t.Helper()
	global := &symbols.NamespaceInfo{}
	global.Children.Namespaces = []symbols.MemberRef{{ID: utilID}}

	util := &symbols.NamespaceInfo{InfoBase: symbols.InfoBase{
		ID:      utilID,
		Name:    "util",
		Parents: []symbols.Reference{{Kind: symbols.KindNamespace}},
	}}
	util.Children.Functions = []symbols.MemberRef{{ID: clampID}}

	clamp := &symbols.FunctionInfo{SymbolInfo: symbols.SymbolInfo{InfoBase: symbols.InfoBase{
		ID:      clampID,
		Name:    "clamp",
		Parents: []symbols.Reference{{ID: utilID, Name: "util", Kind: symbols.KindNamespace}, {Kind: symbols.KindNamespace}},
	}}}

	var frags []archive.Fragment
	for _, info := range []symbols.Info{global, util, clamp} {
		blob, err := codec.Encode(info)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		frags = append(frags, archive.Fragment{ID: info.Base().ID, Blob: blob})
	}
	frags = append(frags, extra...)

	if err := archive.WriteFile(filepath.Join(dir, "util"+archive.Extension), frags); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func corpusFlags(t *testing.T, inputDir string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterCorpusFlags(flags)
	if err := flags.Parse([]string{"--input-dir", inputDir, "--base-dir", t.TempDir(), "--lock-timeout", "1s"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}
	return flags
}

func TestRunBuild(t *testing.T) {
	input := t.TempDir()
	writeUtilArchive(t, input, archive.Fragment{ID: symbols.SymbolIDFromUSR("c:@F@junk"), Blob: []byte("junk")})

	var out bytes.Buffer
	if err := RunBuild(context.Background(), corpusFlags(t, input), &out); err != nil {
		t.Fatalf("RunBuild failed: %v", err)
	}

	var report struct {
		BuildID   string         `yaml:"build_id"`
		Archives  int            `yaml:"archives"`
		Rejected  int            `yaml:"rejected_fragments"`
		Symbols   int            `yaml:"symbols"`
		Fragments int            `yaml:"fragments"`
		ByKind    map[string]int `yaml:"by_kind"`
	}
	if err := yaml.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("Failed to parse report: %v\n%s", err, out.String())
	}

	if report.BuildID == "" {
		t.Error("Expected a build ID")
	}
	if report.Archives != 1 || report.Rejected != 1 {
		t.Errorf("Archives/Rejected = %d/%d, want 1/1", report.Archives, report.Rejected)
	}
	if report.Symbols != 3 || report.Fragments != 3 {
		t.Errorf("Symbols/Fragments = %d/%d, want 3/3", report.Symbols, report.Fragments)
	}
	if report.ByKind["namespace"] != 2 || report.ByKind["function"] != 1 {
		t.Errorf("ByKind = %v", report.ByKind)
	}
}

func TestRunDump(t *testing.T) {
	input := t.TempDir()
	writeUtilArchive(t, input)

	var out bytes.Buffer
	if err := RunDump(context.Background(), corpusFlags(t, input), &out); err != nil {
		t.Fatalf("RunDump failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"qualified_name: util", "qualified_name: util::clamp", "kind: function"} {
		if !strings.Contains(text, want) {
			t.Errorf("dump missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "qualified_name: util\n") > strings.Index(text, "qualified_name: util::clamp") {
		t.Error("Expected index order in the dump")
	}
}

func TestRunBuild_Failures(t *testing.T) {
	mismatch := &symbols.EnumInfo{SymbolInfo: symbols.SymbolInfo{InfoBase: symbols.InfoBase{ID: clampID}}}
	blob, err := codec.Encode(mismatch)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	tests := []struct {
		name    string
		setup   func(t *testing.T) *pflag.FlagSet
		wantErr string
	}{
		{
			name: "merge failure",
			setup: func(t *testing.T) *pflag.FlagSet {
				input := t.TempDir()
				writeUtilArchive(t, input, archive.Fragment{ID: clampID, Blob: blob})
				return corpusFlags(t, input)
			},
			wantErr: "corpus build failed",
		},
		{
			name: "missing input dir",
			setup: func(t *testing.T) *pflag.FlagSet {
				return corpusFlags(t, filepath.Join(t.TempDir(), "missing"))
			},
			wantErr: "corpus build failed",
		},
		{
			name: "invalid settings",
			setup: func(t *testing.T) *pflag.FlagSet {
				flags := corpusFlags(t, t.TempDir())
				_ = flags.Set("workers", "-1")
				return flags
			},
			wantErr: "invalid configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := RunBuild(context.Background(), tt.setup(t), &out)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
			if out.Len() != 0 {
				t.Errorf("Expected no report on failure, got:\n%s", out.String())
			}
		})
	}
}
