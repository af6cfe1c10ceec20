package docset

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/relic-corpus/internal/archive"
	"github.com/sha1n/relic-corpus/internal/bitstream"
	"github.com/sha1n/relic-corpus/internal/codec"
	"github.com/sha1n/relic-corpus/internal/config"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

var (
	geoID      = symbols.SymbolIDFromUSR("c:@N@geo")
	pointID    = symbols.SymbolIDFromUSR("c:@N@geo@S@Point")
	pointXID   = symbols.SymbolIDFromUSR("c:@N@geo@S@Point@FI@x")
	distanceID = symbols.SymbolIDFromUSR("c:@N@geo@F@distance#&1$@N@geo@S@Point#S0_#")
	colorID    = symbols.SymbolIDFromUSR("c:@N@geo@E@Color")

	globalRef = symbols.Reference{Kind: symbols.KindNamespace}
	geoRef    = symbols.Reference{ID: geoID, Name: "geo", Kind: symbols.KindNamespace}
)

func paragraph(kind symbols.BlockKind, text string) symbols.Block {
	return symbols.Block{Kind: kind, Children: []symbols.Inline{{Text: text}}}
}

// geoHeader is the namespace geo with a Point record, a Color enum and a
// distance function.
func geoHeader() []symbols.Info {
	global := &symbols.NamespaceInfo{}
	global.Children.Namespaces = []symbols.MemberRef{{ID: geoID}}

	geo := &symbols.NamespaceInfo{InfoBase: symbols.InfoBase{ID: geoID, Name: "geo", Parents: []symbols.Reference{globalRef}}}
	geo.Children.Records = []symbols.MemberRef{{ID: pointID}}
	geo.Children.Functions = []symbols.MemberRef{{ID: distanceID}}
	geo.Children.Enums = []symbols.MemberRef{{ID: colorID}}

	point := &symbols.RecordInfo{SymbolInfo: symbols.SymbolInfo{
		InfoBase: symbols.InfoBase{
			ID:      pointID,
			Name:    "Point",
			Parents: []symbols.Reference{geoRef, globalRef},
			Doc: &symbols.DocComment{Blocks: []symbols.Block{
				paragraph(symbols.BlockBrief, "A location in the plane."),
				paragraph(symbols.BlockParagraph, "Stores cartesian coordinates."),
			}},
		},
		DefLoc: &symbols.Location{Line: 7, File: "geo/point.hpp", Documented: true},
	}}
	point.Members.Fields = []symbols.MemberRef{{ID: pointXID, Access: symbols.AccessPublic}}

	x := &symbols.FieldInfo{
		SymbolInfo: symbols.SymbolInfo{InfoBase: symbols.InfoBase{
			ID:      pointXID,
			Name:    "x",
			Access:  symbols.AccessPublic,
			Parents: []symbols.Reference{{ID: pointID, Name: "Point", Kind: symbols.KindRecord}, geoRef, globalRef},
		}},
		Type: symbols.TypeInfo{Name: "double"},
	}

	distance := &symbols.FunctionInfo{
		SymbolInfo: symbols.SymbolInfo{
			InfoBase: symbols.InfoBase{
				ID:      distanceID,
				Name:    "distance",
				Parents: []symbols.Reference{geoRef, globalRef},
				Doc: &symbols.DocComment{Blocks: []symbols.Block{
					paragraph(symbols.BlockBrief, "Euclidean distance between two points."),
					paragraph(symbols.BlockReturns, "The length of the segment."),
				}},
			},
			Loc: []symbols.Location{{Line: 20, File: "geo/point.hpp", Documented: true}},
		},
		Flags:      symbols.FunctionNoexcept,
		ReturnType: symbols.TypeInfo{Name: "double"},
		Params: []symbols.Param{
			{Type: symbols.TypeInfo{ID: pointID, Name: "const Point&"}, Name: "a"},
			{Type: symbols.TypeInfo{ID: pointID, Name: "const Point&"}, Name: "b"},
		},
	}

	color := &symbols.EnumInfo{
		SymbolInfo: symbols.SymbolInfo{InfoBase: symbols.InfoBase{
			ID:      colorID,
			Name:    "Color",
			Parents: []symbols.Reference{geoRef, globalRef},
		}},
		Scoped: true,
		Values: []symbols.EnumValue{{Name: "Red", Value: "0"}, {Name: "Green", Value: "1"}},
	}

	return []symbols.Info{global, geo, point, x, distance, color}
}

func mustEncode(t *testing.T, info symbols.Info) []byte {
	t.Helper()
	blob, err := codec.Encode(info)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return blob
}

// writeArchive encodes infos into a fragment archive under dir.
func writeArchive(t *testing.T, dir, name string, infos ...symbols.Info) string {
	t.Helper()
	frags := make([]archive.Fragment, 0, len(infos))
	for _, info := range infos {
		frags = append(frags, archive.Fragment{ID: info.Base().ID, Blob: mustEncode(t, info)})
	}
	path := filepath.Join(dir, name+archive.Extension)
	if err := archive.WriteFile(path, frags); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

// staleBlob is a well-formed bitstream carrying a future format version.
func staleBlob(t *testing.T) []byte {
	t.Helper()
	blob, err := bitstream.NewWriter(bitstream.NewSchema(), codec.Signature, codec.Version+1).Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	return blob
}

func testSettings(t *testing.T) *config.CorpusSettings {
	t.Helper()
	return &config.CorpusSettings{
		InputDir:    t.TempDir(),
		BaseDir:     t.TempDir(),
		MaxResults:  20,
		LockTimeout: 2 * time.Second,
	}
}

func newTestService(t *testing.T, settings *config.CorpusSettings) *Service {
	t.Helper()
	svc, err := NewService(settings)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return svc
}

// setupReadyService builds an initialized service over the geo header.
func setupReadyService(t *testing.T) *Service {
	t.Helper()
	settings := testSettings(t)
	writeArchive(t, settings.InputDir, "geo", geoHeader()...)

	svc := newTestService(t, settings)
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return svc
}

func resultText(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
