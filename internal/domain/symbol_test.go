package domain

import (
	"encoding/json"
	"testing"
)

func TestSymbolDocument_JSONRoundTrip(t *testing.T) {
	doc := SymbolDocument{
		ID:            "0a1b2c3d4e5f60718293a4b5c6d7e8f901234567",
		Name:          "vector",
		QualifiedName: "std::vector",
		Kind:          "record",
		Brief:         "A sequence container.",
		Doc:           "A sequence container. Elements are stored contiguously.",
		File:          "include/vector",
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Failed to marshal SymbolDocument: %v", err)
	}

	var decoded SymbolDocument
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal SymbolDocument: %v", err)
	}
	if decoded != doc {
		t.Errorf("Round trip mismatch: got %+v, want %+v", decoded, doc)
	}
}

func TestSymbolDocument_OmitsEmptyDocFields(t *testing.T) {
	data, err := json.Marshal(SymbolDocument{ID: "00", Kind: "namespace"})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal to map: %v", err)
	}
	for _, field := range []string{SymbolFieldBrief, SymbolFieldDoc, SymbolFieldFile} {
		if _, ok := raw[field]; ok {
			t.Errorf("Expected %q to be omitted, got %s", field, data)
		}
	}
}

func TestSymbolDocument_JSONFieldNames(t *testing.T) {
	doc := SymbolDocument{
		ID:            "id",
		Name:          "name",
		QualifiedName: "ns::name",
		Kind:          "function",
		Brief:         "brief",
		Doc:           "doc",
		File:          "file.hpp",
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal to map: %v", err)
	}

	expectedFields := map[string]string{
		SymbolFieldID:            "id",
		SymbolFieldName:          "name",
		SymbolFieldQualifiedName: "ns::name",
		SymbolFieldKind:          "function",
		SymbolFieldBrief:         "brief",
		SymbolFieldDoc:           "doc",
		SymbolFieldFile:          "file.hpp",
	}

	for field, expected := range expectedFields {
		if val, ok := raw[field]; !ok {
			t.Errorf("Missing field %q in JSON output", field)
		} else if val != expected {
			t.Errorf("Field %q = %v, want %v", field, val, expected)
		}
	}
}
