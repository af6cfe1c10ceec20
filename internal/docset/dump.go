package docset

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sha1n/relic-corpus/internal/corpus"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

// DumpEntry is one symbol in a corpus dump.
type DumpEntry struct {
	QualifiedName string       `yaml:"qualified_name"`
	Kind          symbols.Kind `yaml:"kind"`
	Info          symbols.Info `yaml:"info"`
}

// Dump writes every symbol of c as a YAML sequence in index order.
func Dump(w io.Writer, c *corpus.Corpus) error {
	entries := make([]DumpEntry, 0, c.Len())
	for _, id := range c.Index() {
		info, ok := c.Get(id)
		if !ok {
			continue
		}
		entries = append(entries, DumpEntry{
			QualifiedName: c.QualifiedName(id),
			Kind:          info.Kind(),
			Info:          info,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}
	return enc.Close()
}
