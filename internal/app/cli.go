package app

import (
	"time"

	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
	RegisterCorpusFlags(flags)
}

// RegisterCorpusFlags registers the flags that control how the corpus is built
func RegisterCorpusFlags(flags *pflag.FlagSet) {
	flags.StringP("input-dir", "i", "", "Directory scanned for fragment archives (*.frag.zst)")
	flags.StringP("base-dir", "b", "", "Directory for the manifest, build lock, spill store and index")
	flags.IntP("workers", "w", 0, "Reduce workers (0 = one per CPU)")
	flags.Bool("spill-to-disk", false, "Buffer fragments in an on-disk store instead of memory")
	flags.Int("max-results", 0, "Maximum search results per query")
	flags.Duration("lock-timeout", time.Duration(0), "How long to wait for another build holding the lock")
	flags.Bool("persist-index", false, "Keep the search index on disk under the base directory")
}
