package operation

import "os"

// BundleCollector curates which local files qualify for a diagnostic
// bundle. Candidates are fixed at construction; existence is re-checked
// on every call since files may appear or disappear while the agent
// runs.
type BundleCollector struct {
	candidates []string
}

func NewBundleCollector(candidates []string) *BundleCollector {
	return &BundleCollector{candidates: append([]string(nil), candidates...)}
}

// Collect returns the candidates that currently exist as regular files,
// order preserved. Directories and missing paths are silently excluded.
func (c *BundleCollector) Collect() []string {
	out := make([]string, 0, len(c.candidates))
	for _, path := range c.candidates {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, path)
	}
	return out
}
