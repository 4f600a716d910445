package checksum

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// Provider is one digest capability. Providers are probed in preference
// order; the first available one determines the sidecar extension.
type Provider struct {
	Name       string
	SidecarExt string
	newHash    func() hash.Hash
}

// Sum computes the provider's digest over the file at path.
func (p Provider) Sum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for digest: %w", err)
	}
	defer file.Close()

	h := p.newHash()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SidecarExts lists every recognized sidecar extension, modern first.
// Verification probes them in this order.
var SidecarExts = []string{ExtSHA256, ExtMD5}

const (
	ExtSHA256 = ".sha256"
	ExtMD5    = ".md5"
)

// registry holds the known providers. "sha256" and "sha256-go" produce
// the same digest through separate constructions, mirroring the two
// interchangeable modern tools; "md5" is the legacy last resort.
var registry = map[string]Provider{
	"sha256":    {Name: "sha256", SidecarExt: ExtSHA256, newHash: sha256.New},
	"sha256-go": {Name: "sha256-go", SidecarExt: ExtSHA256, newHash: sha256.New},
	"md5":       {Name: "md5", SidecarExt: ExtMD5, newHash: md5.New},
}

// DefaultOrder is the built-in probe order.
var DefaultOrder = []string{"sha256", "sha256-go", "md5"}

// Select returns the first known provider from the preference list, or
// ok=false when none is available. An empty list means DefaultOrder.
func Select(preferred []string) (Provider, bool) {
	if len(preferred) == 0 {
		preferred = DefaultOrder
	}
	for _, name := range preferred {
		if provider, ok := registry[name]; ok {
			return provider, true
		}
	}
	return Provider{}, false
}

// ByExtension returns the provider that writes the given sidecar
// extension, restricted to the preference list.
func ByExtension(ext string, preferred []string) (Provider, bool) {
	if len(preferred) == 0 {
		preferred = DefaultOrder
	}
	for _, name := range preferred {
		provider, ok := registry[name]
		if ok && provider.SidecarExt == ext {
			return provider, true
		}
	}
	return Provider{}, false
}
