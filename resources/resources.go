// Package resources resolves logo names to resource identifiers, either from
// a YAML manifest or from an Android-style res/ tree where each bucket is a
// directory (optionally density-qualified, e.g. drawable-xxhdpi).
package resources

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"oneclick_bridge/contract"
)

const DefaultCacheSize = 128

var validName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Catalog is a static bucket -> name -> id table.
type Catalog struct {
	entries map[string]map[string]contract.ResourceID
}

// Manifest is the YAML document form of a Catalog:
//
//	drawable:
//	  logo: res/drawable/logo.png
//	mipmap:
//	  ic_launcher: res/mipmap/ic_launcher.png
type Manifest map[string]map[string]string

func NewCatalog(m Manifest) *Catalog {
	entries := make(map[string]map[string]contract.ResourceID, len(m))
	for bucket, names := range m {
		table := make(map[string]contract.ResourceID, len(names))
		for name, id := range names {
			table[name] = contract.ResourceID(id)
		}
		entries[bucket] = table
	}
	return &Catalog{entries: entries}
}

// ParseManifest reads a YAML manifest.
func ParseManifest(r io.Reader) (*Catalog, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse resource manifest: %w", err)
	}
	return NewCatalog(m), nil
}

func (c *Catalog) Lookup(name, bucket string) (contract.ResourceID, bool) {
	id, ok := c.entries[bucket][name]
	return id, ok
}

func (c *Catalog) Buckets() []string {
	out := make([]string, 0, len(c.entries))
	for bucket := range c.entries {
		out = append(out, bucket)
	}
	slices.Sort(out)
	return out
}

// Directory looks resources up on disk under Root on every call.
type Directory struct {
	Root string
}

// Lookup returns the first file, in lexical order, named name.<ext> inside
// Root/<bucket> or a qualified Root/<bucket>-<qualifier> directory. The id is
// the slash-separated path relative to Root.
func (d Directory) Lookup(name, bucket string) (contract.ResourceID, bool) {
	if !validName.MatchString(name) || !validName.MatchString(bucket) {
		return "", false
	}
	matches, err := filepath.Glob(filepath.Join(d.Root, bucket+"*", name+".*"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	slices.Sort(matches)
	for _, match := range matches {
		dir := filepath.Base(filepath.Dir(match))
		if dir != bucket && !strings.HasPrefix(dir, bucket+"-") {
			continue
		}
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(d.Root, match)
		if err != nil {
			continue
		}
		return contract.ResourceID(filepath.ToSlash(rel)), true
	}
	return "", false
}

// Load opens path as a res/ directory or a YAML manifest file. Directory
// lookups are cached.
func Load(path string, cacheSize int) (contract.ResourceLookup, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open resources: %w", err)
	}
	if info.IsDir() {
		return NewCached(Directory{Root: path}, cacheSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open resources: %w", err)
	}
	defer f.Close()
	return ParseManifest(f)
}
