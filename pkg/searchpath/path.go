// Package searchpath models the ordered list of directories the engine
// consults to find project-local app packages. The list is owned by the
// engine; dorm only ever prepends a project root to it.
package searchpath

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// EnvVar seeds a new Path from the environment, like PATH.
const EnvVar = "DORM_PATH"

// Path is an ordered, concurrency-safe list of directories. Earlier entries
// take priority.
type Path struct {
	mu   sync.RWMutex
	dirs []string
}

// New returns a Path holding dirs in order.
func New(dirs ...string) *Path {
	p := &Path{}
	for _, d := range dirs {
		if d != "" {
			p.dirs = append(p.dirs, d)
		}
	}
	return p
}

// FromEnv returns a Path seeded from $DORM_PATH.
func FromEnv() *Path {
	return New(filepath.SplitList(os.Getenv(EnvVar))...)
}

// Dirs returns a copy of the entries.
func (p *Path) Dirs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.dirs))
	copy(out, p.dirs)
	return out
}

// Contains reports whether dir is an entry.
func (p *Path) Contains(dir string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.indexOf(dir) >= 0
}

// PrependIfAbsent inserts dir at index 0 unless it is already present.
func (p *Path) PrependIfAbsent(dir string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexOf(dir) >= 0 {
		return false
	}
	p.dirs = append([]string{dir}, p.dirs...)
	return true
}

// Resolve returns the first entry under which rel is a directory.
func (p *Path) Resolve(rel string) (string, bool) {
	for _, dir := range p.Dirs() {
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// String joins the entries with the OS list separator.
func (p *Path) String() string {
	return strings.Join(p.Dirs(), string(os.PathListSeparator))
}

func (p *Path) indexOf(dir string) int {
	for i, d := range p.dirs {
		if d == dir {
			return i
		}
	}
	return -1
}

// Register makes root the highest-priority entry of p if it is not there
// yet. It reports whether p changed. There is no way to unregister.
func Register(p *Path, root string) bool {
	return p.PrependIfAbsent(root)
}
