package jobhistory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/eslutsky/microshift-misc/pkg/api"
)

// DefaultCacheMaxAge bounds how stale a served history may be.
const DefaultCacheMaxAge = time.Hour

// Job names may contain characters that are awkward in filenames; everything
// outside this set maps to an underscore. The mapping is informational only
// and never reversed, so collisions between oddly-named jobs are tolerated.
var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Cache persists one JSON file per job under a root directory injected at
// construction time. Entry age is judged by the cachedAt field stored inside
// the entry rather than file mtime, so entries stay valid evidence of when
// the dashboard was actually consulted even after a copy or backup.
type Cache struct {
	fs     afero.Fs
	dir    string
	maxAge time.Duration
	now    func() time.Time
	log    *logrus.Entry
}

func NewCache(fs afero.Fs, dir string, maxAge time.Duration) *Cache {
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}
	return &Cache{
		fs:     fs,
		dir:    dir,
		maxAge: maxAge,
		now:    time.Now,
		log:    logrus.WithField("component", "job-cache"),
	}
}

func (c *Cache) fileFor(jobName string) string {
	return filepath.Join(c.dir, unsafeKeyChars.ReplaceAllString(jobName, "_")+".json")
}

// Get returns the cached build history for a job, or nil when no entry
// exists, the entry has aged out, or it cannot be decoded. A corrupt entry is
// a logged cache miss, never an error; the caller will refetch and overwrite
// it.
func (c *Cache) Get(jobName string) []api.Build {
	raw, err := afero.ReadFile(c.fs, c.fileFor(jobName))
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.WithError(err).WithField("job", jobName).Warn("Could not read cache entry.")
		}
		return nil
	}
	var entry api.CachedHistory
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.log.WithError(err).WithField("job", jobName).Warn("Discarding corrupt cache entry.")
		return nil
	}
	if entry.CachedAt.IsZero() || c.now().Sub(entry.CachedAt) > c.maxAge {
		return nil
	}
	return entry.Builds
}

// Put overwrites the job's entry with a fresh snapshot. Entries are replaced
// whole, never merged.
func (c *Cache) Put(jobName string, builds []api.Build) error {
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("could not create cache directory %s: %w", c.dir, err)
	}
	entry := api.CachedHistory{JobName: jobName, CachedAt: c.now(), Builds: builds}
	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode cache entry for %s: %w", jobName, err)
	}
	if err := afero.WriteFile(c.fs, c.fileFor(jobName), raw, 0o644); err != nil {
		return fmt.Errorf("could not write cache entry for %s: %w", jobName, err)
	}
	return nil
}

// Invalidate removes the job's entry if one exists.
func (c *Cache) Invalidate(jobName string) error {
	if err := c.fs.Remove(c.fileFor(jobName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove cache entry for %s: %w", jobName, err)
	}
	return nil
}

// ClearAll deletes every cache entry and returns how many were removed.
func (c *Cache) ClearAll() int {
	infos, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.WithError(err).Warn("Could not list cache directory.")
		}
		return 0
	}
	removed := 0
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			continue
		}
		if err := c.fs.Remove(filepath.Join(c.dir, info.Name())); err != nil {
			c.log.WithError(err).WithField("entry", info.Name()).Warn("Could not remove cache entry.")
			continue
		}
		removed++
	}
	return removed
}
