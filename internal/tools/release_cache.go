package tools

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const releaseCacheTTL = 1 * time.Hour

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

type githubRelease struct {
	TagName    string        `json:"tag_name"`
	TarballURL string        `json:"tarball_url"`
	Assets     []githubAsset `json:"assets"`
}

type releaseCacheEntry struct {
	Repo      string        `json:"repo"`
	Release   githubRelease `json:"release"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// releaseCache keeps "latest release" answers on disk so repeated runs
// within the TTL do not hit the GitHub API rate limit.
type releaseCache struct {
	path    string
	ttl     time.Duration
	now     func() time.Time
	loaded  bool
	Entries map[string]releaseCacheEntry `json:"entries"`
}

func newReleaseCache(path string) *releaseCache {
	return &releaseCache{path: path, ttl: releaseCacheTTL, now: time.Now}
}

func (rc *releaseCache) load() {
	if rc.loaded {
		return
	}
	rc.loaded = true
	rc.Entries = map[string]releaseCacheEntry{}
	if rc.path == "" {
		return
	}
	data, err := os.ReadFile(rc.path)
	if err != nil {
		return
	}
	var stored struct {
		Entries map[string]releaseCacheEntry `json:"entries"`
	}
	if err := json.Unmarshal(data, &stored); err != nil || stored.Entries == nil {
		return
	}
	rc.Entries = stored.Entries
}

func (rc *releaseCache) save() {
	if rc.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(rc.path), 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(rc.path, data, 0o644)
}

// get returns the cached release for repo if present and not expired.
func (rc *releaseCache) get(repo string) (githubRelease, bool) {
	rc.load()
	entry, ok := rc.Entries[repo]
	if !ok {
		return githubRelease{}, false
	}
	if rc.now().Sub(entry.FetchedAt) > rc.ttl {
		return githubRelease{}, false
	}
	return entry.Release, true
}

// put stores release for repo and persists the cache, ignoring write errors.
func (rc *releaseCache) put(repo string, release githubRelease) {
	rc.load()
	rc.Entries[repo] = releaseCacheEntry{
		Repo:      repo,
		Release:   release,
		FetchedAt: rc.now(),
	}
	rc.save()
}
