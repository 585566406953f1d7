package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/timeline"
	"lyrics-sync-go/track"
	"lyrics-sync-go/utils"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the local-file provider
	ProviderName = "local"

	// fuzzyThreshold is the minimum stem similarity for a non-exact match
	fuzzyThreshold = 0.6

	lrcExt = ".lrc"
)

// LocalProvider reads .lrc files from a directory
type LocalProvider struct {
	dir string
}

// NewProvider creates a provider over dir. An empty dir means LOCAL_LYRICS_PATH.
func NewProvider(dir string) *LocalProvider {
	return &LocalProvider{dir: dir}
}

// Name returns the provider identifier
func (p *LocalProvider) Name() string {
	return ProviderName
}

// Role reports the provider as a primary source
func (p *LocalProvider) Role() providers.Role {
	return providers.RolePrimary
}

func (p *LocalProvider) directory() string {
	if p.dir != "" {
		return p.dir
	}
	return config.Get().Configuration.LocalLyricsPath
}

// Fetch looks for exact file names first, then the file next to the playing
// audio, then the closest stem.
func (p *LocalProvider) Fetch(ctx context.Context, t track.Metadata) (*providers.LyricsResult, error) {
	if strings.TrimSpace(t.Title) == "" {
		return nil, providers.NotFound(ProviderName, "track title is empty")
	}

	dir := p.directory()
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, providers.NewProviderError(ProviderName, "failed to list lyrics directory", err)
	}

	byName := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), lrcExt) {
			continue
		}
		byName[strings.ToLower(e.Name())] = e.Name()
	}

	for _, name := range exactNames(t) {
		if actual, ok := byName[strings.ToLower(name)]; ok {
			return p.read(ctx, filepath.Join(dir, actual), 1.0)
		}
	}

	if sibling := siblingPath(t.URL); sibling != "" {
		if _, err := os.Stat(sibling); err == nil {
			return p.read(ctx, sibling, 1.0)
		}
	}

	best, score := bestStem(byName, t)
	if best == "" || score <= fuzzyThreshold {
		return nil, providers.NotFound(ProviderName, fmt.Sprintf("no local lyrics for: %s", t))
	}
	log.Debugf("%s Fuzzy match %q (score: %.2f)", logcolors.Adapter(ProviderName), best, score)
	return p.read(ctx, filepath.Join(dir, best), score)
}

func (p *LocalProvider) read(ctx context.Context, path string, score float64) (*providers.LyricsResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "failed to read "+path, err)
	}
	raw := strings.TrimPrefix(string(data), "\ufeff")
	if strings.TrimSpace(raw) == "" {
		return nil, providers.NotFound(ProviderName, path+" is empty")
	}

	log.Infof("%s Loaded %s", logcolors.LogSuccess, path)
	return &providers.LyricsResult{
		Raw:      raw,
		Format:   timeline.FormatAuto,
		Provider: ProviderName,
		Score:    score,
	}, nil
}

func exactNames(t track.Metadata) []string {
	title := strings.TrimSpace(t.Title)
	artist := strings.TrimSpace(t.Artist)
	if artist == "" {
		return []string{title + lrcExt}
	}
	return []string{
		artist + " - " + title + lrcExt,
		title + lrcExt,
		title + " - " + artist + lrcExt,
	}
}

// siblingPath maps file:///music/a.flac to /music/a.lrc
func siblingPath(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return ""
	}
	return strings.TrimSuffix(u.Path, filepath.Ext(u.Path)) + lrcExt
}

func bestStem(byName map[string]string, t track.Metadata) (string, float64) {
	forward := t.Title + " " + t.Artist
	reverse := t.Artist + " " + t.Title

	var best string
	bestScore := 0.0
	for _, name := range byName {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		score := max(utils.Similarity(stem, forward), utils.Similarity(stem, reverse))
		if score > bestScore || (score == bestScore && name < best) {
			best, bestScore = name, score
		}
	}
	return best, bestScore
}

// init registers the local-file provider with the global registry
func init() {
	providers.Register(NewProvider(""))
}
