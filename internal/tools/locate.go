package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// DefaultGitHubAPI is the base of the GitHub REST API.
const DefaultGitHubAPI = "https://api.github.com"

// locate finds the download URL for dep on plat. A GitHub release asset is
// preferred, then an anchor on a download page, then the URL template.
func (r *Resolver) locate(ctx context.Context, dep Dependency, plat Platform) (string, error) {
	acq := dep.Acquire
	var lastErr error
	if acq.GitHub != "" {
		u, err := r.locateAsset(ctx, acq, plat)
		if err == nil {
			return u, nil
		}
		r.logger.Debug("no suitable release asset", "repo", acq.GitHub, "err", err)
		lastErr = err
	}
	if acq.Page != "" {
		u, err := r.locateAnchor(ctx, acq, plat)
		if err == nil {
			return u, nil
		}
		r.logger.Debug("no suitable download link", "page", acq.Page, "err", err)
		lastErr = err
	}
	if acq.URL != "" {
		return expandTemplate(acq.URL, acq, plat)
	}
	if lastErr == nil {
		lastErr = newError(ReasonUnsupported, "%s declares no download location", dep.Name)
	}
	return "", lastErr
}

func (r *Resolver) locateAsset(ctx context.Context, acq *Acquisition, plat Platform) (string, error) {
	pattern, err := expandTemplate(acq.Asset, acq, plat)
	if err != nil {
		return "", err
	}
	release, err := r.latestRelease(ctx, acq.GitHub)
	if err != nil {
		return "", err
	}
	asset, ok := selectAsset(release.Assets, pattern)
	if !ok {
		return "", newError(ReasonNotFound, "no asset of %s matches %q", acq.GitHub, pattern)
	}
	return asset.BrowserDownloadURL, nil
}

func selectAsset(assets []githubAsset, pattern string) (githubAsset, bool) {
	for _, asset := range assets {
		if globMatch(pattern, asset.Name) {
			return asset, true
		}
	}
	return githubAsset{}, false
}

// latestRelease returns the latest release of repo ("owner/name"), served from
// the run memo or the disk cache when possible.
func (r *Resolver) latestRelease(ctx context.Context, repo string) (githubRelease, error) {
	if cached, ok := r.releases.get(repo); ok {
		r.logger.Debug("cached release", "repo", repo, "tag", cached.TagName)
		return cached, nil
	}
	endpoint := fmt.Sprintf("%s/repos/%s/releases/latest", strings.TrimRight(r.githubAPI, "/"), repo)
	data, err := r.document(ctx, endpoint, true)
	if err != nil {
		return githubRelease{}, err
	}
	var release githubRelease
	if err := json.Unmarshal(data, &release); err != nil {
		return githubRelease{}, wrapError(ReasonNotFound, err, "decode release of %s", repo)
	}
	r.releases.put(repo, release)
	return release, nil
}

// document fetches a metadata document once per run.
func (r *Resolver) document(ctx context.Context, u string, api bool) ([]byte, error) {
	if data, ok := r.memo.Get(u); ok {
		return data, nil
	}
	var (
		data []byte
		err  error
	)
	if api {
		data, err = r.downloader.FetchAPI(ctx, u)
	} else {
		data, err = r.downloader.Fetch(ctx, u, nil)
	}
	if err != nil {
		return nil, err
	}
	r.memo.Add(u, data)
	return data, nil
}

func (r *Resolver) locateAnchor(ctx context.Context, acq *Acquisition, plat Platform) (string, error) {
	pattern, err := expandTemplate(acq.Link, acq, plat)
	if err != nil {
		return "", err
	}
	base, err := url.Parse(acq.Page)
	if err != nil {
		return "", wrapError(ReasonUnsupported, err, "parse page url")
	}
	data, err := r.document(ctx, acq.Page, false)
	if err != nil {
		return "", err
	}
	for _, a := range scrapeAnchors(bytes.NewReader(data)) {
		if !globMatch(pattern, a.Text) && !globMatch(pattern, a.Href) {
			continue
		}
		ref, err := url.Parse(a.Href)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String(), nil
	}
	return "", newError(ReasonNotFound, "no link on %s matches %q", acq.Page, pattern)
}

type anchor struct {
	Href string
	Text string
}

// scrapeAnchors lists the anchors with an href in an HTML document. Broken
// markup ends the scan without an error.
func scrapeAnchors(r io.Reader) []anchor {
	var (
		anchors []anchor
		current *anchor
		text    strings.Builder
	)
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return anchors
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					current = &anchor{Href: strings.TrimSpace(string(val))}
					text.Reset()
					break
				}
				if !more {
					break
				}
			}
		case html.TextToken:
			if current != nil {
				text.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "a" && current != nil {
				current.Text = strings.TrimSpace(text.String())
				anchors = append(anchors, *current)
				current = nil
			}
		}
	}
}

// expandTemplate substitutes {os} and {arch} using the acquisition's token
// maps. A platform missing from a non-empty map is unsupported.
func expandTemplate(s string, acq *Acquisition, plat Platform) (string, error) {
	if strings.Contains(s, "{os}") {
		v, ok := platformToken(acq.OSNames, string(plat.OS))
		if !ok {
			return "", newError(ReasonUnsupported, "no download for OS %s", plat.OS)
		}
		s = strings.ReplaceAll(s, "{os}", v)
	}
	if strings.Contains(s, "{arch}") {
		v, ok := platformToken(acq.ArchNames, string(plat.Arch))
		if !ok {
			return "", newError(ReasonUnsupported, "no download for arch %s", plat.Arch)
		}
		s = strings.ReplaceAll(s, "{arch}", v)
	}
	return s, nil
}

func platformToken(names map[string]string, key string) (string, bool) {
	if len(names) == 0 {
		return key, true
	}
	v, ok := names[key]
	return v, ok
}

// globMatch is a shell-style match where * also crosses slashes.
func globMatch(pattern, s string) bool {
	if pattern == "" || s == "" {
		return false
	}
	var b strings.Builder
	b.WriteString("^")
	for _, c := range pattern {
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
