package repo

import (
	"path/filepath"
	"regexp"
	"strings"
)

// ParseGitHubURL extracts owner and repository name from an HTTPS or SSH
// GitHub URL.
func ParseGitHubURL(url string) (owner, name string, ok bool) {
	url = strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(url), "/"), ".git")

	var rest string
	switch {
	case strings.HasPrefix(url, "https://github.com/"):
		rest = strings.TrimPrefix(url, "https://github.com/")
	case strings.HasPrefix(url, "http://github.com/"):
		rest = strings.TrimPrefix(url, "http://github.com/")
	case strings.HasPrefix(url, "git@github.com:"):
		rest = strings.TrimPrefix(url, "git@github.com:")
	case strings.HasPrefix(url, "ssh://git@github.com/"):
		rest = strings.TrimPrefix(url, "ssh://git@github.com/")
	default:
		return "", "", false
	}

	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// DisplayName names a target for reports: "owner/name" for GitHub URLs, the
// last path element otherwise.
func DisplayName(target string) string {
	if owner, name, ok := ParseGitHubURL(target); ok {
		return owner + "/" + name
	}
	target = strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(target), "/"), ".git")
	if i := strings.LastIndexAny(target, "/:"); i >= 0 && strings.Contains(target, "://") {
		return target[i+1:]
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return filepath.Base(target)
	}
	return filepath.Base(abs)
}

var unsafeSlug = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Slug turns a display name into a string usable in file names.
func Slug(name string) string {
	s := strings.Trim(unsafeSlug.ReplaceAllString(name, "-"), "-.")
	if s == "" {
		return "repo"
	}
	return s
}
