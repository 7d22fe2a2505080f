package utils

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
)

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

var youtubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// NormalizeSourceURL classifies a remote source. YouTube links in any of the
// watch, youtu.be, shorts, live or embed forms collapse to
// https://youtube.com/watch?v=ID.
func NormalizeSourceURL(raw string) (string, lifecycle.SourceType, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", apperrors.NewValidation("url", "not an absolute url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", apperrors.NewValidation("url", "scheme must be http or https")
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if !youtubeHosts[host] {
		u.Fragment = ""
		return u.String(), lifecycle.SourceURL, nil
	}

	var id string
	if host == "youtu.be" {
		id = strings.Trim(u.Path, "/")
	} else {
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch {
		case len(segs) == 1 && segs[0] == "watch":
			id = u.Query().Get("v")
		case len(segs) == 2 && (segs[0] == "shorts" || segs[0] == "live" || segs[0] == "embed"):
			id = segs[1]
		}
	}
	if !youtubeID.MatchString(id) {
		return "", "", apperrors.NewValidation("url", "unrecognised youtube video link")
	}
	return "https://youtube.com/watch?v=" + id, lifecycle.SourceYouTube, nil
}

// HasAllowedExtension matches the lower-cased extension of name against allowed.
func HasAllowedExtension(name string, allowed []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, a := range allowed {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

// ContainsFold reports whether v is in list, ignoring case and parameters such
// as "; codecs=...".
func ContainsFold(list []string, v string) bool {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimSpace(v)
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
