package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type storedCookie struct {
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

// FileJar is a cookie jar for a single BFF origin that survives process restarts.
// Every BFF cookie is host-only with path=/, so cookies are keyed by name alone.
// An empty path keeps the jar in memory.
type FileJar struct {
	mu      sync.Mutex
	path    string
	cookies map[string]storedCookie
	err     error
	now     func() time.Time
}

// OpenFileJar loads the jar at path. A missing, unreadable or corrupt file starts empty.
func OpenFileJar(path string) *FileJar {
	j := &FileJar{
		path:    path,
		cookies: map[string]storedCookie{},
		now:     time.Now,
	}
	if path == "" {
		return j
	}
	if raw, err := os.ReadFile(path); err == nil {
		var stored map[string]storedCookie
		if json.Unmarshal(raw, &stored) == nil && stored != nil {
			j.cookies = stored
		}
	}
	return j
}

// SetCookies implements http.CookieJar
func (j *FileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	for _, c := range cookies {
		switch {
		case c.MaxAge < 0:
			delete(j.cookies, c.Name)
		case c.MaxAge > 0:
			j.cookies[c.Name] = storedCookie{Value: c.Value, Expires: now.Add(time.Duration(c.MaxAge) * time.Second)}
		case !c.Expires.IsZero() && !c.Expires.After(now):
			delete(j.cookies, c.Name)
		default:
			j.cookies[c.Name] = storedCookie{Value: c.Value, Expires: c.Expires}
		}
	}
	j.err = j.saveLocked()
}

// Cookies implements http.CookieJar
func (j *FileJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	out := make([]*http.Cookie, 0, len(j.cookies))
	for name, c := range j.cookies {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			continue
		}
		out = append(out, &http.Cookie{Name: name, Value: c.Value})
	}
	return out
}

// Err reports whether the last write to disk failed. Cookies stay usable in
// memory either way; a non-nil error means the next process will not see them.
func (j *FileJar) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Clear drops every cookie and removes the file
func (j *FileJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.cookies = map[string]storedCookie{}
	j.err = nil
	if j.path == "" {
		return nil
	}
	if err := os.Remove(j.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cookie jar: %w", err)
	}
	return nil
}

func (j *FileJar) saveLocked() error {
	if j.path == "" {
		return nil
	}
	raw, err := json.Marshal(j.cookies)
	if err != nil {
		return fmt.Errorf("failed to encode cookie jar: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("failed to save cookie jar: %w", err)
	}
	if err := os.WriteFile(j.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to save cookie jar: %w", err)
	}
	return nil
}
