package identity

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// AllowList is the break-glass administrator allow-list. Username
// matches are case-sensitive, email matches exact. It is a fallback
// role source only: the resolver consults it solely for identities with
// zero assigned roles.
type AllowList struct {
	mu        sync.RWMutex
	usernames map[string]struct{}
	emails    map[string]struct{}
}

// NewAllowList builds an allow-list from entry strings. Entries
// containing "@" are treated as emails, everything else as usernames.
func NewAllowList(entries []string) *AllowList {
	l := &AllowList{
		usernames: make(map[string]struct{}),
		emails:    make(map[string]struct{}),
	}
	l.replace(entries)
	return l
}

// Matches reports whether the identity appears on the list.
func (l *AllowList) Matches(username, email string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if username != "" {
		if _, ok := l.usernames[username]; ok {
			return true
		}
	}
	if email != "" {
		if _, ok := l.emails[email]; ok {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (l *AllowList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.usernames) + len(l.emails)
}

// LoadFile replaces the list with the contents of a file: one entry per
// line, blank lines and '#' comments skipped.
func (l *AllowList) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open allow-list file: %w", err)
	}
	defer file.Close()

	var entries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read allow-list file: %w", err)
	}

	l.replace(entries)
	return nil
}

// Watch reloads the list whenever the file changes, until the context
// is cancelled. Reload failures keep the previous list.
func (l *AllowList) Watch(ctx context.Context, path string, logger *logrus.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create allow-list watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch allow-list file: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := l.LoadFile(path); err != nil {
					logger.WithError(err).Warn("allow-list reload failed, keeping previous list")
					continue
				}
				logger.WithField("entries", l.Len()).Info("allow-list reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("allow-list watcher error")
			}
		}
	}()

	return nil
}

func (l *AllowList) replace(entries []string) {
	usernames := make(map[string]struct{})
	emails := make(map[string]struct{})
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.ContainsRune(entry, '@') {
			emails[entry] = struct{}{}
		} else {
			usernames[entry] = struct{}{}
		}
	}

	l.mu.Lock()
	l.usernames = usernames
	l.emails = emails
	l.mu.Unlock()
}
