// Package events keeps an append-only audit trail of what ci-guardian did
// in a repository: hook installs, issued and consumed tokens, detected
// bypasses and reverts.
//
// Events are written to <repo>/.git/ci-guardian/events.jsonl, one JSON
// object per line. Logging is best-effort and never blocks a hook.
package events

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/log"
)

// Event is one audit record.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp string                 `json:"ts"`
	Source    string                 `json:"source"`
	Type      string                 `json:"type"`
	Hook      string                 `json:"hook,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Event types.
const (
	TypeInstall        = "install"
	TypeUninstall      = "uninstall"
	TypeTokenIssued    = "token_issued"
	TypeTokenConsumed  = "token_consumed"
	TypeBypassDetected = "bypass_detected"
	TypeCommitReverted = "commit_reverted"
	TypeRevertFailed   = "revert_failed"
	TypeValidationFail = "validation_failed"
)

// EventsFile is the audit log's file name.
const EventsFile = "events.jsonl"

// mutex protects concurrent writes to the events file.
var mutex sync.Mutex

// Path returns the events file for a repository.
func Path(repoPath string) string {
	return PathIn(filepath.Join(repoPath, constants.GitDir))
}

// PathIn returns the events file inside a git directory. Linked worktrees
// log into the common git directory of their main repository.
func PathIn(gitDir string) string {
	return filepath.Join(gitDir, constants.StateDir, EventsFile)
}

// Log appends an event. Failures are logged at debug level and swallowed.
func Log(repoPath, eventType, hook string, payload map[string]interface{}) {
	LogIn(filepath.Join(repoPath, constants.GitDir), eventType, hook, payload)
}

// LogIn is Log for an explicit git directory.
func LogIn(gitDir, eventType, hook string, payload map[string]interface{}) {
	event := Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Source:    "ci-guardian",
		Type:      eventType,
		Hook:      hook,
		Payload:   payload,
	}
	if err := write(PathIn(gitDir), event); err != nil {
		log.Debug("audit log: %v", err)
	}
}

func write(path string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	data = append(data, '\n')

	mutex.Lock()
	defer mutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("opening events file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read returns all events for a repository, oldest first. Malformed lines
// are skipped. A missing log yields no events.
func Read(repoPath string) ([]Event, error) {
	f, err := os.Open(Path(repoPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, scanner.Err()
}

// Last returns the most recent event of eventType, or nil.
func Last(repoPath, eventType string) *Event {
	all, err := Read(repoPath)
	if err != nil {
		return nil
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Type == eventType {
			return &all[i]
		}
	}
	return nil
}

// RevertPayload describes a revert attempt.
func RevertPayload(outcome, message, subject string) map[string]interface{} {
	p := map[string]interface{}{
		"outcome": outcome,
		"message": message,
	}
	if subject != "" {
		p["subject"] = subject
	}
	return p
}

// HooksPayload lists hook names affected by an install or uninstall.
func HooksPayload(hooks []string) map[string]interface{} {
	return map[string]interface{}{
		"hooks": hooks,
	}
}

// ValidatorPayload names the validators that blocked a commit or push.
func ValidatorPayload(failed []string) map[string]interface{} {
	return map[string]interface{}{
		"failed": failed,
	}
}
