package causalchain

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileStore wraps an in-memory Store with a write-ahead JSON-lines log on
// disk, so a chain survives process restarts (chain.storage_backend =
// "file" in the configuration surface). Every successful Append is mirrored
// to the log file before returning.
type FileStore struct {
	*Store
	mu   sync.Mutex
	file *os.File
}

// OpenFileStore opens (creating if absent) the log file at path and replays
// its contents into a fresh in-memory Store.
func OpenFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("causalchain: open %s: %w", path, err)
	}
	fs := &FileStore{Store: New(), file: f}
	if err := fs.replay(path); err != nil {
		f.Close()
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) replay(path string) error {
	r, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("causalchain: replay %s: %w", path, err)
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var a Action
		if err := json.Unmarshal(line, &a); err != nil {
			return fmt.Errorf("causalchain: replay %s: %w", path, err)
		}
		// The stored hash is already correct (it was computed at the
		// original Append); insert directly rather than recomputing so a
		// FileStore reload does not itself mutate history.
		fs.insertVerbatim(a)
	}
	return scanner.Err()
}

// insertVerbatim loads an already-hashed action straight into the
// in-memory indices, bypassing Store.Append's hash computation and
// duplicate-id rejection (used only during log replay).
func (fs *FileStore) insertVerbatim(a Action) {
	fs.Store.mu.Lock()
	defer fs.Store.mu.Unlock()
	fs.Store.byID[a.ActionID] = a
	if a.Type == TypeCapabilityResult && a.Metadata.CorrelationID != "" {
		fs.Store.resultKeys[a.PlanID+"\x00"+a.Metadata.CorrelationID] = struct{}{}
	}
	if a.ParentActionID == "" {
		fs.Store.roots = append(fs.Store.roots, a.ActionID)
	} else {
		fs.Store.children[a.ParentActionID] = append(fs.Store.children[a.ParentActionID], a.ActionID)
	}
}

// Append persists to the in-memory store then appends one JSON line to the
// log file. If the file write fails, the in-memory append is not rolled
// back; callers treat a FileStore write failure as fatal for the process,
// matching the chain's "persists atomically" contract at the process level.
func (fs *FileStore) Append(a Action) (Action, error) {
	appended, err := fs.Store.Append(a)
	if err != nil {
		return Action{}, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	line, err := json.Marshal(appended)
	if err != nil {
		return Action{}, fmt.Errorf("causalchain: marshal action for log: %w", err)
	}
	if _, err := fs.file.Write(append(line, '\n')); err != nil {
		return Action{}, fmt.Errorf("causalchain: write log: %w", err)
	}
	if err := fs.file.Sync(); err != nil {
		return Action{}, fmt.Errorf("causalchain: sync log: %w", err)
	}
	return appended, nil
}

// Close closes the underlying log file.
func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}
