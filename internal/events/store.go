package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ctxlab/internal/types"
)

// Store persists finalized sessions, one JSON file per session, in a
// single directory. File names are session_<query_id>.json.
type Store struct {
	dir string
	log *zap.Logger
}

// NewStore creates the session directory if needed.
func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir %s: %w", dir, err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the session directory path.
func (s *Store) Dir() string { return s.dir }

// Save writes the session record. Indented output: the files are the
// system's inspection surface and get read by humans.
func (s *Store) Save(session *types.QuerySession) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.QueryID, err)
	}
	path := filepath.Join(s.dir, "session_"+session.QueryID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Load reads one session by query id.
func (s *Store) Load(queryID string) (*types.QuerySession, error) {
	path := filepath.Join(s.dir, "session_"+queryID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", queryID, err)
	}
	var session types.QuerySession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", queryID, err)
	}
	return &session, nil
}

// LoadAll reads every session in the directory, sorted by start time.
// Corrupt files are skipped with a warning rather than failing the whole
// load; one bad record must not take down the dashboard.
func (s *Store) LoadAll() ([]*types.QuerySession, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "session_*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob session files: %w", err)
	}

	var (
		mu       sync.Mutex
		sessions []*types.QuerySession
	)
	var g errgroup.Group
	g.SetLimit(8)
	for _, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				s.log.Warn("skipping unreadable session file", zap.String("path", path), zap.Error(err))
				return nil
			}
			var session types.QuerySession
			if err := json.Unmarshal(data, &session); err != nil {
				s.log.Warn("skipping corrupt session file", zap.String("path", path), zap.Error(err))
				return nil
			}
			mu.Lock()
			sessions = append(sessions, &session)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions, nil
}

// LoadConversations groups all sessions by conversation id, each group
// sorted by sequence. Records written before conversation grouping
// existed have an empty conversation_id and group under their query_id.
func (s *Store) LoadConversations() (map[string][]*types.QuerySession, error) {
	sessions, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]*types.QuerySession)
	for _, session := range sessions {
		id := session.ConversationID
		if id == "" {
			id = session.QueryID
		}
		groups[id] = append(groups[id], session)
	}
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return group[i].Sequence < group[j].Sequence
		})
	}
	return groups, nil
}
