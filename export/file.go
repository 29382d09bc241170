package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
)

// FileSink writes each artifact as a pretty-printed JSON file named
// <dir>/<session_id>.json. Re-exporting a session replaces the file. Writes
// go through a temp file and rename so a crash never leaves a half-written
// artifact behind.
type FileSink struct {
	dir string
}

// NewFileSink creates the sink, creating dir if it does not exist.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir %s: %w", dir, err)
	}
	return &FileSink{dir: dir}, nil
}

// Put writes the artifact to <dir>/<session_id>.json.
func (s *FileSink) Put(artifact core.ExportArtifact) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export for session %s: %w", artifact.SessionID, err)
	}

	path := s.Path(artifact.SessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write export file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize export file %s: %w", path, err)
	}
	return nil
}

// Path returns the file path an artifact for the session is written to.
func (s *FileSink) Path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

var _ core.ExportSink = (*FileSink)(nil)
