package lake

import (
	"log/slog"

	"github.com/google/uuid"
)

// Store is the root of a lake on the local filesystem. Directories are
// created lazily on first write, so pointing a Store at a missing path is
// not an error until a table is touched.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore opens a lake rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{root: dir, logger: logger}
}

// Root returns the lake root directory.
func (s *Store) Root() string {
	return s.root
}

func shortID() string {
	return uuid.NewString()[:8]
}
