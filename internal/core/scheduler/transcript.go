package scheduler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agenthands/accord/internal/core/common"
	"github.com/agenthands/accord/internal/core/model"
)

// Two retention policies over the same event stream: a bounded in-memory ring
// per job for introspection, and an unbounded append-only log file per job for
// durability. They are deliberately independent.
const ringCapacity = 120

type ring struct {
	entries []model.Exchange
}

func (r *ring) append(ex model.Exchange) {
	if len(r.entries) >= ringCapacity {
		r.entries = r.entries[1:]
	}
	r.entries = append(r.entries, ex)
}

// tail returns the most recent n entries in original order.
func (r *ring) tail(n int) []model.Exchange {
	start := 0
	if len(r.entries) > n {
		start = len(r.entries) - n
	}
	out := make([]model.Exchange, len(r.entries)-start)
	copy(out, r.entries[start:])
	return out
}

type transcriptStore struct {
	dir   string
	rings map[string]*ring
}

// newTranscriptStore creates a store. An empty dir disables the durable log,
// which some tests rely on.
func newTranscriptStore(dir string) *transcriptStore {
	return &transcriptStore{
		dir:   dir,
		rings: map[string]*ring{},
	}
}

// append records one exchange into the job's ring and, when durability is
// enabled, writes its canonical encoding as one line of the job's log file.
// The log is never rewritten or compacted here.
func (s *transcriptStore) append(jobID string, ex model.Exchange) error {
	r, ok := s.rings[jobID]
	if !ok {
		r = &ring{}
		s.rings[jobID] = r
	}
	r.append(ex)

	if s.dir == "" {
		return nil
	}

	line, err := common.CanonicalJSON(ex)
	if err != nil {
		return fmt.Errorf("failed to encode exchange for job %s: %w", jobID, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create transcript dir: %w", err)
	}

	path := filepath.Join(s.dir, logName(jobID))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open transcript log %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append transcript log %s: %w", path, err)
	}
	return nil
}

// logName maps a job id to a log filename. Ids are normally UUIDs or content
// hashes; anything with characters unsafe for a filename is hashed instead so
// an id can never escape the transcript dir.
func logName(jobID string) string {
	for _, r := range jobID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return common.HashHex(jobID)[:16] + ".log"
		}
	}
	if jobID == "" {
		return common.HashHex(jobID)[:16] + ".log"
	}
	return jobID + ".log"
}

func (s *transcriptStore) tail(jobID string, n int) []model.Exchange {
	r, ok := s.rings[jobID]
	if !ok {
		return nil
	}
	return r.tail(n)
}

// activeCount is the number of jobs with at least one recorded exchange.
func (s *transcriptStore) activeCount() int {
	count := 0
	for _, r := range s.rings {
		if len(r.entries) > 0 {
			count++
		}
	}
	return count
}

func (s *transcriptStore) jobIDs() []string {
	ids := make([]string, 0, len(s.rings))
	for id := range s.rings {
		ids = append(ids, id)
	}
	return ids
}
