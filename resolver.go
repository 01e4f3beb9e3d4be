package docsync

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/danielsimonjr/docsync/utils"
)

var ConflictsDetected = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "docsync",
	Subsystem: "resolver",
	Name:      "conflicts_detected",
}, []string{"type"})

var ConflictsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "docsync",
	Subsystem: "resolver",
	Name:      "conflicts_resolved",
}, []string{"strategy"})

var (
	ErrPromptRequired  = errors.New("docsync: conflict requires user resolution")
	ErrUnknownStrategy = errors.New("docsync: unknown resolution strategy")
)

// Resolver tracks open conflicts and executes resolution strategies.
// The underlying detection/merge functions are pure; the resolver only
// adds the registry, the version archive and observability, so it is
// safe to share between goroutines.
type Resolver struct {
	opts    Options
	log     utils.Logger
	open    *xsync.MapOf[string, *SyncConflict]
	archive *VersionArchive
}

func NewResolver(opts *Options) *Resolver {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.SetDefaults()
	return &Resolver{
		opts:    o,
		log:     o.Logger,
		open:    xsync.NewMapOf[string, *SyncConflict](),
		archive: NewVersionArchive(o.ArchiveSize),
	}
}

// Track archives a committed version for later ancestry checks.
func (r *Resolver) Track(docID string, v DocumentVersion) {
	r.archive.Record(docID, v)
}

// Detect runs conflict detection and, on divergence, registers a
// conflict record for later resolution.
func (r *Resolver) Detect(docID string, local, remote DocumentVersion) (*SyncConflict, bool) {
	if !DetectConflict(local, remote) {
		return nil, false
	}
	c := NewConflict(docID, local, remote)
	r.open.Store(c.ID, &c)
	ConflictsDetected.WithLabelValues(string(c.Type)).Inc()
	r.log.Info("conflict detected", "doc", docID, "type", c.Type,
		"local", local.Version, "remote", remote.Version)
	return &c, true
}

func (r *Resolver) Recommend(c *SyncConflict) Strategy {
	return RecommendStrategy(*c, &r.opts)
}

// Pending lists conflicts that were detected but not yet resolved.
func (r *Resolver) Pending() (open []*SyncConflict) {
	r.open.Range(func(_ string, c *SyncConflict) bool {
		open = append(open, c)
		return true
	})
	return
}

// Resolution is the reconciled outcome of one conflict. For the merge
// strategy the version carries the merged edit history and a bumped
// version number; its checksum is left for the document store to fill in
// once the merged content is materialized.
type Resolution struct {
	Strategy Strategy        `json:"strategy"`
	Version  DocumentVersion `json:"version"`
}

// Resolve executes a strategy. StrategyPrompt never resolves here: the
// core does not guess, it returns ErrPromptRequired for the caller to
// surface.
func (r *Resolver) Resolve(c *SyncConflict, strategy Strategy) (Resolution, error) {
	switch strategy {
	case StrategyNewestWins:
		win := c.Local
		if c.Remote.ModifiedAt.After(c.Local.ModifiedAt) {
			win = c.Remote
		}
		return r.close(c, Resolution{Strategy: strategy, Version: win}), nil
	case StrategyLocalWins:
		return r.close(c, Resolution{Strategy: strategy, Version: c.Local}), nil
	case StrategyMerge:
		v := DocumentVersion{
			Version:    max(c.Local.Version, c.Remote.Version) + 1,
			ModifiedAt: time.Now().UTC(),
			Changes:    MergeEditHistories(c.Local.Changes, c.Remote.Changes),
		}
		return r.close(c, Resolution{Strategy: strategy, Version: v}), nil
	case StrategyPrompt:
		return Resolution{}, ErrPromptRequired
	default:
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

func (r *Resolver) close(c *SyncConflict, res Resolution) Resolution {
	now := time.Now().UTC()
	c.ResolvedAt = &now
	r.open.Delete(c.ID)
	r.archive.Record(c.DocumentID, res.Version)
	ConflictsResolved.WithLabelValues(string(res.Strategy)).Inc()
	r.log.Info("conflict resolved", "conflict", c.ID, "doc", c.DocumentID,
		"strategy", res.Strategy, "version", res.Version.Version)
	return res
}

// NeedsRebase covers the non-overlapping-window case DetectConflict
// leaves alone: checksums differ, histories are linear. If the remote
// version matches something we already committed, local is simply ahead
// and nothing needs doing; otherwise the local copy must be rebased onto
// the remote before its changes can be sent.
func (r *Resolver) NeedsRebase(docID string, local, remote DocumentVersion) bool {
	if local.Checksum == remote.Checksum {
		return false
	}
	if DetectConflict(local, remote) {
		return false
	}
	if sum, ok := r.archive.Checksum(docID, remote.Version); ok && sum == remote.Checksum {
		return false
	}
	return true
}
