package docsync

import (
	"log/slog"
	"time"

	"github.com/danielsimonjr/docsync/utils"
)

type Options struct {
	// ConflictTimeGap is the modification-time gap beyond which two
	// diverged versions are treated as sequential rather than truly
	// concurrent, so the newest side simply wins.
	ConflictTimeGap time.Duration

	// ArchiveSize bounds the per-resolver LRU of recently committed
	// document versions used for ancestry checks.
	ArchiveSize int

	Logger utils.Logger
}

func (o *Options) SetDefaults() {
	if o.ConflictTimeGap == 0 {
		o.ConflictTimeGap = 2 * time.Hour
	}
	if o.ArchiveSize <= 0 {
		o.ArchiveSize = 128
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
}
