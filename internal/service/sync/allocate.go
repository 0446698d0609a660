package syncservice

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"

	"go.uber.org/zap"
)

// Allocator derives sequential membership numbers for one prefix. It re-scans
// the roster on every call; identifiers handed out earlier in the same run
// are not yet visible there, so a reservation set prevents in-run collisions.
type Allocator struct {
	store    TabularStore
	cfg      *domain.SheetConfig
	prefix   string
	logger   *zap.Logger
	reserved map[string]struct{}
}

func NewAllocator(store TabularStore, cfg *domain.SheetConfig, prefix string, logger *zap.Logger) *Allocator {
	return &Allocator{
		store:    store,
		cfg:      cfg,
		prefix:   prefix,
		logger:   logger,
		reserved: make(map[string]struct{}),
	}
}

// Next returns the next free membership number: prefix + zero-padded max+1
// over all suffixes seen in the roster and the reservation set. When the
// roster cannot be read the allocator falls back to a timestamp-derived
// suffix instead of failing the row; such identifiers are not guaranteed
// unique across concurrent runs, a deliberate availability tradeoff.
func (a *Allocator) Next(ctx context.Context) string {
	snapshot, err := a.store.ReadRange(ctx, a.cfg.ResourceID, FullRange)
	if err != nil {
		id := a.timestampFallback()
		a.logger.Warn("roster scan failed, allocated timestamp-derived membership number",
			zap.String("membership_number", id),
			zap.Error(err),
		)
		return id
	}

	max := 0
	col := fieldColumn(snapshot.Headers, a.cfg.Mapping, domain.FieldMembershipNumber)
	if col >= 0 {
		for _, row := range snapshot.Rows {
			if n, ok := a.parseSuffix(domain.Cell(row, col)); ok && n > max {
				max = n
			}
		}
	}
	for id := range a.reserved {
		if n, ok := a.parseSuffix(id); ok && n > max {
			max = n
		}
	}

	id := a.prefix + pad(max+1)
	a.reserved[id] = struct{}{}
	return id
}

// parseSuffix extracts the numeric suffix of an identifier carrying the
// allocator's prefix. An empty prefix means the whole cell is the suffix;
// non-numeric cells are simply not identifiers.
func (a *Allocator) parseSuffix(cell string) (int, bool) {
	if !strings.HasPrefix(cell, a.prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(cell[len(a.prefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// pad zero-pads to a minimum of 3 digits and widens beyond 999 rather than
// truncating.
func pad(n int) string {
	return fmt.Sprintf("%03d", n)
}

func (a *Allocator) timestampFallback() string {
	suffix := time.Now().UnixMilli() % 1_000_000
	id := a.prefix + fmt.Sprintf("%06d", suffix)
	for {
		if _, taken := a.reserved[id]; !taken {
			break
		}
		suffix = (suffix + 1) % 1_000_000
		id = a.prefix + fmt.Sprintf("%06d", suffix)
	}
	a.reserved[id] = struct{}{}
	return id
}
