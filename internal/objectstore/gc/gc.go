// Package gc implements the GC Coordinator: the owner-side release
// bookkeeping and the holder-side periodic sync rounds that keep the Local
// and Remote Tables from leaking ids when release/re-introduction packets
// race, are lost, or arrive out of order. The periodic ticker loop follows
// internal/service/scheduler.StartWatchdog's shape (ticker + cancel
// context, non-blocking error channel) rather than inventing a second
// background-loop idiom.
package gc

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/viant/remoteobj/internal/objectstore/localtable"
	"github.com/viant/remoteobj/internal/objectstore/remotetable"
	"github.com/viant/remoteobj/internal/objectstore/telemetry"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

// Sender is what the Coordinator needs from the transport to carry out a
// sync round: send a syncGc request to the peer and get back its result.
type Sender interface {
	SyncGC(ctx context.Context, req wire.SyncGCRequestParams) (wire.SyncGCResult, error)
}

// thresholdPollInterval is how often the Coordinator checks the Remote
// Table's pending-cleanup queue against threshold, independent of the
// regular sync interval — a scheduleGcAfterObjectCount round must not have
// to wait for scheduleGcAfterTime to elapse.
const thresholdPollInterval = 100 * time.Millisecond

// Coordinator runs one connection's GC protocol: tracking this peer's
// pending releases (ids whose proxy became unreachable) and periodically
// reconciling them against the owner's Local Table.
type Coordinator struct {
	remote    *remotetable.Table
	owner     *localtable.Table
	sender    Sender
	interval  time.Duration
	threshold int
	newItems  chan wire.Id

	stop context.CancelFunc
	// Errors receives sync-round failures; buffered and non-blocking.
	Errors chan error
}

// New builds a Coordinator. remote is this peer's Remote Table (source of
// ids to release); owner is this peer's own Local Table (used to answer
// syncGc requests the peer sends us); sender issues the syncGc RPC. threshold
// triggers an immediate sync round as soon as remote's pending-cleanup queue
// reaches that depth, rather than waiting for the next interval tick;
// threshold <= 0 disables the count-based trigger entirely.
func New(remote *remotetable.Table, owner *localtable.Table, sender Sender, interval time.Duration, threshold int) *Coordinator {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Coordinator{
		remote:    remote,
		owner:     owner,
		sender:    sender,
		interval:  interval,
		threshold: threshold,
		newItems:  make(chan wire.Id, 64),
		Errors:    make(chan error, 4),
	}
}

// NoteReceived records that id was just introduced or re-introduced to this
// peer in an inbound message, so a sync round in flight doesn't release it
// out from under a fresh use.
func (c *Coordinator) NoteReceived(id wire.Id) {
	select {
	case c.newItems <- id:
	default:
	}
}

// Start launches the periodic sync-round goroutine. Call Stop to cancel.
func (c *Coordinator) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	c.stop = cancel
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		var thresholdC <-chan time.Time
		if c.threshold > 0 {
			thresholdTicker := time.NewTicker(thresholdPollInterval)
			defer thresholdTicker.Stop()
			thresholdC = thresholdTicker.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.runRound(ctx); err != nil {
					select {
					case c.Errors <- err:
					default:
					}
				}
			case <-thresholdC:
				if c.remote.PendingLen() < c.threshold {
					continue
				}
				if err := c.runRound(ctx); err != nil {
					select {
					case c.Errors <- err:
					default:
					}
				}
			}
		}
	}()
}

// Stop cancels the periodic sync loop.
func (c *Coordinator) Stop() {
	if c != nil && c.stop != nil {
		c.stop()
	}
}

// RunNow triggers one sync round immediately, outside the periodic ticker —
// the Store's explicit SyncGC entry point.
func (c *Coordinator) RunNow(ctx context.Context) error {
	return c.runRound(ctx)
}

// runRound snapshots the pending-cleanup queue, drains any ids freshly
// re-introduced since the last round, and sends one syncGc round. The
// round correlation id is for diagnostics only (the wire protocol itself
// is idempotent per-id; nothing keys off it over the network).
func (c *Coordinator) runRound(ctx context.Context) error {
	roundID := uuid.NewString()
	var deleted []wire.Id
	for _, id := range c.remote.DrainPending() {
		// A live proxy installed again under id since it was queued is a
		// fresh use: it cancels the pending release.
		if _, live := c.remote.Get(id); live {
			continue
		}
		deleted = append(deleted, id)
	}
	newItems := drainNewItems(c.newItems)

	if len(deleted) == 0 && len(newItems) == 0 {
		return nil
	}

	telemetry.Publish(telemetry.GCSyncRound, map[string]interface{}{"round": roundID, "deleted": len(deleted), "new": len(newItems)})

	res, err := c.sender.SyncGC(ctx, wire.SyncGCRequestParams{DeletedItems: deleted, NewItems: newItems})
	if err != nil {
		// A dropped round isn't data loss: the ids are already gone from
		// the Remote Table (the proxy really is unreachable), only the
		// owner's bookkeeping didn't get the memo this time. The next
		// successful round, or the owner's own idle sweep, recovers them.
		return err
	}
	for _, id := range res.DeletedItems {
		telemetry.Publish(telemetry.IDReleased, id)
	}
	return nil
}

func drainNewItems(ch chan wire.Id) []wire.Id {
	var out []wire.Id
	for {
		select {
		case id := <-ch:
			out = append(out, id)
		default:
			return out
		}
	}
}

// HandleSyncGC answers an inbound syncGc request against this peer's own
// Local Table (we are the owner the request's deletedItems refer to). An id
// re-sent after cutoff (spotted via the Local Table's lastSentAt bookkeeping)
// is not released — the holder's stale release request loses to the fresher
// use.
func HandleSyncGC(owner *localtable.Table, req wire.SyncGCRequestParams, cutoff time.Time) wire.SyncGCResult {
	ids := make([]uint64, len(req.DeletedItems))
	for i, id := range req.DeletedItems {
		ids[i] = id.Value
	}
	released, unknown := owner.Release(ids, cutoff)

	toWireIds := func(nums []uint64, side wire.Side) []wire.Id {
		out := make([]wire.Id, len(nums))
		for i, n := range nums {
			out[i] = wire.Id{Side: side, Value: n}
		}
		return out
	}

	var unknownNew []wire.Id
	for _, id := range req.NewItems {
		if id.Named() {
			if _, ok := owner.LookupExposed(id.Name); !ok {
				unknownNew = append(unknownNew, id)
			}
			continue
		}
		if _, ok := owner.Lookup(id.Value); !ok {
			unknownNew = append(unknownNew, id)
		}
	}

	side := wire.Local
	if len(req.DeletedItems) > 0 {
		side = req.DeletedItems[0].Side
	}
	return wire.SyncGCResult{DeletedItems: toWireIds(released, side), UnknownNewItems: unknownNew}
}
