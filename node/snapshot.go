package node

import (
	"github.com/pkg/errors"
)

// Snapshot records the current best block and returns an id to revert to.
// Ids start from 1.
func (n *Node) Snapshot() uint64 {
	n.snapshotsMu.Lock()
	defer n.snapshotsMu.Unlock()

	n.snapshots = append(n.snapshots, n.repo.BestBlockSummary().Header.Number())
	id := uint64(len(n.snapshots))
	logger.Debug("snapshot taken", "id", id, "number", n.snapshots[id-1])
	return id
}

// Revert rewinds the chain to the best block recorded by snapshot id.
// The snapshot and every later one are consumed. Pending txs stay in the pool.
func (n *Node) Revert(id uint64) error {
	n.snapshotsMu.Lock()
	defer n.snapshotsMu.Unlock()

	if id == 0 || id > uint64(len(n.snapshots)) {
		return errors.Errorf("unknown snapshot %d", id)
	}
	number := n.snapshots[id-1]

	if err := n.solo.Suspend(func() error {
		if err := n.repo.Rewind(number); err != nil {
			return err
		}
		if err := n.txPool.Wash(); err != nil {
			logger.Warn("failed to wash tx pool", "err", err)
		}
		return nil
	}); err != nil {
		return errors.Wrap(err, "rewind")
	}
	n.snapshots = n.snapshots[:id-1]
	logger.Info("reverted to snapshot", "id", id, "number", number)
	return nil
}
