package broker

import "github.com/nextgraph-core/ng/pkg/blockstore"

// GetBlock proxies a content-addressed block read to the underlying
// store (spec.md section 4.10's "block-level operations (get, put)").
func (b *Broker) GetBlock(id blockstore.ID) (blockstore.Block, error) {
	return b.store.Get(id)
}

// PutBlock proxies a content-addressed block write.
func (b *Broker) PutBlock(blk blockstore.Block, want blockstore.ID) (blockstore.ID, error) {
	return b.store.Put(blk, want)
}

// GetManyBlocks proxies a batch read, used by branch sync to fetch
// everything branchsync.Differ reports as missing.
func (b *Broker) GetManyBlocks(ids []blockstore.ID) (map[blockstore.ID]blockstore.Block, error) {
	return b.store.GetMany(ids)
}
