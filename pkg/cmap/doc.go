// Package cmap provides a generic map split into independently locked shards.
//
// Keys are spread across shards with hash/maphash, so concurrent writers to
// different keys rarely contend on the same mutex. Values that carry a version
// number can be updated with CompareAndSwap for optimistic concurrency.
//
//	m := cmap.New[string, *Item]()
//	m.Set("a", item)
//	if !cmap.CompareAndSwap(m, "a", item.GetVersion(), next) {
//		// somebody else won; reload and retry
//	}
package cmap
