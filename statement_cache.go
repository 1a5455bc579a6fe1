package pgwire

import (
	"container/list"
	"fmt"
	"sync/atomic"

	"github.com/coredrift/pgwire/wireproto"
)

// preparedStatement is a server-side object owned by the Session that
// created it: a name, its SQL text, the OIDs of its parameters (learned via
// Describe), and its row description.
type preparedStatement struct {
	name          string
	sql           string
	parameterOIDs []uint32
	rowDesc       wireproto.RowDescription
}

var statementCacheCount uint64

// statementCache is a least-recently-used cache of named prepared
// statements keyed by SQL text, grounded on the teacher's container/list
// LRU shape. Unnamed statements never enter the cache: spec §4.5 has them
// re-parsed on every call.
type statementCache struct {
	cap          int
	namePrefix   string
	prepareCount uint64
	m            map[string]*list.Element
	l            *list.List
}

func newStatementCache(cap int) *statementCache {
	n := atomic.AddUint64(&statementCacheCount, 1)
	return &statementCache{
		cap:        cap,
		namePrefix: fmt.Sprintf("pgwire_%d", n),
		m:          make(map[string]*list.Element),
		l:          list.New(),
	}
}

// get returns the cached statement for sql, or nil, false if absent. On hit
// the entry is moved to the front (most recently used).
func (c *statementCache) get(sql string) (*preparedStatement, bool) {
	el, ok := c.m[sql]
	if !ok {
		return nil, false
	}
	c.l.MoveToFront(el)
	return el.Value.(*preparedStatement), true
}

// nextName reserves a fresh statement name for a new cache entry.
func (c *statementCache) nextName() string {
	name := fmt.Sprintf("%s_%d", c.namePrefix, c.prepareCount)
	c.prepareCount++
	return name
}

// put inserts stmt, evicting the least-recently-used entry first if the
// cache is at capacity. The evicted statement's name is returned so the
// caller can emit a Close for it; empty string means nothing was evicted.
func (c *statementCache) put(stmt *preparedStatement) (evictedName string) {
	if c.l.Len() >= c.cap {
		oldest := c.l.Back()
		c.l.Remove(oldest)
		evicted := oldest.Value.(*preparedStatement)
		delete(c.m, evicted.sql)
		evictedName = evicted.name
	}
	c.m[stmt.sql] = c.l.PushFront(stmt)
	return evictedName
}

// clear empties the cache, returning the names of every evicted statement
// so the caller can Close them (or skip it entirely on a lost connection,
// since the server side is already gone).
func (c *statementCache) clear() []string {
	names := make([]string, 0, c.l.Len())
	for el := c.l.Front(); el != nil; el = el.Next() {
		names = append(names, el.Value.(*preparedStatement).name)
	}
	c.m = make(map[string]*list.Element)
	c.l = list.New()
	return names
}
