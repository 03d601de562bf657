// Package receipt remembers which gossip messages were already seen and which
// peers are known to hold them.
package receipt

import (
	"container/list"
	"encoding/hex"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Class is the kind of gossiped object. Capacity is enforced per class.
type Class string

const (
	ClassTx    Class = "TX"
	ClassStake Class = "ST"
	ClassBlock Class = "BK"
	ClassData  Class = "DT"
)

var AllowedClasses = []Class{ClassTx, ClassStake, ClassBlock, ClassData}

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 300

type entry struct {
	hash    string
	payload any
	peers   map[string]struct{}
}

// queue keeps one class in insertion order; the front is the oldest.
type queue struct {
	items map[string]*list.Element
	order *list.List
}

// Cache is safe for concurrent use. All operations hold one mutex for a
// bounded amount of work and never block on anything else.
type Cache struct {
	mu       sync.Mutex
	capacity int
	classes  map[Class]*queue
}

func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		capacity: capacity,
		classes:  make(map[Class]*queue, len(AllowedClasses)),
	}
	for _, cl := range AllowedClasses {
		c.classes[cl] = &queue{items: make(map[string]*list.Element), order: list.New()}
	}
	return c
}

func (c *Cache) Capacity() int { return c.capacity }

// Register records a sighting of hash with an empty peer set. Registering a
// known hash replaces its payload and peers but keeps its age. When the class
// exceeds capacity its oldest entry is dropped.
func (c *Cache) Register(hash []byte, payload any, class Class) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.classes[class]
	if !ok {
		log.WithField("class", class).Warn("receipt: register with unknown class ignored")
		return
	}
	k := string(hash)
	if el, ok := q.items[k]; ok {
		e := el.Value.(*entry)
		e.payload = payload
		e.peers = make(map[string]struct{})
		return
	}
	q.items[k] = q.order.PushBack(&entry{hash: k, payload: payload, peers: make(map[string]struct{})})

	for q.order.Len() > c.capacity {
		oldest := q.order.Front()
		q.order.Remove(oldest)
		evicted := oldest.Value.(*entry).hash
		delete(q.items, evicted)
		log.WithFields(log.Fields{"class": class, "hash": hex.EncodeToString([]byte(evicted))}).Debug("receipt: evicted")
	}
}

// AddPeer marks peer as holding hash. It reports false when the entry is
// unknown or already evicted.
func (c *Cache) AddPeer(hash []byte, class Class, peer string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(hash, class)
	if e == nil {
		return false
	}
	e.peers[peer] = struct{}{}
	return true
}

func (c *Cache) Contains(hash []byte, class Class) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(hash, class) != nil
}

// Get returns the payload registered for hash.
func (c *Cache) Get(hash []byte, class Class) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(hash, class)
	if e == nil {
		return nil, false
	}
	return e.payload, true
}

// Peers returns a sorted copy of the peers known to hold hash.
func (c *Cache) Peers(hash []byte, class Class) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(hash, class)
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.peers))
	for p := range e.peers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (c *Cache) HasPeer(hash []byte, class Class, peer string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(hash, class)
	if e == nil {
		return false
	}
	_, ok := e.peers[peer]
	return ok
}

// Remove drops hash explicitly; it reports whether anything was removed.
func (c *Cache) Remove(hash []byte, class Class) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.classes[class]
	if !ok {
		return false
	}
	el, ok := q.items[string(hash)]
	if !ok {
		return false
	}
	q.order.Remove(el)
	delete(q.items, string(hash))
	return true
}

// Len is the number of live entries of class.
func (c *Cache) Len(class Class) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok := c.classes[class]; ok {
		return q.order.Len()
	}
	return 0
}

func (c *Cache) lookup(hash []byte, class Class) *entry {
	q, ok := c.classes[class]
	if !ok {
		return nil
	}
	if el, ok := q.items[string(hash)]; ok {
		return el.Value.(*entry)
	}
	return nil
}
