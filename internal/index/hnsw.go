// Package index implements the approximate nearest-neighbor graph used
// by the native backend.
package index

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand"
	"sort"

	"vecbench/internal/mathutil"
)

// Entry is one indexed vector.
type Entry struct {
	ID     string
	Vector []float32
}

// Result is one nearest-neighbor match.
type Result struct {
	ID       string
	Distance float64
}

// Config configures the HNSW graph.
type Config struct {
	M              int     // Max connections per node (default 16)
	EfConstruction int     // Construction search depth (default 200)
	EfSearch       int     // Query search depth (default 50)
	LevelMult      float64 // Level multiplier (default 1/ln(M))
}

func (c Config) withDefaults() Config {
	if c.M == 0 {
		c.M = 16
	}
	if c.EfConstruction == 0 {
		c.EfConstruction = 200
	}
	if c.EfSearch == 0 {
		c.EfSearch = 50
	}
	if c.LevelMult == 0 {
		c.LevelMult = 1.0 / math.Log(float64(c.M))
	}
	return c
}

// node is an HNSW graph node. Fields are exported for gob serialization.
type node struct {
	ID        string
	Vector    []float32
	Level     int
	Neighbors [][]uint32 // Neighbors[level] = neighbor indices
}

// HNSW is a Hierarchical Navigable Small World graph over cosine
// distance. Levels are drawn from a fixed-seed generator and insertion
// follows input order, so building twice from the same input produces
// the same graph and the same result ordering. Search is approximate:
// the true nearest neighbor can be missed.
type HNSW struct {
	nodes      []node
	entryPoint int32 // -1 if empty
	maxLevel   int
	cfg        Config
	rng        *rand.Rand
}

// New creates an empty HNSW graph.
func New(cfg Config) *HNSW {
	return &HNSW{
		entryPoint: -1,
		cfg:        cfg.withDefaults(),
		rng:        rand.New(rand.NewSource(1)),
	}
}

// Add inserts entries in order.
func (h *HNSW) Add(entries []Entry) {
	for _, e := range entries {
		h.addOne(e)
	}
}

func (h *HNSW) addOne(e Entry) {
	level := h.randomLevel()
	idx := uint32(len(h.nodes))

	n := node{
		ID:        e.ID,
		Vector:    e.Vector,
		Level:     level,
		Neighbors: make([][]uint32, level+1),
	}
	for i := range n.Neighbors {
		n.Neighbors[i] = make([]uint32, 0, h.cfg.M)
	}

	h.nodes = append(h.nodes, n)

	if h.entryPoint < 0 {
		h.entryPoint = int32(idx)
		h.maxLevel = level
		return
	}

	curr := uint32(h.entryPoint)
	for l := h.maxLevel; l > level; l-- {
		curr = h.searchLayerOne(e.Vector, curr, l)
	}

	for l := min(level, h.maxLevel); l >= 0; l-- {
		neighbors := h.searchLayer(e.Vector, curr, h.cfg.EfConstruction, l)
		h.connect(idx, neighbors, l)
		if len(neighbors) > 0 {
			curr = neighbors[0]
		}
	}

	if level > h.maxLevel {
		h.maxLevel = level
		h.entryPoint = int32(idx)
	}
}

func (h *HNSW) randomLevel() int {
	r := h.rng.Float64()
	return int(-math.Log(r) * h.cfg.LevelMult)
}

func (h *HNSW) searchLayerOne(query []float32, entry uint32, level int) uint32 {
	curr := entry
	currDist := mathutil.CosineDistance(query, h.nodes[curr].Vector)

	for {
		changed := false
		if level < len(h.nodes[curr].Neighbors) {
			for _, neighbor := range h.nodes[curr].Neighbors[level] {
				dist := mathutil.CosineDistance(query, h.nodes[neighbor].Vector)
				if dist < currDist {
					curr = neighbor
					currDist = dist
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return curr
}

func (h *HNSW) searchLayer(query []float32, entry uint32, ef, level int) []uint32 {
	visited := make(map[uint32]bool)
	candidates := &distHeap{}
	results := &distHeap{}

	dist := mathutil.CosineDistance(query, h.nodes[entry].Vector)
	candidates.push(distItem{idx: entry, dist: dist})
	results.push(distItem{idx: entry, dist: dist})
	visited[entry] = true

	for candidates.len() > 0 {
		curr := candidates.pop()

		if results.len() >= ef && curr.dist > results.peek().dist {
			break
		}

		if level < len(h.nodes[curr.idx].Neighbors) {
			for _, neighbor := range h.nodes[curr.idx].Neighbors[level] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true

				nDist := mathutil.CosineDistance(query, h.nodes[neighbor].Vector)
				if results.len() < ef || nDist < results.peek().dist {
					candidates.push(distItem{idx: neighbor, dist: nDist})
					results.push(distItem{idx: neighbor, dist: nDist})
					if results.len() > ef {
						results.popFarthest()
					}
				}
			}
		}
	}

	out := make([]uint32, results.len())
	for i := range out {
		out[i] = results.items[i].idx
	}
	return out
}

func (h *HNSW) connect(idx uint32, neighbors []uint32, level int) {
	m := h.cfg.M
	if level == 0 {
		m = h.cfg.M * 2
	}

	selected := neighbors
	if len(selected) > m {
		selected = selected[:m]
	}

	h.nodes[idx].Neighbors[level] = append(h.nodes[idx].Neighbors[level], selected...)
	for _, n := range selected {
		if level < len(h.nodes[n].Neighbors) {
			h.nodes[n].Neighbors[level] = append(h.nodes[n].Neighbors[level], idx)
			if len(h.nodes[n].Neighbors[level]) > m {
				h.prune(n, level, m)
			}
		}
	}
}

func (h *HNSW) prune(idx uint32, level, m int) {
	neighbors := h.nodes[idx].Neighbors[level]
	if len(neighbors) <= m {
		return
	}

	type nd struct {
		n    uint32
		dist float64
	}
	nds := make([]nd, len(neighbors))
	for i, n := range neighbors {
		nds[i] = nd{n: n, dist: mathutil.CosineDistance(h.nodes[idx].Vector, h.nodes[n].Vector)}
	}
	sort.Slice(nds, func(i, j int) bool {
		if nds[i].dist != nds[j].dist {
			return nds[i].dist < nds[j].dist
		}
		return nds[i].n < nds[j].n
	})

	h.nodes[idx].Neighbors[level] = make([]uint32, m)
	for i := 0; i < m; i++ {
		h.nodes[idx].Neighbors[level][i] = nds[i].n
	}
}

// Search returns the k nearest neighbors to the query, closest first.
// Equal distances order by id so repeated searches agree.
func (h *HNSW) Search(query []float32, k int) []Result {
	if h.entryPoint < 0 || k <= 0 {
		return nil
	}

	curr := uint32(h.entryPoint)
	for l := h.maxLevel; l > 0; l-- {
		curr = h.searchLayerOne(query, curr, l)
	}

	neighbors := h.searchLayer(query, curr, max(h.cfg.EfSearch, k), 0)

	results := make([]Result, 0, len(neighbors))
	for _, idx := range neighbors {
		n := h.nodes[idx]
		results = append(results, Result{
			ID:       n.ID,
			Distance: mathutil.CosineDistance(query, n.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Len returns the number of indexed vectors.
func (h *HNSW) Len() int {
	return len(h.nodes)
}

// graphData is the serializable representation of the graph.
type graphData struct {
	Nodes      []node
	EntryPoint int32
	MaxLevel   int
	Cfg        Config
}

// Marshal serializes the graph.
func (h *HNSW) Marshal() ([]byte, error) {
	data := graphData{
		Nodes:      h.nodes,
		EntryPoint: h.entryPoint,
		MaxLevel:   h.maxLevel,
		Cfg:        h.cfg,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal restores a serialized graph.
func (h *HNSW) Unmarshal(data []byte) error {
	var d graphData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&d); err != nil {
		return err
	}

	h.nodes = d.Nodes
	h.entryPoint = d.EntryPoint
	h.maxLevel = d.MaxLevel
	h.cfg = d.Cfg
	return nil
}

// distItem for the search priority queue
type distItem struct {
	idx  uint32
	dist float64
}

// distHeap is a min-heap keyed on distance.
type distHeap struct {
	items []distItem
}

func (h *distHeap) len() int { return len(h.items) }

func (h *distHeap) push(item distItem) {
	h.items = append(h.items, item)
	i := len(h.items) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].dist >= h.items[parent].dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *distHeap) pop() distItem {
	item := h.items[0]
	h.items[0] = h.items[len(h.items)-1]
	h.items = h.items[:len(h.items)-1]
	h.bubbleDown(0)
	return item
}

func (h *distHeap) peek() distItem {
	return h.items[0]
}

// popFarthest removes the max item when the result set overflows ef.
func (h *distHeap) popFarthest() {
	if len(h.items) == 0 {
		return
	}
	maxIdx := 0
	for i := 1; i < len(h.items); i++ {
		if h.items[i].dist > h.items[maxIdx].dist {
			maxIdx = i
		}
	}
	h.items = append(h.items[:maxIdx], h.items[maxIdx+1:]...)
}

func (h *distHeap) bubbleDown(i int) {
	for {
		left := 2*i + 1
		right := 2*i + 2
		smallest := i

		if left < len(h.items) && h.items[left].dist < h.items[smallest].dist {
			smallest = left
		}
		if right < len(h.items) && h.items[right].dist < h.items[smallest].dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
