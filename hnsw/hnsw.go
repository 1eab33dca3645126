// Package hnsw implements the Hierarchical Navigable Small World (HNSW) graph
// for approximate nearest neighbor search.
//
// The graph is a flat slice of nodes addressed by dense uint32 slot indices.
// Each node owns its vector and keeps per-layer neighbor lists bounded by the
// configured degree limits (M above layer 0, M0 at layer 0). Slots are
// assigned in insertion order and stay stable for the lifetime of the index;
// there is no delete operation. Removing a vector's influence requires
// rebuilding the whole index from the surviving vectors, which is what the
// database layer does on mutation.
package hnsw

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/hupe1980/vektor/metric"
)

const (
	// layerNormalizationBase is the base constant for the exponential layer
	// probability distribution.
	layerNormalizationBase = 1.0

	// minimumM is the minimum valid value for M.
	minimumM = 2

	// DefaultM is the default number of bidirectional links above layer 0.
	DefaultM = 12

	// DefaultM0 is the default number of bidirectional links at layer 0.
	DefaultM0 = 24

	// DefaultEFConstruction is the default size of the dynamic candidate
	// list during insertion.
	DefaultEFConstruction = 200
)

// Options represents the options for configuring the index.
type Options struct {
	// M is the maximum number of neighbors per node above layer 0.
	M int

	// M0 is the maximum number of neighbors per node at layer 0.
	// Defaults to 2*M when zero.
	M0 int

	// EFConstruction is the beam width used while inserting.
	EFConstruction int

	// RandomSeed fixes the layer-assignment RNG for reproducible graphs.
	// When nil, the index is seeded from the clock.
	RandomSeed *int64
}

// DefaultOptions contains the default options for the index.
var DefaultOptions = Options{
	M:              DefaultM,
	M0:             DefaultM0,
	EFConstruction: DefaultEFConstruction,
}

// Candidate is a search result: a slot index and its distance to the query.
type Candidate struct {
	Slot     uint32
	Distance metric.Unit
}

// node is a single graph node. layers[l] holds the neighbor slots at layer l;
// len(layers)-1 is the highest layer the node participates in.
type node struct {
	vector []float32
	layers [][]uint32
}

// Index is an HNSW proximity graph over inserted vectors.
//
// It is safe for concurrent readers; Insert must be serialized by the caller
// and must not run concurrently with Search.
type Index struct {
	metric     metric.Metric
	opts       Options
	nodes      []node
	entryPoint uint32
	maxLayer   int // -1 while the index is empty
	layerMult  float64
	rng        *rand.Rand
}

// New creates a new empty index using the given metric.
func New(m metric.Metric, optFns ...func(o *Options)) *Index {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.M < minimumM {
		opts.M = minimumM
	}
	if opts.M0 <= 0 {
		opts.M0 = 2 * opts.M
	}
	if opts.EFConstruction <= 0 {
		opts.EFConstruction = DefaultEFConstruction
	}

	var seed int64
	if opts.RandomSeed != nil {
		seed = *opts.RandomSeed
	} else {
		seed = time.Now().UnixNano()
	}

	return &Index{
		metric:    m,
		opts:      opts,
		maxLayer:  -1,
		layerMult: layerNormalizationBase / math.Log(float64(opts.M)),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Len returns the number of nodes in the index.
func (h *Index) Len() int { return len(h.nodes) }

// Vector returns the vector stored at the given slot. The returned slice is
// owned by the index and must not be modified.
func (h *Index) Vector(slot uint32) []float32 {
	return h.nodes[slot].vector
}

// randomLayer draws a node's top layer so that layer membership counts decay
// geometrically with height, keeping the graph logarithmically shallow.
func (h *Index) randomLayer() int {
	r := h.rng.Float64()
	if r == 0 {
		r = math.SmallestNonzeroFloat64
	}
	return int(math.Floor(-math.Log(r) * h.layerMult))
}

func (h *Index) maxConns(layer int) int {
	if layer == 0 {
		return h.opts.M0
	}
	return h.opts.M
}

func (h *Index) dist(v []float32, slot uint32) metric.Unit {
	return h.metric.Distance(v, h.nodes[slot].vector)
}

// Insert adds a vector to the graph and returns its slot index.
// The vector is owned by the index after the call.
func (h *Index) Insert(vector []float32) uint32 {
	slot := uint32(len(h.nodes))
	layer := h.randomLayer()

	h.nodes = append(h.nodes, node{
		vector: vector,
		layers: make([][]uint32, layer+1),
	})

	if len(h.nodes) == 1 {
		h.entryPoint = slot
		h.maxLayer = layer
		return slot
	}

	currSlot := h.entryPoint
	currDist := h.dist(vector, currSlot)

	// Greedy descent through the layers above the new node's top layer,
	// carrying the single closest node into the next layer down.
	for level := h.maxLayer; level > layer; level-- {
		currSlot, currDist = h.greedyStep(vector, currSlot, currDist, level)
	}

	// Beam search and link from the top layer of the new node down to 0.
	for level := min(layer, h.maxLayer); level >= 0; level-- {
		results := h.searchLayer(vector, currSlot, currDist, level, h.opts.EFConstruction)

		neighbors := h.selectNeighbors(vector, results, h.maxConns(level))
		h.nodes[slot].layers[level] = neighbors

		for _, nb := range neighbors {
			h.addLink(nb, slot, level)
		}

		// The nearest candidate seeds the search one layer down.
		if len(neighbors) > 0 {
			currSlot = neighbors[0]
			currDist = h.dist(vector, currSlot)
		}
	}

	if layer > h.maxLayer {
		h.maxLayer = layer
		h.entryPoint = slot
	}

	return slot
}

// greedyStep walks to the neighbor closest to v at the given layer until no
// neighbor improves on the current node.
func (h *Index) greedyStep(v []float32, currSlot uint32, currDist metric.Unit, layer int) (uint32, metric.Unit) {
	for {
		improved := false
		for _, nb := range h.neighbors(currSlot, layer) {
			d := h.dist(v, nb)
			if d < currDist || (d == currDist && nb < currSlot) {
				currSlot = nb
				currDist = d
				improved = true
			}
		}
		if !improved {
			return currSlot, currDist
		}
	}
}

func (h *Index) neighbors(slot uint32, layer int) []uint32 {
	layers := h.nodes[slot].layers
	if layer >= len(layers) {
		return nil
	}
	return layers[layer]
}

// searchLayer runs a bounded best-first search at one layer and returns a
// max-queue holding up to ef nearest candidates.
func (h *Index) searchLayer(query []float32, epSlot uint32, epDist metric.Unit, layer, ef int) *priorityQueue {
	visited := make([]bool, len(h.nodes))
	visited[epSlot] = true

	candidates := newMinQueue(ef)
	candidates.pushItem(queueItem{slot: epSlot, dist: epDist})

	results := newMaxQueue(ef)
	results.pushItem(queueItem{slot: epSlot, dist: epDist})

	for candidates.Len() > 0 {
		curr, _ := candidates.popItem()

		// The beam stops improving once the nearest unexpanded candidate
		// is farther than the worst kept result.
		if worst, ok := results.topItem(); ok && results.Len() >= ef && curr.dist > worst.dist {
			break
		}

		for _, nb := range h.neighbors(curr.slot, layer) {
			if visited[nb] {
				continue
			}
			visited[nb] = true

			d := h.dist(query, nb)
			if results.Len() < ef {
				candidates.pushItem(queueItem{slot: nb, dist: d})
				results.pushItem(queueItem{slot: nb, dist: d})
				continue
			}
			if worst, _ := results.topItem(); d < worst.dist {
				candidates.pushItem(queueItem{slot: nb, dist: d})
				results.pushItem(queueItem{slot: nb, dist: d})
				results.popItem()
			}
		}
	}

	return results
}

// drainAscending empties a max-queue into a slice ordered nearest first.
func drainAscending(results *priorityQueue) []queueItem {
	out := make([]queueItem, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = results.popItem()
	}
	return out
}

// selectNeighbors picks up to m diverse neighbors from the candidate set.
//
// A candidate is kept only if it is closer to the base vector than to every
// neighbor already selected (relative neighborhood property). This spreads
// edges across directions instead of clustering them toward one region.
// Skipped candidates backfill in distance order if the result is underfull.
func (h *Index) selectNeighbors(base []float32, results *priorityQueue, m int) []uint32 {
	candidates := drainAscending(results)

	if len(candidates) <= m {
		out := make([]uint32, len(candidates))
		for i, c := range candidates {
			out[i] = c.slot
		}
		return out
	}

	selected := make([]uint32, 0, m)
	for _, cand := range candidates {
		if len(selected) >= m {
			break
		}

		keep := true
		for _, s := range selected {
			if h.metric.Distance(h.nodes[cand.slot].vector, h.nodes[s].vector) < cand.dist {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, cand.slot)
		}
	}

	if len(selected) < m {
		for _, cand := range candidates {
			if len(selected) >= m {
				break
			}
			already := false
			for _, s := range selected {
				if s == cand.slot {
					already = true
					break
				}
			}
			if !already {
				selected = append(selected, cand.slot)
			}
		}
	}

	return selected
}

// addLink adds a backward edge target -> source, re-pruning the target's
// neighbor list with the selection heuristic if it overflows.
func (h *Index) addLink(target, source uint32, layer int) {
	conns := h.nodes[target].layers[layer]
	for _, c := range conns {
		if c == source {
			return
		}
	}

	bound := h.maxConns(layer)
	if len(conns) < bound {
		h.nodes[target].layers[layer] = append(conns, source)
		return
	}

	base := h.nodes[target].vector
	candidates := newMaxQueue(len(conns) + 1)
	for _, c := range conns {
		candidates.pushItem(queueItem{slot: c, dist: h.dist(base, c)})
	}
	candidates.pushItem(queueItem{slot: source, dist: h.dist(base, source)})

	h.nodes[target].layers[layer] = h.selectNeighbors(base, candidates, bound)
}

// Search returns up to k nodes nearest to query, ordered by ascending
// distance with ties broken by slot index. The beam width is max(ef, k).
// Fewer than k candidates are returned if the graph holds fewer nodes.
func (h *Index) Search(query []float32, k, ef int) []Candidate {
	if len(h.nodes) == 0 || k <= 0 {
		return nil
	}
	if ef < k {
		ef = k
	}

	currSlot := h.entryPoint
	currDist := h.dist(query, currSlot)

	for level := h.maxLayer; level > 0; level-- {
		currSlot, currDist = h.greedyStep(query, currSlot, currDist, level)
	}

	results := drainAscending(h.searchLayer(query, currSlot, currDist, 0, ef))

	sort.Slice(results, func(i, j int) bool {
		if results[i].dist != results[j].dist {
			return results[i].dist < results[j].dist
		}
		return results[i].slot < results[j].slot
	})

	if len(results) > k {
		results = results[:k]
	}

	out := make([]Candidate, len(results))
	for i, r := range results {
		out[i] = Candidate{Slot: r.slot, Distance: r.dist}
	}
	return out
}
