package hnsw

// Stats describes the shape of the graph.
type Stats struct {
	// Nodes is the number of inserted vectors.
	Nodes int

	// MaxLayer is the highest populated layer, -1 when empty.
	MaxLayer int

	// AvgDegree is the average layer-0 neighbor count.
	AvgDegree float64
}

// Stats returns current graph statistics.
func (h *Index) Stats() Stats {
	s := Stats{
		Nodes:    len(h.nodes),
		MaxLayer: h.maxLayer,
	}
	if len(h.nodes) == 0 {
		return s
	}

	total := 0
	for i := range h.nodes {
		total += len(h.nodes[i].layers[0])
	}
	s.AvgDegree = float64(total) / float64(len(h.nodes))
	return s
}
