package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/soundprediction/pathrag/pkg/types"
)

// nodeLinkDocument is the on-disk layout of graph_<namespace>.json.
type nodeLinkDocument struct {
	Directed   bool           `json:"directed"`
	Multigraph bool           `json:"multigraph"`
	Graph      map[string]any `json:"graph"`
	Nodes      []types.Node   `json:"nodes"`
	Links      []types.Edge   `json:"links"`
}

// MemoryStore is a directed property graph held in memory.
type MemoryStore struct {
	namespace string
	path      string // empty for a store that is never written to disk
	logger    *slog.Logger

	mu     sync.RWMutex
	nodes  map[string]types.Node
	out    map[string]map[string]types.Edge // source -> target -> edge
	in     map[string]map[string]struct{}   // target -> sources
	closed bool
}

var _ storage.GraphStorage = (*MemoryStore)(nil)

// NewMemoryStore loads graph_<namespace>.json from workingDir if present.
func NewMemoryStore(workingDir, namespace string, logger *slog.Logger) (*MemoryStore, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := newMemoryStore(namespace, logger)
	s.path = storage.NamespacePath(workingDir, storage.KindGraphJSON, namespace, ".json")

	var doc nodeLinkDocument
	found, err := storage.ReadJSONFile(s.path, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph namespace %s: %w", namespace, err)
	}
	if found {
		skipped := s.load(doc.Nodes, doc.Links)
		if skipped > 0 {
			s.logger.Warn("Skipped edges with missing endpoints while loading graph", "skipped", skipped)
		}
	}
	s.logger.Info("Loaded graph", "nodes", len(s.nodes), "edges", s.edgeCountLocked())
	return s, nil
}

func newMemoryStore(namespace string, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		namespace: namespace,
		logger:    logger.With("namespace", namespace, "store", "graph"),
		nodes:     make(map[string]types.Node),
		out:       make(map[string]map[string]types.Edge),
		in:        make(map[string]map[string]struct{}),
	}
}

// load replaces the graph contents. It returns the number of edges dropped
// because an endpoint was missing.
func (s *MemoryStore) load(nodes []types.Node, edges []types.Edge) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[string]types.Node, len(nodes))
	s.out = make(map[string]map[string]types.Edge)
	s.in = make(map[string]map[string]struct{})
	for _, n := range nodes {
		s.nodes[n.ID] = n
	}
	skipped := 0
	for _, e := range edges {
		if _, ok := s.nodes[e.Source]; !ok {
			skipped++
			continue
		}
		if _, ok := s.nodes[e.Target]; !ok {
			skipped++
			continue
		}
		s.putEdgeLocked(e.WithDefaults())
	}
	return skipped
}

func (s *MemoryStore) putEdgeLocked(e types.Edge) {
	targets, ok := s.out[e.Source]
	if !ok {
		targets = make(map[string]types.Edge)
		s.out[e.Source] = targets
	}
	targets[e.Target] = e

	sources, ok := s.in[e.Target]
	if !ok {
		sources = make(map[string]struct{})
		s.in[e.Target] = sources
	}
	sources[e.Source] = struct{}{}
}

func (s *MemoryStore) edgeCountLocked() int {
	count := 0
	for _, targets := range s.out {
		count += len(targets)
	}
	return count
}

func (s *MemoryStore) degreeLocked(id string) int {
	return len(s.out[id]) + len(s.in[id])
}

func (s *MemoryStore) rlock() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return storage.ErrClosed
	}
	return nil
}

func (s *MemoryStore) lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return storage.ErrClosed
	}
	return nil
}

func (s *MemoryStore) checkOpen() error {
	if err := s.rlock(); err != nil {
		return err
	}
	s.mu.RUnlock()
	return nil
}

// HasNode reports whether id is in the graph.
func (s *MemoryStore) HasNode(ctx context.Context, id string) (bool, error) {
	if err := s.rlock(); err != nil {
		return false, err
	}
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok, nil
}

// HasEdge reports whether the directed edge source -> target exists.
func (s *MemoryStore) HasEdge(ctx context.Context, source, target string) (bool, error) {
	if err := s.rlock(); err != nil {
		return false, err
	}
	defer s.mu.RUnlock()
	_, ok := s.out[source][target]
	return ok, nil
}

// GetNode returns a copy of the node. The boolean is false when id is absent.
func (s *MemoryStore) GetNode(ctx context.Context, id string) (*types.Node, bool, error) {
	if err := s.rlock(); err != nil {
		return nil, false, err
	}
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, false, nil
	}
	return &n, true, nil
}

// GetEdge returns a copy of the directed edge source -> target. The boolean
// is false when the edge is absent.
func (s *MemoryStore) GetEdge(ctx context.Context, source, target string) (*types.Edge, bool, error) {
	if err := s.rlock(); err != nil {
		return nil, false, err
	}
	defer s.mu.RUnlock()
	e, ok := s.out[source][target]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

// NodeDegree returns 0 for an absent node.
func (s *MemoryStore) NodeDegree(ctx context.Context, id string) (int, error) {
	if err := s.rlock(); err != nil {
		return 0, err
	}
	defer s.mu.RUnlock()
	return s.degreeLocked(id), nil
}

// EdgeDegree returns the sum of the degrees of both endpoints.
func (s *MemoryStore) EdgeDegree(ctx context.Context, source, target string) (int, error) {
	if err := s.rlock(); err != nil {
		return 0, err
	}
	defer s.mu.RUnlock()
	return s.degreeLocked(source) + s.degreeLocked(target), nil
}

// GetNodeEdges returns every edge incident to id in stored orientation:
// outgoing edges first, then incoming, each sorted by the other endpoint.
func (s *MemoryStore) GetNodeEdges(ctx context.Context, id string) ([]types.EdgePair, bool, error) {
	if err := s.rlock(); err != nil {
		return nil, false, err
	}
	defer s.mu.RUnlock()
	if _, ok := s.nodes[id]; !ok {
		return nil, false, nil
	}

	pairs := make([]types.EdgePair, 0, s.degreeLocked(id))
	for _, tgt := range sortedKeys(s.out[id]) {
		pairs = append(pairs, s.out[id][tgt].Pair())
	}
	for _, src := range sortedKeys(s.in[id]) {
		if src == id {
			continue // self-loop already listed as outgoing
		}
		pairs = append(pairs, types.EdgePair{Source: src, Target: id})
	}
	return pairs, true, nil
}

// Neighbors returns the sorted ids adjacent to id in either direction.
func (s *MemoryStore) Neighbors(ctx context.Context, id string) ([]string, error) {
	if err := s.rlock(); err != nil {
		return nil, err
	}
	defer s.mu.RUnlock()
	return s.neighborsLocked(id), nil
}

func (s *MemoryStore) neighborsLocked(id string) []string {
	seen := make(map[string]struct{}, s.degreeLocked(id))
	for tgt := range s.out[id] {
		seen[tgt] = struct{}{}
	}
	for src := range s.in[id] {
		seen[src] = struct{}{}
	}
	return sortedKeys(seen)
}

// UpsertNode creates the node or replaces all of its attributes.
func (s *MemoryStore) UpsertNode(ctx context.Context, node types.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.nodes[node.ID] = node
	return nil
}

// UpsertEdge creates the edge or replaces all of its attributes. A zero
// weight is stored as the default weight.
func (s *MemoryStore) UpsertEdge(ctx context.Context, edge types.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if err := s.checkEndpointsLocked(edge); err != nil {
		return err
	}
	s.putEdgeLocked(edge.WithDefaults())
	return nil
}

func (s *MemoryStore) checkEndpointsLocked(edge types.Edge) error {
	for _, id := range []string{edge.Source, edge.Target} {
		if _, ok := s.nodes[id]; !ok {
			return fmt.Errorf("%w: node %q (edge %s -> %s)", storage.ErrMissingEndpoint, id, edge.Source, edge.Target)
		}
	}
	return nil
}

// DeleteNode removes id and every incident edge. An absent node is logged
// and ignored.
func (s *MemoryStore) DeleteNode(ctx context.Context, id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		s.logger.Warn(fmt.Sprintf("Node %s not found in the graph for deletion.", id), "node", id)
		return nil
	}

	for tgt := range s.out[id] {
		delete(s.in[tgt], id)
		if len(s.in[tgt]) == 0 {
			delete(s.in, tgt)
		}
	}
	for src := range s.in[id] {
		delete(s.out[src], id)
		if len(s.out[src]) == 0 {
			delete(s.out, src)
		}
	}
	delete(s.out, id)
	delete(s.in, id)
	delete(s.nodes, id)

	s.logger.Info("Deleted node", "node", id)
	return nil
}

// NodeCount returns the number of nodes.
func (s *MemoryStore) NodeCount(ctx context.Context) (int, error) {
	if err := s.rlock(); err != nil {
		return 0, err
	}
	defer s.mu.RUnlock()
	return len(s.nodes), nil
}

// EdgeCount returns the number of directed edges.
func (s *MemoryStore) EdgeCount(ctx context.Context) (int, error) {
	if err := s.rlock(); err != nil {
		return 0, err
	}
	defer s.mu.RUnlock()
	return s.edgeCountLocked(), nil
}

// Nodes returns every node sorted by id.
func (s *MemoryStore) Nodes(ctx context.Context) ([]types.Node, error) {
	if err := s.rlock(); err != nil {
		return nil, err
	}
	defer s.mu.RUnlock()
	return s.nodesLocked(), nil
}

func (s *MemoryStore) nodesLocked() []types.Node {
	nodes := make([]types.Node, 0, len(s.nodes))
	for _, id := range sortedKeys(s.nodes) {
		nodes = append(nodes, s.nodes[id])
	}
	return nodes
}

// Edges returns every edge sorted by (source, target).
func (s *MemoryStore) Edges(ctx context.Context) ([]types.Edge, error) {
	if err := s.rlock(); err != nil {
		return nil, err
	}
	defer s.mu.RUnlock()
	return s.edgesLocked(), nil
}

func (s *MemoryStore) edgesLocked() []types.Edge {
	edges := make([]types.Edge, 0, s.edgeCountLocked())
	for _, src := range sortedKeys(s.out) {
		targets := s.out[src]
		for _, tgt := range sortedKeys(targets) {
			edges = append(edges, targets[tgt])
		}
	}
	return edges
}

// ConnectedComponents returns the weakly connected components, each sorted,
// largest first. Isolated nodes form their own component.
func (s *MemoryStore) ConnectedComponents(ctx context.Context) ([][]string, error) {
	if err := s.rlock(); err != nil {
		return nil, err
	}
	defer s.mu.RUnlock()

	visited := make(map[string]bool, len(s.nodes))
	var components [][]string
	for _, start := range sortedKeys(s.nodes) {
		if visited[start] {
			continue
		}
		var component []string
		queue := []string{start}
		visited[start] = true
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			component = append(component, id)
			for _, next := range s.neighborsLocked(id) {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		sort.Strings(component)
		components = append(components, component)
	}

	sort.SliceStable(components, func(i, j int) bool {
		return len(components[i]) > len(components[j])
	})
	return components, nil
}

// Clusters groups nodes into communities by label propagation over the
// undirected view of the graph.
func (s *MemoryStore) Clusters(ctx context.Context) ([][]string, error) {
	if err := s.rlock(); err != nil {
		return nil, err
	}
	projection := make(map[string]map[string]int, len(s.nodes))
	for id := range s.nodes {
		counts := make(map[string]int)
		for tgt := range s.out[id] {
			counts[tgt]++
		}
		for src := range s.in[id] {
			counts[src]++
		}
		projection[id] = counts
	}
	s.mu.RUnlock()

	return labelPropagation(projection), nil
}

// IndexDoneCallback writes the node-link document to disk.
func (s *MemoryStore) IndexDoneCallback(ctx context.Context) error {
	if err := s.rlock(); err != nil {
		return err
	}
	defer s.mu.RUnlock()
	if s.path == "" {
		return nil
	}

	doc := nodeLinkDocument{
		Directed: true,
		Graph:    map[string]any{},
		Nodes:    s.nodesLocked(),
		Links:    s.edgesLocked(),
	}
	if err := storage.WriteJSONFile(s.path, doc); err != nil {
		return fmt.Errorf("failed to persist graph namespace %s: %w", s.namespace, err)
	}
	s.logger.Debug("Persisted graph", "nodes", len(doc.Nodes), "edges", len(doc.Links))
	return nil
}

// Close releases the store. Unflushed changes are not written; call
// IndexDoneCallback first.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Namespace returns the namespace the store is bound to.
func (s *MemoryStore) Namespace() string {
	return s.namespace
}

// Stats summarizes the graph.
func (s *MemoryStore) Stats(ctx context.Context) (*storage.GraphStats, error) {
	components, err := s.ConnectedComponents(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.rlock(); err != nil {
		return nil, err
	}
	defer s.mu.RUnlock()
	return &storage.GraphStats{
		Namespace:  s.namespace,
		Backend:    "memory",
		NodeCount:  len(s.nodes),
		EdgeCount:  s.edgeCountLocked(),
		Components: len(components),
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
