package memory

import (
	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"crmgraph/domain/graph"
	"crmgraph/pkg/errors"
)

// seedFile is the TOML layout of a development dataset.
type seedFile struct {
	Nodes []seedNode `toml:"nodes"`
	Edges []seedEdge `toml:"edges"`
}

type seedNode struct {
	ID        string   `toml:"id"`
	FirstName string   `toml:"first_name"`
	LastName  string   `toml:"last_name"`
	PhotoRef  string   `toml:"photo_ref"`
	Position  *seedPos `toml:"position"`
}

type seedPos struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
}

type seedEdge struct {
	Source string `toml:"source"`
	Target string `toml:"target"`
	Label  string `toml:"label"`
}

// LoadSeed populates the store from a TOML file. Malformed edges abort
// the load so a bad fixture fails loudly at startup.
func (s *GraphStore) LoadSeed(path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var seed seedFile
	if _, err := toml.DecodeFile(path, &seed); err != nil {
		return errors.Wrapf(err, "failed to parse seed file %s", path)
	}

	for _, n := range seed.Nodes {
		node := graph.GraphNode{
			ID:        graph.NodeID(n.ID),
			FirstName: n.FirstName,
			LastName:  n.LastName,
			PhotoRef:  n.PhotoRef,
		}
		if n.Position != nil {
			node.Position = &graph.Position{X: n.Position.X, Y: n.Position.Y}
		}
		if _, err := s.AddNode(node); err != nil {
			return errors.Wrapf(err, "failed to seed node %s", n.ID)
		}
	}

	for _, e := range seed.Edges {
		if _, err := s.CreateEdge(graph.NodeID(e.Source), graph.NodeID(e.Target), e.Label); err != nil {
			return errors.Wrapf(err, "failed to seed edge %s-%s", e.Source, e.Target)
		}
	}

	logger.Info("Seeded graph store",
		zap.String("file", path),
		zap.Int("nodes", len(seed.Nodes)),
		zap.Int("edges", len(seed.Edges)),
	)
	return nil
}
