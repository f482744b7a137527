package runtime

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// NodeSpec is one element declaration from the graph configuration file:
// an id, a class name to look up in the Registry, and an arg_string the
// class's own Configure parses.
type NodeSpec struct {
	ID        string `json:"id"`
	ClassName string `json:"class"`
	Args      string `json:"args"`
	// Thread is the declared thread assignment this element's ports run
	// on. Zero is a valid single-threaded default.
	Thread int `json:"thread"`
}

// EdgeSpec is one connection from the graph configuration file: a
// (src_id, src_port) output bound to a (dst_id, dst_port) input.
type EdgeSpec struct {
	SrcID   string `json:"src"`
	SrcPort int    `json:"src_port"`
	DstID   string `json:"dst"`
	DstPort int    `json:"dst_port"`
}

// Graph is the in-memory representation the core consumes, independent of
// whatever declarative syntax (JSON, YAML, a Click-like router file)
// produced it.
type Graph struct {
	Nodes []NodeSpec `json:"nodes"`
	Edges []EdgeSpec `json:"edges"`
}

// LoadGraph reads a node/edge list from a JSON file at path.
func LoadGraph(path string) (Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Graph{}, errors.Wrapf(err, "failed to read graph file %s", path)
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, errors.Wrapf(err, "failed to parse graph file %s", path)
	}
	return g, nil
}

// splitArgs tokenizes an arg_string by whitespace; an element's Configure
// is responsible for parsing whatever syntax it expects beyond that.
func splitArgs(argString string) []string {
	if strings.TrimSpace(argString) == "" {
		return nil
	}
	return strings.Fields(argString)
}
