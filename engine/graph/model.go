// Package graph provides Neo4j operations over the compound knowledge graph.
// The graph links chemical compounds to related compounds (isomers,
// derivatives, members of the same class) and feeds optional context
// enrichment during answer generation.
package graph

// Compound is a chemical compound node.
type Compound struct {
	ID    string `json:"id"`    // Wikidata entity id, e.g. Q2270
	Name  string `json:"name"`  // e.g. Benzene
	Class string `json:"class"` // e.g. aromatic hydrocarbon
}

// Relation types between compounds.
const (
	RelRelatedTo    = "RELATED_TO"
	RelDerivativeOf = "DERIVATIVE_OF"
	RelIsomerOf     = "ISOMER_OF"
)

// Relation is a typed edge between two compounds.
type Relation struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}
