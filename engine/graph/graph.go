package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/examaid/examaid/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Store provides compound graph operations on top of the generic Neo4j repository.
type Store struct {
	driver    neo4j.DriverWithContext
	compounds *repo.Neo4jRepo[Compound, string]
}

// New creates a Store.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{
		driver:    driver,
		compounds: newCompoundRepo(driver),
	}
}

func newCompoundRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[Compound, string] {
	return repo.NewNeo4jRepo[Compound, string](driver, "Compound", compoundToMap, compoundFromRecord)
}

// GetCompound returns a compound by Wikidata ID.
func (s *Store) GetCompound(ctx context.Context, id string) (Compound, error) {
	return s.compounds.Get(ctx, id)
}

// SaveCompound creates or updates a compound node.
func (s *Store) SaveCompound(ctx context.Context, c Compound) error {
	return s.compounds.Save(ctx, c)
}

// SaveRelation creates or updates a typed edge between two compounds.
func (s *Store) SaveRelation(ctx context.Context, r Relation) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH (a:Compound {id: $from}), (b:Compound {id: $to})
		 MERGE (a)-[:%s]->(b)`,
		sanitizeRelType(r.Type),
	)
	_, err := sess.Run(ctx, cypher, map[string]any{"from": r.From, "to": r.To})
	return err
}

// Related returns compounds one hop away from any compound whose name
// matches one of the given terms (case-insensitive).
func (s *Store) Related(ctx context.Context, terms []string) ([]Compound, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}

	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (c:Compound)--(n:Compound)
		WHERE toLower(c.name) IN $terms AND NOT toLower(n.name) IN $terms
		RETURN DISTINCT n`
	result, err := sess.Run(ctx, cypher, map[string]any{"terms": lowered})
	if err != nil {
		return nil, fmt.Errorf("graph: related: %w", err)
	}

	var out []Compound
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "n")
		if err != nil {
			continue
		}
		out = append(out, compoundFromProps(node.Props))
	}
	return out, nil
}

func compoundToMap(c Compound) map[string]any {
	return map[string]any{
		"id":    c.ID,
		"name":  c.Name,
		"class": c.Class,
	}
}

func compoundFromRecord(rec *neo4j.Record) (Compound, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Compound{}, err
	}
	return compoundFromProps(node.Props), nil
}

func compoundFromProps(props map[string]any) Compound {
	return Compound{
		ID:    strProp(props, "id"),
		Name:  strProp(props, "name"),
		Class: strProp(props, "class"),
	}
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

// sanitizeRelType keeps relation types to a safe identifier charset since
// they are interpolated into cypher.
func sanitizeRelType(t string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(t) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return RelRelatedTo
	}
	return b.String()
}
