package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/examaid/examaid/engine/domain"
	"github.com/examaid/examaid/engine/graph"
	"github.com/examaid/examaid/engine/retrieve"
)

// --- mocks ---

type mockRetriever struct {
	hits  map[string][]retrieve.Hit // keyed by collection name
	errs  map[string]error
	calls []string
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, col domain.Collection) ([]retrieve.Hit, error) {
	m.calls = append(m.calls, col.Name)
	if err := m.errs[col.Name]; err != nil {
		return nil, err
	}
	return m.hits[col.Name], nil
}

type mockGenerator struct {
	reply       string
	err         error
	calls       int
	lastContext string
	lastQ       string
}

func (m *mockGenerator) Generate(_ context.Context, question, contextText string) (string, error) {
	m.calls++
	m.lastQ = question
	m.lastContext = contextText
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type mockEnricher struct {
	compounds []graph.Compound
	err       error
	lastTerms []string
}

func (m *mockEnricher) Related(_ context.Context, terms []string) ([]graph.Compound, error) {
	m.lastTerms = terms
	if m.err != nil {
		return nil, m.err
	}
	return m.compounds, nil
}

func opts() Options {
	o := DefaultOptions()
	o.TextCollection = domain.Collection{Name: "study_text", TopK: 3, ScoreThreshold: 0.25}
	o.ImageCollection = domain.Collection{Name: "study_images", TopK: 1, ScoreThreshold: 0.15}
	return o
}

func textHit(name, content string, score float32) retrieve.Hit {
	return retrieve.Hit{Score: score, Type: domain.PointTypeText, Content: content, CompoundName: name}
}

func imageHit(name, path string, score float32) retrieve.Hit {
	return retrieve.Hit{Score: score, Type: domain.PointTypeImage, CompoundName: name, ImagePath: path}
}

// --- Answer ---

func TestAnswer_Success(t *testing.T) {
	ret := &mockRetriever{hits: map[string][]retrieve.Hit{
		"study_text": {
			textHit("Aspirin", "Aspirin is acetylsalicylic acid.", 0.91),
			textHit("Ibuprofen", "Ibuprofen is an NSAID.", 0.34567),
		},
		"study_images": {
			imageHit("Aspirin", "https://img.example/aspirin.png", 0.42),
		},
	}}
	gen := &mockGenerator{reply: "Aspirin is a common analgesic."}

	svc := New(ret, gen, nil, opts(), nil)
	res, err := svc.Answer(context.Background(), "What is aspirin?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KindAnswered {
		t.Fatalf("expected answered, got %s", res.Kind)
	}
	if res.Answer != "Aspirin is a common analgesic." {
		t.Errorf("unexpected answer: %s", res.Answer)
	}
	if len(res.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(res.Sources))
	}
	if res.Sources[0].Compound != "Aspirin" || res.Sources[0].Score != 0.91 {
		t.Errorf("unexpected first source: %+v", res.Sources[0])
	}
	// Scores are rounded to three decimals.
	if res.Sources[1].Score != 0.346 {
		t.Errorf("expected rounded score 0.346, got %v", res.Sources[1].Score)
	}
	if len(res.Images) != 1 || res.Images[0].ImageURL != "https://img.example/aspirin.png" {
		t.Errorf("unexpected images: %+v", res.Images)
	}
	if gen.calls != 1 {
		t.Errorf("expected 1 generation call, got %d", gen.calls)
	}
}

func TestAnswer_ContextJoinsHitsInOrder(t *testing.T) {
	ret := &mockRetriever{hits: map[string][]retrieve.Hit{
		"study_text": {
			textHit("A", "first chunk", 0.9),
			textHit("B", "second chunk", 0.8),
		},
	}}
	gen := &mockGenerator{reply: "ok"}

	svc := New(ret, gen, nil, opts(), nil)
	if _, err := svc.Answer(context.Background(), "question about chunks"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "first chunk\n\nsecond chunk"
	if gen.lastContext != want {
		t.Errorf("context = %q, want %q", gen.lastContext, want)
	}
	if gen.lastQ != "question about chunks" {
		t.Errorf("question not forwarded: %q", gen.lastQ)
	}
}

func TestAnswer_NoMaterial(t *testing.T) {
	ret := &mockRetriever{hits: map[string][]retrieve.Hit{}}
	gen := &mockGenerator{reply: "should not be called"}

	svc := New(ret, gen, nil, opts(), nil)
	res, err := svc.Answer(context.Background(), "What is unobtainium?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KindNoMaterial {
		t.Fatalf("expected no_material, got %s", res.Kind)
	}
	if res.Answer != NoMaterialAnswer {
		t.Errorf("unexpected answer: %s", res.Answer)
	}
	if gen.calls != 0 {
		t.Errorf("generator must not be called on empty retrieval, got %d calls", gen.calls)
	}
	if res.Sources == nil || res.Images == nil {
		t.Error("sources and images must be empty slices, not nil")
	}
}

func TestAnswer_ImagesOnly(t *testing.T) {
	ret := &mockRetriever{hits: map[string][]retrieve.Hit{
		"study_images": {imageHit("Benzene", "https://img.example/benzene.png", 0.31)},
	}}
	gen := &mockGenerator{reply: "should not be called"}

	svc := New(ret, gen, nil, opts(), nil)
	res, err := svc.Answer(context.Background(), "Show me the structure of benzene")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KindImagesOnly {
		t.Fatalf("expected images_only, got %s", res.Kind)
	}
	if res.Answer != ImagesOnlyAnswer {
		t.Errorf("unexpected answer: %s", res.Answer)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called when only images matched")
	}
	if len(res.Images) != 1 || res.Images[0].Compound != "Benzene" {
		t.Errorf("unexpected images: %+v", res.Images)
	}
	if len(res.Sources) != 0 {
		t.Errorf("expected no sources, got %+v", res.Sources)
	}
}

func TestAnswer_RetrievalFailureDegrades(t *testing.T) {
	ret := &mockRetriever{errs: map[string]error{
		"study_text": domain.ErrRetrievalUnavailable,
	}}
	gen := &mockGenerator{reply: "should not be called"}

	svc := New(ret, gen, nil, opts(), nil)
	res, err := svc.Answer(context.Background(), "What is aspirin?")
	if err != nil {
		t.Fatalf("degraded result must not surface an error: %v", err)
	}
	if res.Kind != KindDegraded {
		t.Fatalf("expected degraded, got %s", res.Kind)
	}
	if res.Answer != DegradedAnswer {
		t.Errorf("unexpected answer: %s", res.Answer)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called after retrieval failure")
	}
}

func TestAnswer_ImageRetrievalFailureDegrades(t *testing.T) {
	ret := &mockRetriever{
		hits: map[string][]retrieve.Hit{
			"study_text": {textHit("A", "text", 0.9)},
		},
		errs: map[string]error{"study_images": errors.New("qdrant down")},
	}
	gen := &mockGenerator{reply: "nope"}

	svc := New(ret, gen, nil, opts(), nil)
	res, err := svc.Answer(context.Background(), "What is aspirin?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KindDegraded {
		t.Fatalf("expected degraded, got %s", res.Kind)
	}
}

func TestAnswer_GenerationFailureDegrades(t *testing.T) {
	ret := &mockRetriever{hits: map[string][]retrieve.Hit{
		"study_text": {textHit("A", "text", 0.9)},
	}}
	gen := &mockGenerator{err: domain.ErrGenerationUnavailable}

	svc := New(ret, gen, nil, opts(), nil)
	res, err := svc.Answer(context.Background(), "What is aspirin?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KindDegraded {
		t.Fatalf("expected degraded, got %s", res.Kind)
	}
	if res.Answer != DegradedAnswer {
		t.Errorf("unexpected answer: %s", res.Answer)
	}
}

func TestAnswer_EmptyQuestionRejected(t *testing.T) {
	svc := New(&mockRetriever{}, &mockGenerator{}, nil, opts(), nil)
	if _, err := svc.Answer(context.Background(), "   "); !errors.Is(err, domain.ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
}

func TestAnswer_ImagesDisabled(t *testing.T) {
	ret := &mockRetriever{hits: map[string][]retrieve.Hit{
		"study_text": {textHit("A", "text", 0.9)},
	}}
	gen := &mockGenerator{reply: "ok"}

	o := opts()
	o.ImageCollection = domain.Collection{}
	svc := New(ret, gen, nil, o, nil)
	res, err := svc.Answer(context.Background(), "What is aspirin?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KindAnswered {
		t.Fatalf("expected answered, got %s", res.Kind)
	}
	for _, c := range ret.calls {
		if c == "" || c == "study_images" {
			t.Fatalf("image collection must not be queried when disabled, calls %v", ret.calls)
		}
	}
}

// --- graph enrichment ---

func TestAnswer_GraphEnrichment(t *testing.T) {
	ret := &mockRetriever{hits: map[string][]retrieve.Hit{
		"study_text": {textHit("Ethanol", "Ethanol is an alcohol.", 0.8)},
	}}
	gen := &mockGenerator{reply: "ok"}
	enr := &mockEnricher{compounds: []graph.Compound{
		{ID: "c1", Name: "Methanol", Class: "alcohol"},
		{ID: "c2", Name: "Propanol"},
	}}

	o := opts()
	o.UseGraph = true
	svc := New(ret, gen, enr, o, nil)
	if _, err := svc.Answer(context.Background(), "Tell me about ethanol reactions"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gen.lastContext, "Ethanol is an alcohol.") {
		t.Error("retrieved text missing from context")
	}
	if !strings.Contains(gen.lastContext, "Methanol (alcohol)") {
		t.Errorf("expected enrichment line, got %q", gen.lastContext)
	}
	if !strings.Contains(gen.lastContext, "- Propanol") {
		t.Errorf("expected class-less enrichment line, got %q", gen.lastContext)
	}
	found := false
	for _, term := range enr.lastTerms {
		if term == "ethanol" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected keyword ethanol in %v", enr.lastTerms)
	}
}

func TestAnswer_GraphFailureSkipped(t *testing.T) {
	ret := &mockRetriever{hits: map[string][]retrieve.Hit{
		"study_text": {textHit("A", "text", 0.9)},
	}}
	gen := &mockGenerator{reply: "ok"}
	enr := &mockEnricher{err: errors.New("neo4j down")}

	o := opts()
	o.UseGraph = true
	svc := New(ret, gen, enr, o, nil)
	res, err := svc.Answer(context.Background(), "What is aspirin?")
	if err != nil {
		t.Fatalf("graph failure must not fail the query: %v", err)
	}
	if res.Kind != KindAnswered {
		t.Fatalf("expected answered, got %s", res.Kind)
	}
	if gen.lastContext != "text" {
		t.Errorf("expected bare retrieval context, got %q", gen.lastContext)
	}
}

// --- helpers ---

func TestRound3(t *testing.T) {
	cases := []struct {
		in   float32
		want float64
	}{
		{0.34567, 0.346},
		{0.25, 0.25},
		{0.9999, 1},
		{0, 0},
	}
	for _, tc := range cases {
		if got := round3(tc.in); got != tc.want {
			t.Errorf("round3(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	kw := extractKeywords("What is the boiling point of ethanol?")
	kwMap := map[string]bool{}
	for _, k := range kw {
		kwMap[k] = true
	}
	for _, want := range []string{"boiling", "point", "ethanol"} {
		if !kwMap[want] {
			t.Errorf("expected keyword %q in %v", want, kw)
		}
	}
	if kwMap["what"] || kwMap["the"] {
		t.Errorf("stop words not filtered: %v", kw)
	}
}

func TestExtractKeywords_AllStopWords(t *testing.T) {
	if kw := extractKeywords("what is the of in for on"); len(kw) != 0 {
		t.Errorf("expected no keywords, got %v", kw)
	}
}
