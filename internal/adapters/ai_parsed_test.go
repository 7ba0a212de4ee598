package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careercrawl/orchestrator/internal/fetcher"
	"github.com/careercrawl/orchestrator/internal/llm"
	"github.com/careercrawl/orchestrator/internal/models"
)

type fakeExtractor struct {
	response string
	err      error
}

func (f *fakeExtractor) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	return f.response, f.err
}

const samplePage = `<html><head><script>evil()</script></head><body><nav>menu</nav><h1>Careers</h1><p>Engineer role in Austin</p><footer>copyright</footer></body></html>`

func TestAIParsedAdapter_ParsesStrictJSONArray(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://co.example/careers": samplePage,
	}}
	extractor := &fakeExtractor{response: `[{"title":"Engineer","url":"https://co.example/j/1","location":"Austin"}]`}

	a := &AIParsedAdapter{fetcher: f, extractor: extractor}
	company := models.Company{CareerEndpoint: "https://co.example/careers"}

	postings, err := a.ListJobs(context.Background(), company)
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal(t, "Engineer", postings[0].Title)
	assert.Equal(t, "Austin", postings[0].Location)
}

func TestAIParsedAdapter_ToleratesCodeFence(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://co.example/careers": samplePage,
	}}
	extractor := &fakeExtractor{response: "```json\n[{\"title\":\"Engineer\",\"url\":\"https://co.example/j/1\"}]\n```"}

	a := &AIParsedAdapter{fetcher: f, extractor: extractor}
	company := models.Company{CareerEndpoint: "https://co.example/careers"}

	postings, err := a.ListJobs(context.Background(), company)
	require.NoError(t, err)
	require.Len(t, postings, 1)
}

func TestAIParsedAdapter_MalformedShapeYieldsError(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://co.example/careers": samplePage,
	}}
	extractor := &fakeExtractor{response: `{"not": "an array"}`}

	a := &AIParsedAdapter{fetcher: f, extractor: extractor}
	company := models.Company{CareerEndpoint: "https://co.example/careers"}

	postings, err := a.ListJobs(context.Background(), company)
	require.Error(t, err)
	assert.Empty(t, postings)
}

func TestStripBoilerplate_RemovesNonContentElements(t *testing.T) {
	text, err := stripBoilerplate([]byte(samplePage))
	require.NoError(t, err)
	assert.Contains(t, text, "Engineer role in Austin")
	assert.NotContains(t, text, "evil()")
	assert.NotContains(t, text, "menu")
	assert.NotContains(t, text, "copyright")
}

func TestForKind_SelectsRightAdapter(t *testing.T) {
	f := &fakeFetcher{}
	extractor := &fakeExtractor{}

	assert.IsType(t, &StructuredAAdapter{}, ForKind(models.AdapterStructuredA, f, extractor))
	assert.IsType(t, &StructuredBAdapter{}, ForKind(models.AdapterStructuredB, f, extractor))
	assert.IsType(t, &AIParsedAdapter{}, ForKind(models.AdapterAIParsed, f, extractor))
}
