package ranker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/careercrawl/orchestrator/internal/llm"
	"github.com/careercrawl/orchestrator/internal/models"
)

func testProfile() models.UserProfile {
	return models.UserProfile{
		ResumeText: "Experienced backend engineer.",
		Skills:     []string{"Go", "Kubernetes"},
	}
}

func TestRanker_ParsesStrictJSON(t *testing.T) {
	client := &llm.FakeClient{Responses: []string{`{"score":80,"recommended":true,"summary":"great fit","pros":["go"],"cons":[],"keywords_matched":["go"]}`}}
	r := New(testProfile(), client, 2, 60, 0, arbor.NewLogger(), nil)

	job := models.Job{ID: "j1", Title: "Go Engineer"}
	annotation, err := r.Rank(context.Background(), job)
	require.NoError(t, err)
	require.NotNil(t, annotation.MatchScore)
	assert.Equal(t, 80, *annotation.MatchScore)
	assert.True(t, annotation.Recommended)
	assert.Equal(t, "great fit", annotation.Summary)
}

func TestRanker_OverridesRecommendedBelowThreshold(t *testing.T) {
	client := &llm.FakeClient{Responses: []string{`{"score":50,"recommended":true,"summary":"ok"}`}}
	r := New(testProfile(), client, 2, 60, 0, arbor.NewLogger(), nil)

	annotation, err := r.Rank(context.Background(), models.Job{ID: "j1"})
	require.NoError(t, err)
	assert.False(t, annotation.Recommended)
}

func TestRanker_MalformedResponseYieldsNeutralAnnotation(t *testing.T) {
	client := &llm.FakeClient{Responses: []string{"not json at all"}}
	r := New(testProfile(), client, 2, 60, 0, arbor.NewLogger(), nil)

	annotation, err := r.Rank(context.Background(), models.Job{ID: "j1"})
	require.NoError(t, err)
	assert.Nil(t, annotation.MatchScore)
	assert.False(t, annotation.Recommended)
	assert.Equal(t, "unavailable", annotation.Summary)
}

func TestRanker_LLMErrorYieldsNeutralAnnotation(t *testing.T) {
	client := &llm.FakeClient{Err: assert.AnError}
	r := New(testProfile(), client, 2, 60, 0, arbor.NewLogger(), nil)

	annotation, err := r.Rank(context.Background(), models.Job{ID: "j1"})
	require.NoError(t, err)
	assert.Nil(t, annotation.MatchScore)
}

func TestRanker_ToleratesCodeFence(t *testing.T) {
	client := &llm.FakeClient{Responses: []string{"```json\n{\"score\":70,\"recommended\":true}\n```"}}
	r := New(testProfile(), client, 2, 60, 0, arbor.NewLogger(), nil)

	annotation, err := r.Rank(context.Background(), models.Job{ID: "j1"})
	require.NoError(t, err)
	require.NotNil(t, annotation.MatchScore)
	assert.Equal(t, 70, *annotation.MatchScore)
}

// blockingUntilCancelClient simulates a real network client that honours
// ctx cancellation: it only returns once ctx is done, with ctx.Err().
type blockingUntilCancelClient struct{}

func (blockingUntilCancelClient) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRanker_RankerTimeoutYieldsNeutralAnnotationNotError(t *testing.T) {
	r := New(testProfile(), blockingUntilCancelClient{}, 2, 60, 10*time.Millisecond, arbor.NewLogger(), nil)

	annotation, err := r.Rank(context.Background(), models.Job{ID: "j1"})
	require.NoError(t, err)
	assert.Nil(t, annotation.MatchScore)
	assert.Equal(t, "unavailable", annotation.Summary)
}

func TestRanker_CallerCancellationStillPropagatesAsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(testProfile(), blockingUntilCancelClient{}, 2, 60, time.Hour, arbor.NewLogger(), nil)

	_, err := r.Rank(ctx, models.Job{ID: "j1"})
	assert.ErrorIs(t, err, context.Canceled)
}

// slowClient blocks until released, letting the test observe the
// semaphore's bound on in-flight concurrency.
type slowClient struct {
	release   chan struct{}
	inFlight  int32
	maxInFlight int32
}

func (s *slowClient) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	for {
		old := atomic.LoadInt32(&s.maxInFlight)
		if n <= old || atomic.CompareAndSwapInt32(&s.maxInFlight, old, n) {
			break
		}
	}
	<-s.release
	atomic.AddInt32(&s.inFlight, -1)
	return `{"score":90,"recommended":true}`, nil
}

func TestRanker_BoundsConcurrency(t *testing.T) {
	client := &slowClient{release: make(chan struct{})}
	r := New(testProfile(), client, 2, 60, 0, arbor.NewLogger(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Rank(context.Background(), models.Job{ID: "j"})
		}()
	}

	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&client.maxInFlight), int32(2))

	close(client.release)
	wg.Wait()
}
