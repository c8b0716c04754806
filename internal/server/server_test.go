// Integration tests for the PromptService gRPC server
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/promptvault/internal/logger"
	"github.com/nainya/promptvault/internal/metrics"
	"github.com/nainya/promptvault/pkg/diff"
	"github.com/nainya/promptvault/pkg/prompt"
	"github.com/nainya/promptvault/pkg/template"
	"github.com/nainya/promptvault/pkg/version"
)

const bufSize = 1024 * 1024

type testEnv struct {
	server  *Server
	client  *Client
	conn    *grpc.ClientConn
	metrics *metrics.Metrics
}

func setupTestServer(t *testing.T, retention int) *testEnv {
	t.Helper()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	server := NewServer(Options{
		Metrics:        m,
		Logger:         logger.Nop(),
		Authors:        version.StaticAuthor("tester"),
		RetentionLimit: func() int { return retention },
	})

	lis := bufconn.Listen(bufSize)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(GrpcMetricsInterceptor(m, logger.Nop())))
	RegisterPromptServiceServer(grpcServer, server)

	go func() {
		// Serve returns when the test stops the server
		_ = grpcServer.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		grpcServer.Stop()
		lis.Close()
	})

	return &testEnv{server: server, client: NewClient(conn), conn: conn, metrics: m}
}

func TestExtractPlaceholders(t *testing.T) {
	env := setupTestServer(t, 50)
	ctx := context.Background()

	resp, err := env.client.ExtractPlaceholders(ctx, &ExtractRequest{
		Template: "Write a {tone:formal|casual} note to {name} about {topic}, {name}.",
	})
	require.NoError(t, err)

	require.Len(t, resp.Placeholders, 3)
	assert.Equal(t, Placeholder{
		Key:     "tone",
		Kind:    "enumeration",
		Options: []string{"formal", "casual"},
		Syntax:  "{tone:formal|casual}",
	}, resp.Placeholders[0])
	assert.Equal(t, "name", resp.Placeholders[1].Key)
	assert.Equal(t, "text", resp.Placeholders[1].Kind)
	assert.Equal(t, "topic", resp.Placeholders[2].Key)

	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.TemplatePlaceholdersTotal))
}

func TestRenderMatchesEngine(t *testing.T) {
	env := setupTestServer(t, 50)
	ctx := context.Background()

	cases := []struct {
		template string
		values   map[string]string
	}{
		{"Hello {name}!", map[string]string{"name": "Ada"}},
		{"Hello {name}, {greeting}", map[string]string{"name": "Ada"}},
		{"{{literal}} and {x}", nil},
		{"unterminated {open", nil},
		{"{tone:formal|casual} text", map[string]string{"tone": "casual"}},
	}

	for _, tc := range cases {
		t.Run(tc.template, func(t *testing.T) {
			resp, err := env.client.Render(ctx, &RenderRequest{Template: tc.template, Values: tc.values})
			require.NoError(t, err)

			want := template.Render(tc.template, tc.values)
			assert.Equal(t, want.Rendered, resp.Rendered)
			if len(want.MissingKeys) == 0 {
				assert.Empty(t, resp.MissingKeys)
			} else {
				assert.Equal(t, want.MissingKeys, resp.MissingKeys)
			}
		})
	}
}

func TestRenderStoredPrompt(t *testing.T) {
	env := setupTestServer(t, 50)
	ctx := context.Background()

	saved, err := env.client.SavePrompt(ctx, &SavePromptRequest{
		Title:      "Greeting",
		Body:       "Hi {name}, {mood:happy|sad}",
		Parameters: []diff.Param{{Key: "name", Value: "Ada"}},
	})
	require.NoError(t, err)

	resp, err := env.client.Render(ctx, &RenderRequest{PromptID: saved.ID})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, happy", resp.Rendered)

	resp, err = env.client.Render(ctx, &RenderRequest{
		PromptID: saved.ID,
		Values:   map[string]string{"name": "Grace"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi Grace, happy", resp.Rendered)

	_, err = env.client.Render(ctx, &RenderRequest{PromptID: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRewrite(t *testing.T) {
	env := setupTestServer(t, 50)
	ctx := context.Background()

	resp, err := env.client.Rewrite(ctx, &RewriteRequest{
		Template: "Use a {tone} voice, {{not a key}}",
		Placeholders: []Placeholder{
			{Key: "tone", Kind: "enumeration", Options: []string{"warm", "dry"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Use a {tone:warm|dry} voice, {{not a key}}", resp.Template)

	_, err = env.client.Rewrite(ctx, &RewriteRequest{
		Template:     "x",
		Placeholders: []Placeholder{{Kind: "text"}},
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDiffSnapshots(t *testing.T) {
	env := setupTestServer(t, 50)
	ctx := context.Background()

	d, err := env.client.DiffSnapshots(ctx, &DiffSnapshotsRequest{
		Older: diff.Snapshot{Title: "Draft", Body: "the quick fox", Tags: []string{"AI"}},
		Newer: diff.Snapshot{Title: "Draft", Body: "the slow fox", Tags: []string{"ai", "beta"}},
	})
	require.NoError(t, err)

	assert.True(t, d.HasChanges())
	assert.Equal(t, []diff.Segment{
		{Kind: diff.Unchanged, Text: "the "},
		{Kind: diff.Removed, Text: "quick"},
		{Kind: diff.Added, Text: "slow"},
		{Kind: diff.Unchanged, Text: " fox"},
	}, d.BodySegments)
	assert.Equal(t, []string{"beta"}, d.Tags.Added)
	assert.Equal(t, []string{"ai"}, d.Tags.Unchanged)
}

func TestSavePromptCapturesRevisions(t *testing.T) {
	env := setupTestServer(t, 50)
	ctx := context.Background()

	created, err := env.client.SavePrompt(ctx, &SavePromptRequest{
		ID:    "p1",
		Title: "Summary",
		Body:  "Summarize {doc}",
		Tags:  []string{"ops"},
	})
	require.NoError(t, err)
	assert.True(t, created.Created)
	assert.True(t, created.Captured)
	require.NotNil(t, created.Revision)
	assert.True(t, created.Revision.IsMilestone)
	assert.Equal(t, "tester", created.Revision.Author)
	require.Len(t, created.Parameters, 1)
	assert.Equal(t, "doc", created.Parameters[0].Key)
	assert.Equal(t, []string{"doc"}, created.Rendered.MissingKeys)

	// Same content is not captured again
	same, err := env.client.SavePrompt(ctx, &SavePromptRequest{
		ID:    "p1",
		Title: "Summary",
		Body:  "Summarize {doc}",
		Tags:  []string{"ops"},
	})
	require.NoError(t, err)
	assert.False(t, same.Created)
	assert.False(t, same.Captured)
	assert.Nil(t, same.Revision)

	author := "ada"
	changed, err := env.client.SavePrompt(ctx, &SavePromptRequest{
		ID:     "p1",
		Title:  "Summary",
		Body:   "Summarize {doc} in {lang}",
		Tags:   []string{"ops"},
		Author: &author,
	})
	require.NoError(t, err)
	assert.True(t, changed.Captured)
	assert.Equal(t, "ada", changed.Revision.Author)
	assert.False(t, changed.Revision.IsMilestone)
	require.Len(t, changed.Parameters, 2)

	revs, err := env.client.ListRevisions(ctx, &ListRevisionsRequest{ID: "p1"})
	require.NoError(t, err)
	require.Len(t, revs.Revisions, 2)
	assert.Equal(t, changed.Revision.ID, revs.Revisions[0].ID)
	assert.Equal(t, created.Revision.ID, revs.Revisions[1].ID)
	assert.Equal(t, "Summarize {doc} in {lang}", revs.Revisions[0].Snapshot.Body)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PromptsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CapturesSkippedTotal))
}

func TestConcurrentSavesToOnePrompt(t *testing.T) {
	env := setupTestServer(t, 50)
	ctx := context.Background()

	const writers = 16
	start := make(chan struct{})
	responses := make([]*SavePromptResponse, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			responses[i], errs[i] = env.client.SavePrompt(ctx, &SavePromptRequest{
				ID:    "shared",
				Title: "t",
				Body:  fmt.Sprintf("version {v%d}", i),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	created := 0
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i], "writer %d", i)
		assert.True(t, responses[i].Captured, "writer %d", i)
		if responses[i].Created {
			created++
			assert.True(t, responses[i].Revision.IsMilestone)
		}
	}
	assert.Equal(t, 1, created)

	err := env.server.prompts.View("shared", func(p *prompt.Prompt) error {
		latest := env.server.revisions.Latest(p.Revisions)
		require.NotNil(t, latest)
		assert.True(t, latest.Snapshot.Equal(p.Snapshot()))
		assert.Equal(t, writers, p.Revisions.Len())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PromptsTotal))
}

func TestSavePromptRequiresContent(t *testing.T) {
	env := setupTestServer(t, 50)

	_, err := env.client.SavePrompt(context.Background(), &SavePromptRequest{ID: "p1"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestSavePromptRetention(t *testing.T) {
	env := setupTestServer(t, 2)
	ctx := context.Background()

	bodies := []string{"v0", "v1", "v2", "v3", "v4"}
	for _, b := range bodies {
		_, err := env.client.SavePrompt(ctx, &SavePromptRequest{ID: "p1", Title: "t", Body: b})
		require.NoError(t, err)
	}

	revs, err := env.client.ListRevisions(ctx, &ListRevisionsRequest{ID: "p1"})
	require.NoError(t, err)

	// Baseline milestone plus the two newest captures
	require.Len(t, revs.Revisions, 3)
	assert.Equal(t, "v4", revs.Revisions[0].Snapshot.Body)
	assert.Equal(t, "v3", revs.Revisions[1].Snapshot.Body)
	assert.Equal(t, "v0", revs.Revisions[2].Snapshot.Body)
	assert.True(t, revs.Revisions[2].IsMilestone)
}

func TestSetMilestoneAndDiffRevisions(t *testing.T) {
	env := setupTestServer(t, 50)
	ctx := context.Background()

	first, err := env.client.SavePrompt(ctx, &SavePromptRequest{ID: "p1", Title: "t", Body: "hello world"})
	require.NoError(t, err)
	second, err := env.client.SavePrompt(ctx, &SavePromptRequest{ID: "p1", Title: "t", Body: "hello there"})
	require.NoError(t, err)

	ms, err := env.client.SetMilestone(ctx, &SetMilestoneRequest{
		ID:         "p1",
		RevisionID: second.Revision.ID,
		Milestone:  true,
	})
	require.NoError(t, err)
	assert.True(t, ms.Updated)

	revs, err := env.client.ListRevisions(ctx, &ListRevisionsRequest{ID: "p1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, revs.Revisions, 1)
	assert.True(t, revs.Revisions[0].IsMilestone)

	d, err := env.client.DiffRevisions(ctx, &DiffRevisionsRequest{
		ID:              "p1",
		OlderRevisionID: first.Revision.ID,
		NewerRevisionID: second.Revision.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", diff.Join(d.BodySegments, diff.Unchanged, diff.Added))
	assert.Equal(t, "hello world", diff.Join(d.BodySegments, diff.Unchanged, diff.Removed))

	_, err = env.client.DiffRevisions(ctx, &DiffRevisionsRequest{
		ID:              "p1",
		OlderRevisionID: "nope",
		NewerRevisionID: second.Revision.ID,
	})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = env.client.SetMilestone(ctx, &SetMilestoneRequest{ID: "p1", RevisionID: "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestListAndDeletePrompts(t *testing.T) {
	env := setupTestServer(t, 50)
	ctx := context.Background()

	_, err := env.client.SavePrompt(ctx, &SavePromptRequest{ID: "a", Title: "A", Body: "a", Tags: []string{"Ops"}})
	require.NoError(t, err)
	_, err = env.client.SavePrompt(ctx, &SavePromptRequest{ID: "b", Title: "B", Body: "b"})
	require.NoError(t, err)

	all, err := env.client.ListPrompts(ctx, &ListPromptsRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Prompts, 2)

	tagged, err := env.client.ListPrompts(ctx, &ListPromptsRequest{Tag: "ops"})
	require.NoError(t, err)
	require.Len(t, tagged.Prompts, 1)
	assert.Equal(t, "a", tagged.Prompts[0].ID)

	del, err := env.client.DeletePrompt(ctx, &DeletePromptRequest{ID: "a"})
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	_, err = env.client.DeletePrompt(ctx, &DeletePromptRequest{ID: "a"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = env.client.ListRevisions(ctx, &ListRevisionsRequest{ID: "a"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PromptsTotal))
}

func TestUnknownFieldRejected(t *testing.T) {
	env := setupTestServer(t, 50)

	in, err := structpb.NewStruct(map[string]interface{}{
		"template": "hi",
		"bogus":    true,
	})
	require.NoError(t, err)

	out := new(structpb.Struct)
	err = env.conn.Invoke(context.Background(), fullMethod("Render"), in, out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(
		env.metrics.GrpcRequestsTotal.WithLabelValues(fullMethod("Render"), codes.InvalidArgument.String())))
}

func TestObservabilityEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.RecordRender(2)

	o := NewObservabilityServer(0, reg, logger.Nop())
	srv := httptest.NewServer(o.server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	o.SetReady(true)
	resp, err = http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	n, err := testutil.GatherAndCount(reg, "promptvault_template_renders_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
