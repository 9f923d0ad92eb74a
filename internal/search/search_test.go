package search

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"instauto_backend/internal/common"
	"instauto_backend/internal/profile"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCluster answers the handful of endpoints the index uses.
type fakeCluster struct {
	mu          sync.Mutex
	indexExists bool
	docs        map[string]Document
	lastSearch  map[string]interface{}
	failBulkIDs map[string]bool
}

func newFakeCluster(t *testing.T) (*fakeCluster, *httptest.Server) {
	f := &fakeCluster{docs: map[string]Document{}, failBulkIDs: map[string]bool{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeCluster) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/":
		io.WriteString(w, `{"version":{"number":"8.18.0"},"tagline":"You Know, for Search"}`)
	case r.Method == http.MethodHead && path == "/"+OficinasIndexName:
		if !f.indexExists {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && path == "/"+OficinasIndexName:
		f.indexExists = true
		io.WriteString(w, `{"acknowledged":true}`)
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/"+OficinasIndexName+"/_doc/"):
		var d Document
		json.NewDecoder(r.Body).Decode(&d)
		f.docs[strings.TrimPrefix(path, "/"+OficinasIndexName+"/_doc/")] = d
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result":"created"}`)
	case path == "/"+OficinasIndexName+"/_search":
		f.lastSearch = map[string]interface{}{}
		json.NewDecoder(r.Body).Decode(&f.lastSearch)
		f.writeHits(w)
	case path == "/_bulk":
		f.bulk(w, r.Body)
	default:
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"type":"illegal_argument_exception","reason":"unexpected `+r.Method+` `+path+`"}}`)
	}
}

func (f *fakeCluster) writeHits(w io.Writer) {
	type hit struct {
		ID     string   `json:"_id"`
		Source Document `json:"_source"`
	}
	var hits []hit
	for id, d := range f.docs {
		hits = append(hits, hit{ID: id, Source: d})
	}
	var resp struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []hit `json:"hits"`
		} `json:"hits"`
	}
	resp.Hits.Total.Value = len(hits)
	resp.Hits.Hits = hits
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeCluster) bulk(w io.Writer, body io.Reader) {
	type result struct {
		ID     string                 `json:"_id"`
		Status int                    `json:"status"`
		Error  map[string]interface{} `json:"error,omitempty"`
	}
	var items []map[string]result
	errors := false

	sc := bufio.NewScanner(body)
	for sc.Scan() {
		var action map[string]struct {
			ID string `json:"_id"`
		}
		json.Unmarshal(sc.Bytes(), &action)
		if !sc.Scan() {
			break
		}
		id := action["index"].ID
		if f.failBulkIDs[id] {
			errors = true
			items = append(items, map[string]result{"index": {ID: id, Status: 400, Error: map[string]interface{}{"type": "mapper_parsing_exception"}}})
			continue
		}
		var d Document
		json.Unmarshal(sc.Bytes(), &d)
		f.docs[id] = d
		items = append(items, map[string]result{"index": {ID: id, Status: 201}})
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"errors": errors, "items": items})
}

func newTestIndex(t *testing.T) (*Index, *fakeCluster) {
	f, srv := newFakeCluster(t)
	client, err := NewClient(context.Background(), srv.URL, zap.NewNop())
	require.NoError(t, err)
	ix := NewIndex(client, zap.NewNop())
	ix.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return ix, f
}

func oficina(id, name, city string, plan common.Plan, expires *time.Time) profile.Profile {
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	return profile.Profile{ID: id, Name: name, Role: common.RoleOficina, City: &city, PlanType: &plan, PlanExpiresAt: expires, Slug: &slug}
}

func TestNewClient_RejectsEmptyURL(t *testing.T) {
	_, err := NewClient(context.Background(), "", zap.NewNop())
	assert.Error(t, err)
}

func TestToDocument_UsesEffectivePlan(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	p := oficina("uid-1", "Auto Center Sul", " Porto Alegre ", common.PlanPro, &past)

	doc := ToDocument(&p, now)

	assert.Equal(t, common.PlanFree, doc.EffectivePlan)
	assert.Equal(t, "porto alegre", doc.CityKey)
	assert.Equal(t, "auto-center-sul", doc.Slug)
}

func TestIndex_EnsureAndIndexOficina(t *testing.T) {
	ix, f := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.EnsureIndex(ctx))
	assert.True(t, f.indexExists)
	require.NoError(t, ix.EnsureIndex(ctx))

	p := oficina("uid-1", "Oficina do Zé", "Recife", common.PlanPro, nil)
	require.NoError(t, ix.IndexOficina(ctx, &p))
	assert.Equal(t, common.PlanPro, f.docs["uid-1"].EffectivePlan)

	motorista := profile.Profile{ID: "uid-2", Role: common.RoleMotorista}
	require.NoError(t, ix.IndexOficina(ctx, &motorista))
	assert.NotContains(t, f.docs, "uid-2")
}

func TestIndex_SearchBuildsQuery(t *testing.T) {
	ix, f := newTestIndex(t)
	ctx := context.Background()
	p := oficina("uid-1", "Oficina do Zé", "Recife", common.PlanFree, nil)
	require.NoError(t, ix.IndexOficina(ctx, &p))

	docs, total, err := ix.Search(ctx, Query{Text: "ze", City: "RECIFE", Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, docs, 1)
	assert.Equal(t, "uid-1", docs[0].ID)

	assert.EqualValues(t, 5, f.lastSearch["from"])
	assert.EqualValues(t, 5, f.lastSearch["size"])
	raw, _ := json.Marshal(f.lastSearch["query"])
	assert.Contains(t, string(raw), `"city_key":"recife"`)
	assert.Contains(t, string(raw), `"multi_match"`)
	assert.Contains(t, string(raw), `"effective_plan"`)
}

type pagedSource struct {
	all []profile.Profile
}

func (s *pagedSource) ListOficinas(ctx context.Context, city string, page, pageSize int) ([]profile.Profile, int64, error) {
	start := common.Offset(page, pageSize)
	if start >= len(s.all) {
		return nil, int64(len(s.all)), nil
	}
	end := start + pageSize
	if end > len(s.all) {
		end = len(s.all)
	}
	return s.all[start:end], int64(len(s.all)), nil
}

func TestIndex_SyncBatchesAndCountsFailures(t *testing.T) {
	ix, f := newTestIndex(t)
	source := &pagedSource{}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		source.all = append(source.all, oficina(id, "Oficina "+id, "Natal", common.PlanFree, nil))
	}
	f.failBulkIDs["d"] = true

	res, err := ix.Sync(context.Background(), source, 2, "false")

	assert.EqualError(t, err, "1 oficinas failed to sync")
	assert.Equal(t, SyncResult{Synced: 4, Failed: 1}, res)
	assert.True(t, f.indexExists)
	assert.Len(t, f.docs, 4)
}

type stubSearcher struct {
	docs []Document
	err  error
	got  Query
}

func (s *stubSearcher) Search(ctx context.Context, q Query) ([]Document, int64, error) {
	s.got = q
	return s.docs, int64(len(s.docs)), s.err
}

func TestHandler_SearchOficinas(t *testing.T) {
	gin.SetMode(gin.TestMode)
	searcher := &stubSearcher{docs: []Document{{ID: "uid-1", Name: "Oficina do Zé", Slug: "oficina-do-ze", EffectivePlan: common.PlanPro}}}
	r := gin.New()
	NewHandler(searcher, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/search/oficinas?q=ze&city=Recife&page_size=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Query{Text: "ze", City: "Recife", Page: 1, PageSize: 5}, searcher.got)
	assert.Contains(t, w.Body.String(), `"slug":"oficina-do-ze"`)
	assert.NotContains(t, w.Body.String(), "uid-1")

	searcher.err = assert.AnError
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/search/oficinas", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
