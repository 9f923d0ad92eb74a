package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"instauto_backend/internal/common"
	"instauto_backend/internal/profile"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"go.uber.org/zap"
)

// OficinasIndexName is the index holding one document per oficina.
const OficinasIndexName = "oficinas"

var oficinasMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":   "text",
				"fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256}},
			},
			"slug":           map[string]interface{}{"type": "keyword"},
			"city":           map[string]interface{}{"type": "text"},
			"city_key":       map[string]interface{}{"type": "keyword"},
			"effective_plan": map[string]interface{}{"type": "keyword"},
			"updated_at":     map[string]interface{}{"type": "date"},
		},
	},
}

// Document is the indexed form of an oficina.
type Document struct {
	ID            string      `json:"-"`
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	City          string      `json:"city,omitempty"`
	CityKey       string      `json:"city_key,omitempty"`
	EffectivePlan common.Plan `json:"effective_plan"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ToDocument converts an oficina profile. The plan is the one in force at now.
func ToDocument(p *profile.Profile, now time.Time) Document {
	pub := profile.ToOficinaPublicResponse(p, now)
	doc := Document{
		ID:            p.ID,
		Name:          pub.Name,
		Slug:          pub.Slug,
		EffectivePlan: pub.Plan,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.City != nil {
		doc.City = *p.City
		doc.CityKey = cityKey(*p.City)
	}
	return doc
}

func cityKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// Index writes and queries the oficinas index.
type Index struct {
	client *elasticsearch.Client
	now    func() time.Time
	logger *zap.Logger
}

var _ profile.OficinaIndexer = (*Index)(nil)

func NewIndex(client *elasticsearch.Client, logger *zap.Logger) *Index {
	return &Index{client: client, now: time.Now, logger: logger.Named("OficinaIndex")}
}

// EnsureIndex creates the index with its mapping when missing.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{OficinasIndexName}}.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("checking index %s: %w", OficinasIndexName, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		ix.logger.Debug("Oficinas index already exists")
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("checking index %s: status %s", OficinasIndexName, res.Status())
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: OficinasIndexName,
		Body:  esutil.NewJSONReader(oficinasMapping),
	}.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", OficinasIndexName, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("creating index %s: %s", OficinasIndexName, errorReason(createRes))
	}

	ix.logger.Info("Oficinas index created", zap.String("index_name", OficinasIndexName))
	return nil
}

// IndexOficina upserts the directory entry of an oficina. Other roles are
// ignored.
func (ix *Index) IndexOficina(ctx context.Context, p *profile.Profile) error {
	if p == nil || p.Role != common.RoleOficina {
		return nil
	}
	res, err := esapi.IndexRequest{
		Index:      OficinasIndexName,
		DocumentID: p.ID,
		Body:       esutil.NewJSONReader(ToDocument(p, ix.now())),
	}.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("indexing oficina %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexing oficina %s: %s", p.ID, errorReason(res))
	}
	return nil
}

// Query selects oficinas. Text matches the name and city; City filters
// exactly, ignoring case. Pro oficinas rank first among equal matches.
type Query struct {
	Text     string
	City     string
	Page     int
	PageSize int
}

func (q Query) body() map[string]interface{} {
	boolQuery := map[string]interface{}{
		"should": []interface{}{
			map[string]interface{}{"term": map[string]interface{}{
				"effective_plan": map[string]interface{}{"value": string(common.PlanPro), "boost": 2.0},
			}},
		},
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    []string{"name^3", "city"},
				"fuzziness": "AUTO",
			}},
		}
	} else {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}
	if key := cityKey(q.City); key != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"city_key": key}},
		}
	}
	return map[string]interface{}{
		"from":  common.Offset(q.Page, q.PageSize),
		"size":  q.PageSize,
		"query": map[string]interface{}{"bool": boolQuery},
		"sort":  []interface{}{"_score", map[string]interface{}{"name.keyword": "asc"}},
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string   `json:"_id"`
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs q and returns one page of documents plus the total match count.
func (ix *Index) Search(ctx context.Context, q Query) ([]Document, int64, error) {
	if q.PageSize <= 0 {
		q.PageSize = common.DefaultPageSize
	}
	res, err := ix.client.Search(
		ix.client.Search.WithContext(ctx),
		ix.client.Search.WithIndex(OficinasIndexName),
		ix.client.Search.WithBody(esutil.NewJSONReader(q.body())),
		ix.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("searching oficinas: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("searching oficinas: %s", errorReason(res))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("decoding search response: %w", err)
	}
	docs := make([]Document, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		d := h.Source
		d.ID = h.ID
		docs = append(docs, d)
	}
	return docs, parsed.Hits.Total.Value, nil
}

func errorReason(res *esapi.Response) string {
	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.Error.Reason == "" {
		return res.Status()
	}
	return fmt.Sprintf("%s: %s: %s", res.Status(), body.Error.Type, body.Error.Reason)
}
