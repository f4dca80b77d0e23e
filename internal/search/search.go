// Package search answers free-text product queries, through Elasticsearch
// when configured and over the in-memory catalog otherwise.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esutil"

	"github.com/Skotchmaster/topspin/internal/catalog"
	"github.com/Skotchmaster/topspin/internal/models"
)

var ErrSearch = errors.New("search")

type Results struct {
	Total    int64            `json:"total"`
	Products []models.Product `json:"products"`
}

type Searcher interface {
	Search(ctx context.Context, query string, from, size int) (Results, error)
}

type Config struct {
	URL      string
	User     string
	Password string
	Index    string
}

func NewClient(cfg Config, l *slog.Logger) (*elasticsearch.Client, error) {
	l.Info("es_connect", "url", cfg.URL)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: new client: %w", ErrSearch, err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("%w: info: %w", ErrSearch, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("%w: info: %s: %s", ErrSearch, res.Status(), body)
	}
	return client, nil
}

type Elastic struct {
	Client *elasticsearch.Client
	Index  string
}

func NewElastic(client *elasticsearch.Client, index string) *Elastic {
	return &Elastic{Client: client, Index: index}
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "integer"},
      "name":         {"type": "text"},
      "brand":        {"type": "keyword"},
      "brandDisplay": {"type": "text"},
      "category":     {"type": "keyword"},
      "description":  {"type": "text"},
      "tags":         {"type": "text"},
      "price":        {"type": "double"},
      "rating":       {"type": "double"},
      "createdAt":    {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index when it does not exist yet.
func (e *Elastic) EnsureIndex(ctx context.Context) error {
	res, err := e.Client.Indices.Exists([]string{e.Index}, e.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: exists: %w", ErrSearch, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = e.Client.Indices.Create(e.Index,
		e.Client.Indices.Create.WithContext(ctx),
		e.Client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("%w: create index: %w", ErrSearch, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: create index: %s", ErrSearch, res.Status())
	}
	return nil
}

// IndexProducts bulk-indexes the catalog and returns how many documents
// were accepted.
func (e *Elastic) IndexProducts(ctx context.Context, products []models.Product) (int, error) {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     e.Client,
		Index:      e.Index,
		NumWorkers: 2,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: bulk indexer: %w", ErrSearch, err)
	}

	for _, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			return 0, fmt.Errorf("%w: encode product %d: %w", ErrSearch, p.ID, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: strconv.Itoa(p.ID),
			Body:       bytes.NewReader(data),
		})
		if err != nil {
			return 0, fmt.Errorf("%w: add product %d: %w", ErrSearch, p.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return 0, fmt.Errorf("%w: bulk close: %w", ErrSearch, err)
	}
	st := bi.Stats()
	if st.NumFailed > 0 {
		return int(st.NumIndexed), fmt.Errorf("%w: %d documents failed", ErrSearch, st.NumFailed)
	}
	return int(st.NumIndexed), nil
}

func queryBody(query string, from, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^3", "brandDisplay^2", "category", "description", "tags"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}
}

func (e *Elastic) Search(ctx context.Context, query string, from, size int) (Results, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(queryBody(query, from, size)); err != nil {
		return Results{}, fmt.Errorf("%w: encode query: %w", ErrSearch, err)
	}

	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(e.Index),
		e.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return Results{}, fmt.Errorf("%w: %w", ErrSearch, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return Results{}, fmt.Errorf("%w: %s", ErrSearch, res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return Results{}, fmt.Errorf("%w: decode: %w", ErrSearch, err)
	}

	prods := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		prods[i] = hit.Source
	}
	return Results{Total: r.Hits.Total.Value, Products: prods}, nil
}

// Local searches the in-memory catalog with the listing text filter,
// ranked by rating.
type Local struct {
	Catalog *catalog.Catalog
}

func (l Local) Search(_ context.Context, query string, from, size int) (Results, error) {
	q := catalog.DefaultQuery(size)
	q.Search = query
	q.Price = catalog.PriceRange{Min: 0, Max: math.MaxFloat64}
	q.Sort = catalog.SortRating

	matched := catalog.Apply(l.Catalog.All(), q)
	out := Results{Total: int64(len(matched)), Products: []models.Product{}}
	from = max(from, 0)
	if from < len(matched) {
		out.Products = matched[from:min(from+size, len(matched))]
	}
	return out, nil
}
