package history

import (
	"context"

	"evbot/internal/common/database"
	apperrors "evbot/internal/common/errors"
	"evbot/internal/models"
)

var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":          map[string]interface{}{"type": "keyword"},
			"source":      map[string]interface{}{"type": "keyword"},
			"class_id":    map[string]interface{}{"type": "integer"},
			"result_type": map[string]interface{}{"type": "keyword"},
			"message":     map[string]interface{}{"type": "text"},
			"inputs":      map[string]interface{}{"type": "object", "enabled": false},
			"created_at":  map[string]interface{}{"type": "date"},
		},
	},
}

// ElasticsearchIndexer writes predictions to a search index.
type ElasticsearchIndexer struct {
	es    *database.ElasticsearchClient
	index string
}

func NewElasticsearchIndexer(es *database.ElasticsearchClient, index string) *ElasticsearchIndexer {
	return &ElasticsearchIndexer{es: es, index: index}
}

func (i *ElasticsearchIndexer) Name() string { return "elasticsearch" }

// EnsureIndex creates the index with keyword mappings for aggregation.
func (i *ElasticsearchIndexer) EnsureIndex(ctx context.Context) error {
	if err := i.es.EnsureIndex(ctx, i.index, indexMapping); err != nil {
		return apperrors.NewStorageQueryFailedError("ensure_index", err)
	}
	return nil
}

func (i *ElasticsearchIndexer) Record(ctx context.Context, rec models.PredictionRecord) error {
	if err := i.es.IndexDocument(ctx, i.index, rec.ID, rec); err != nil {
		return apperrors.NewStorageQueryFailedError("index", err)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.PredictionRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		ByResultType struct {
			Buckets []struct {
				Key      string `json:"key"`
				DocCount int    `json:"doc_count"`
			} `json:"buckets"`
		} `json:"by_result_type"`
	} `json:"aggregations"`
}

func (i *ElasticsearchIndexer) Summary(ctx context.Context) (*models.HistorySummary, error) {
	query := map[string]interface{}{
		"size":             0,
		"track_total_hits": true,
		"aggs": map[string]interface{}{
			"by_result_type": map[string]interface{}{
				"terms": map[string]interface{}{"field": "result_type"},
			},
		},
	}

	var resp searchResponse
	if err := i.es.Search(ctx, i.index, query, &resp); err != nil {
		return nil, apperrors.NewStorageQueryFailedError("summary", err)
	}

	summary := emptySummary()
	summary.Total = resp.Hits.Total.Value
	for _, b := range resp.Aggregations.ByResultType.Buckets {
		summary.ByResultType[models.ResultType(b.Key)] = b.DocCount
	}
	return summary, nil
}

func (i *ElasticsearchIndexer) Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	query := map[string]interface{}{
		"size": ClampLimit(limit),
		"sort": []interface{}{
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}

	var resp searchResponse
	if err := i.es.Search(ctx, i.index, query, &resp); err != nil {
		return nil, apperrors.NewStorageQueryFailedError("recent", err)
	}

	records := make([]models.PredictionRecord, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		records = append(records, h.Source)
	}
	return records, nil
}
