// Package audit keeps a searchable trail of assessments and pipeline runs.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
)

const (
	KindAssessment  = "assessment"
	KindPipelineRun = "pipeline_run"
)

// Entry is one audit document.
type Entry struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	RunID         string    `json:"runId,omitempty"`
	Language      string    `json:"language,omitempty"`
	CropType      string    `json:"cropType,omitempty"`
	Latitude      float64   `json:"latitude,omitempty"`
	Longitude     float64   `json:"longitude,omitempty"`
	District      string    `json:"district,omitempty"`
	Intent        string    `json:"intent,omitempty"`
	Eligible      *bool     `json:"eligible,omitempty"`
	PredictedLoss float64   `json:"predictedLoss,omitempty"`
	Threshold     float64   `json:"threshold,omitempty"`
	Success       bool      `json:"success"`
	ErrorCode     string    `json:"errorCode,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Sink records audit entries. Failures are reported but never block a run.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
}

// NopSink drops every entry.
type NopSink struct{}

func (NopSink) Record(ctx context.Context, entry Entry) error { return nil }

// ElasticsearchSink indexes entries into a single index.
type ElasticsearchSink struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
	logger  logger.Logger
}

func NewElasticsearchSink(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchSink {
	return &ElasticsearchSink{
		client:  client,
		index:   index,
		timeout: 5 * time.Second,
		logger:  log.WithFields(map[string]interface{}{"index": index}),
	}
}

func (s *ElasticsearchSink) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return apperrors.NewAuditIndexFailedError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: entry.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return apperrors.NewAuditIndexFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewAuditIndexFailedError(fmt.Errorf("index %s: %s", s.index, res.Status()))
	}

	s.logger.Debug("audit entry indexed", map[string]interface{}{
		"id":   entry.ID,
		"kind": entry.Kind,
	})
	return nil
}
