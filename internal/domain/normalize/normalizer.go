// Package normalize converts source-specific raw records into observations.
package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
)

// observationNamespace seeds derived observation ids.
var observationNamespace = uuid.MustParse("6f1c6a2e-3d0b-5b8e-9a55-2c3f1e0a7d41")

// Normalizer maps raw records to observations. It keeps no per-run state.
type Normalizer struct {
	now func() time.Time
	log logger.Logger
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		now: time.Now,
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts one record. It fails with a *model.ValidationError when
// the record has neither a timestamp nor any text.
func (n *Normalizer) Normalize(rec model.RawRecord, index int) (model.Observation, error) {
	if rec.Fields == nil {
		return model.Observation{}, &model.ValidationError{Source: rec.Source, Index: index, Reason: model.ReasonNilRecord}
	}

	var parts []string
	for _, f := range fieldsFor(rec.Source) {
		parts = append(parts, texts(rec.Fields[f])...)
	}
	text := strings.Join(parts, "\n")

	ts, hasTS := timestampField(rec.Fields)
	if !hasTS && text == "" {
		return model.Observation{}, &model.ValidationError{Source: rec.Source, Index: index, Reason: model.ReasonMissingContent}
	}
	if !hasTS {
		ts = n.now().UTC()
	}

	tags := stringList(rec.Fields["tags"])
	if tenant := stringField(rec.Fields, tenantFields); tenant != "" {
		tags = append(tags, model.TenantTag(tenant))
	}

	return model.Observation{
		ID:           n.id(rec, index),
		Source:       rec.Source,
		Timestamp:    ts,
		Text:         text,
		Tags:         tags,
		Participants: stringList(rec.Fields["participants"]),
		Metrics:      metrics(rec.Fields),
		Challenges:   stringList(rec.Fields["challenges"]),
	}, nil
}

// NormalizeBatch converts every record, excluding malformed ones. The
// returned diagnostics count what was seen and why records were excluded.
func (n *Normalizer) NormalizeBatch(ctx context.Context, records []model.RawRecord) ([]model.Observation, model.Diagnostics) {
	diag := model.Diagnostics{Seen: len(records), ReasonHistogram: map[string]int{}}
	out := make([]model.Observation, 0, len(records))
	for i, rec := range records {
		o, err := n.Normalize(rec, i)
		if err != nil {
			reason := model.ReasonMissingContent
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				reason = ve.Reason
			}
			diag.Exclude(reason)
			n.log.Warn(ctx, "record excluded",
				logger.String("source", rec.Source),
				logger.Int("index", i),
				logger.String("reason", reason),
			)
			continue
		}
		out = append(out, o)
	}
	return out, diag
}

func (n *Normalizer) id(rec model.RawRecord, index int) string {
	if id := stringField(rec.Fields, idFields); id != "" {
		return id
	}
	// json.Marshal sorts map keys, so equal records hash to equal ids.
	body, err := json.Marshal(rec.Fields)
	if err != nil {
		body = nil
	}
	name := rec.Source + "/" + strconv.Itoa(index) + "/" + string(body)
	return uuid.NewSHA1(observationNamespace, []byte(name)).String()
}

func metrics(fields map[string]any) map[string]float64 {
	out := make(map[string]float64)
	if nested, ok := fields["metrics"].(map[string]any); ok {
		for k, v := range nested {
			if f, ok := number(v); ok {
				out[k] = f
			}
		}
	}
	for _, k := range metricFields {
		if f, ok := number(fields[k]); ok {
			out[k] = f
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
