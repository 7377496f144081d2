package aggregate

import (
	"context"
	"encoding/json"
	"fmt"

	"ammEngine/internal/model"
)

// WriterSink writes finished windows as JSON lines, for runs without a
// database.
type WriterSink struct {
	W *json.Encoder
}

func (s WriterSink) UpsertWindowMetrics(_ context.Context, metrics []model.PoolWindowMetrics) error {
	for _, m := range metrics {
		if err := s.W.Encode(m); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
