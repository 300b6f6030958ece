package repository

import (
	"encoding/json"
	"fmt"

	"github.com/okian/cadis/internal/domain/model"
)

func encodeRun(r model.RunResult) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode run %s: %w", r.Report.RunID, err)
	}
	return b, nil
}

func decodeRun(b []byte) (model.RunResult, error) {
	var r model.RunResult
	if err := json.Unmarshal(b, &r); err != nil {
		return model.RunResult{}, fmt.Errorf("decode run: %w", err)
	}
	return r, nil
}

func cloneRun(r model.RunResult) (model.RunResult, error) {
	b, err := encodeRun(r)
	if err != nil {
		return model.RunResult{}, err
	}
	return decodeRun(b)
}
