package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
)

// httpClient wraps http.Client with JSON helpers.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// get performs a GET request and returns the status and body.
func (c *httpClient) get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// post performs a POST request with a JSON body.
func (c *httpClient) post(ctx context.Context, path string, body any) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *httpClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// submitRuns posts every run to /runs using a pool of workers.
func submitRuns(ctx context.Context, config *Config, runs []model.RunRequest, stats *Stats) []submission {
	log := logger.Get()
	log.Info(ctx, "submitting runs", logger.Int("runs", len(runs)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.BaseURL, config.Timeout)
	results := make([]submission, len(runs))

	var submitted, accepted, duplicate, rejected, failed int64

	indexes := make(chan int, config.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				res := submitSingleRun(ctx, client, runs[idx])
				results[idx] = res

				atomic.AddInt64(&submitted, 1)
				switch res.outcome {
				case outcomeAccepted:
					atomic.AddInt64(&accepted, 1)
				case outcomeDuplicate:
					atomic.AddInt64(&duplicate, 1)
				case outcomeRejected:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Warn(ctx, "run submission failed", logger.String("runID", runs[idx].ID))
					}
				}
			}
		}()
	}

	go func() {
		defer close(indexes)
		for i := range runs {
			select {
			case <-ctx.Done():
				return
			case indexes <- i:
			}
		}
	}()
	wg.Wait()

	stats.RunsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RunsAccepted = int(atomic.LoadInt64(&accepted))
	stats.RunsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.RunsRejected = int(atomic.LoadInt64(&rejected))
	stats.RunsFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "run submission completed",
		logger.Int("accepted", stats.RunsAccepted),
		logger.Int("duplicate", stats.RunsDuplicate),
		logger.Int("rejected", stats.RunsRejected),
		logger.Int("failed", stats.RunsFailed))
	return results
}

// submitSingleRun submits one run and classifies the answer.
func submitSingleRun(ctx context.Context, client *httpClient, run model.RunRequest) submission {
	res := submission{request: run, outcome: outcomeFailed}

	status, body, err := client.post(ctx, "/runs", run)
	if err != nil {
		return res
	}
	switch status {
	case http.StatusAccepted:
		var ack submitResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.RunID != "" {
			res.runID = ack.RunID
			res.outcome = outcomeAccepted
		}
	case http.StatusConflict:
		res.outcome = outcomeDuplicate
	case http.StatusTooManyRequests:
		res.outcome = outcomeRejected
	}
	return res
}

// fetchRun reads one run. ok is false while the run is still executing.
func fetchRun(ctx context.Context, client *httpClient, runID string) (model.RunResult, bool, error) {
	status, body, err := client.get(ctx, "/runs/"+runID)
	if err != nil {
		return model.RunResult{}, false, err
	}
	if status != http.StatusOK {
		var e errorResponse
		_ = json.Unmarshal(body, &e)
		return model.RunResult{}, false, fmt.Errorf("get run %s: status %d: %s", runID, status, e.Message)
	}
	var res model.RunResult
	if err := json.Unmarshal(body, &res); err != nil {
		return model.RunResult{}, false, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return res, res.Report.State.Terminal(), nil
}
