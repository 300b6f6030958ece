package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/cadis/internal/adapters/mq/queue"
	worker "github.com/okian/cadis/internal/adapters/mq/worker"
	model "github.com/okian/cadis/internal/domain/model"
	logging "github.com/okian/cadis/pkg/logger"
)

func init() {
	if err := logging.Init(); err != nil {
		panic(err)
	}
}

type mockRunner struct {
	mu     sync.Mutex
	calls  []string
	errors map[string]error
}

func newMockRunner() *mockRunner {
	return &mockRunner{errors: make(map[string]error)}
}

func (m *mockRunner) Execute(ctx context.Context, req model.RunRequest) (model.RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req.ID)

	res := model.RunResult{Report: model.RunReport{RunID: req.ID, State: model.StateComplete}}
	if err, ok := m.errors[req.ID]; ok {
		res.Report.State = model.StateFailed
		res.Report.Error = err.Error()
		return res, err
	}
	return res, nil
}

func (m *mockRunner) setError(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[id] = err
}

func (m *mockRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockRecorder struct {
	mu    sync.Mutex
	saved map[string]model.RunResult
	err   error
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{saved: make(map[string]model.RunResult)}
}

func (m *mockRecorder) SaveRun(ctx context.Context, result model.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved[result.Report.RunID] = result
	return nil
}

func (m *mockRecorder) get(id string) (model.RunResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.saved[id]
	return r, ok
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		runner := newMockRunner()
		recorder := newMockRecorder()
		w := worker.NewWorker(q, runner, recorder, worker.WithName("test-worker"), worker.WithLogger(logging.Nop()))

		convey.Convey("When requests are queued and the queue closes", func() {
			convey.So(q.Enqueue(ctx, model.RunRequest{ID: "run-1"}), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, model.RunRequest{ID: "run-2"}), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			w.Run(ctx)

			convey.Convey("Then every request runs and is persisted", func() {
				convey.So(runner.callCount(), convey.ShouldEqual, 2)
				convey.So(recorder.count(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a run fails", func() {
			runner.setError("run-bad", errors.New("no usable observations"))
			convey.So(q.Enqueue(ctx, model.RunRequest{ID: "run-bad"}), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			w.Run(ctx)

			convey.Convey("Then the failed report is persisted", func() {
				r, ok := recorder.get("run-bad")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(r.Report.State, convey.ShouldEqual, model.StateFailed)
				convey.So(r.Report.Error, convey.ShouldContainSubstring, "no usable observations")
			})
		})

		convey.Convey("When a run is cancelled", func() {
			runner.setError("run-cancelled", fmt.Errorf("extract: %w", context.Canceled))
			convey.So(q.Enqueue(ctx, model.RunRequest{ID: "run-cancelled"}), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			w.Run(ctx)

			convey.Convey("Then nothing is persisted", func() {
				_, ok := recorder.get("run-cancelled")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When shut down while idle", func() {
			go w.Run(ctx)
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			convey.Convey("Then it stops promptly", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			go w.Run(cctx)
			cancel()

			convey.Convey("Then the worker exits", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					t.Fatal("worker did not exit")
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		runner := newMockRunner()
		recorder := newMockRecorder()
		pool := worker.NewPool(3, q, runner, recorder, worker.WithLogger(logging.Nop()))
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		convey.Convey("When requests are queued and the pool shuts down", func() {
			pool.Start(ctx)
			for i := 0; i < 20; i++ {
				convey.So(q.Enqueue(ctx, model.RunRequest{ID: fmt.Sprintf("run-%d", i)}), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then the queue is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(runner.callCount(), convey.ShouldEqual, 20)
				convey.So(recorder.count(), convey.ShouldEqual, 20)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When persistence fails", func() {
			recorder.err = errors.New("disk full")
			pool.Start(ctx)
			convey.So(q.Enqueue(ctx, model.RunRequest{ID: "run-1"}), convey.ShouldBeNil)
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then the run executed but nothing was stored", func() {
				convey.So(runner.callCount(), convey.ShouldEqual, 1)
				convey.So(recorder.count(), convey.ShouldEqual, 0)
			})
		})
	})

	convey.Convey("Given a pool with no explicit size", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newMockRunner(), newMockRecorder())

		convey.Convey("Then it gets at least one worker", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
