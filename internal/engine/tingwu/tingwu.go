// Package tingwu submits media URLs to Alibaba Cloud Tingwu offline tasks
// through the ROA CommonRequest API and polls them to completion.
package tingwu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk"
	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"

	"github.com/nguyentantai21042004/vidscribe/internal/config"
	"github.com/nguyentantai21042004/vidscribe/internal/engine"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

const (
	apiVersion = "2023-09-30"
	tasksPath  = "/openapi/tingwu/v2/tasks"
	taskType   = "offline"
)

// doFunc sends a CommonRequest and returns the raw response body.
type doFunc func(req *requests.CommonRequest) ([]byte, error)

type Engine struct {
	name   string
	cfg    config.EngineConfig
	do     doFunc
	logger logger.Logger
	now    func() time.Time
}

// New creates a tingwu engine registered as name.
func New(name string, cfg config.EngineConfig, log logger.Logger) (*Engine, error) {
	client, err := sdk.NewClientWithAccessKey(cfg.Region, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("create tingwu client: %w", err)
	}
	do := func(req *requests.CommonRequest) ([]byte, error) {
		resp, err := client.ProcessCommonRequest(req)
		if err != nil {
			return nil, err
		}
		return resp.GetHttpContentBytes(), nil
	}
	return newEngine(name, cfg, do, log), nil
}

func newEngine(name string, cfg config.EngineConfig, do doFunc, log logger.Logger) *Engine {
	return &Engine{name: name, cfg: cfg, do: do, logger: log, now: time.Now}
}

func (e *Engine) Name() string { return e.name }

// Capabilities are empty: tingwu downloads the source itself.
func (e *Engine) Capabilities() engine.Capabilities {
	return engine.Capabilities{}
}

func (e *Engine) Submit(ctx context.Context, req engine.Request) (*engine.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(e.payload(req))
	if err != nil {
		return nil, fmt.Errorf("marshal tingwu payload: %w", err)
	}

	r := e.request("PUT", tasksPath)
	r.SetContent(body)

	result, err := e.call(r)
	if err != nil {
		return nil, err
	}
	taskID := pickString(result, []string{"Data", "TaskId"}, []string{"Data", "TaskID"}, []string{"TaskId"}, []string{"TaskID"})
	if taskID == "" {
		return nil, fmt.Errorf("%w: tingwu created a task but returned no TaskId", engine.ErrRemoteFailed)
	}

	e.logger.Info(ctx, "Tingwu task created: %s", taskID)
	return &engine.Handle{
		TaskID:      req.TaskID,
		Engine:      e.name,
		ExternalRef: taskID,
		SubmittedAt: e.now(),
		Request:     req,
	}, nil
}

func (e *Engine) Await(ctx context.Context, h *engine.Handle, progress engine.ProgressFunc) (*engine.Result, error) {
	progress(engine.ProgressAwaitStart, "tingwu task created: "+h.ExternalRef)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := e.call(e.request("GET", tasksPath+"/"+h.ExternalRef))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		status := strings.ToUpper(pickString(result, []string{"Data", "Status"}, []string{"Data", "TaskStatus"}, []string{"Status"}, []string{"TaskStatus"}))
		switch status {
		case "SUCCEEDED", "SUCCESS", "COMPLETED", "FINISHED":
			return &engine.Result{
				Content:     FindText(result),
				ProcessTime: e.now().Sub(h.SubmittedAt),
			}, nil
		case "FAILED", "ERROR", "CANCELED", "CANCELLED":
			raw, _ := json.Marshal(result)
			return nil, fmt.Errorf("%w: tingwu task %s ended %s: %s", engine.ErrRemoteFailed, h.ExternalRef, status, raw)
		}

		elapsed := e.now().Sub(h.SubmittedAt)
		if e.cfg.Timeout > 0 && elapsed > e.cfg.Timeout {
			return nil, fmt.Errorf("%w: tingwu task %s after %s", engine.ErrRemoteTimeout, h.ExternalRef, e.cfg.Timeout)
		}
		progress(engine.ElapsedProgress(engine.ProgressAwaitStart, elapsed, e.cfg.PollInterval), "tingwu processing")

		if err := sleep(ctx, e.cfg.PollInterval); err != nil {
			return nil, err
		}
	}
}

// Cancel is a no-op: offline tasks run to completion remotely and are
// simply no longer polled.
func (e *Engine) Cancel(ctx context.Context, h *engine.Handle) error {
	return nil
}

func (e *Engine) request(method, path string) *requests.CommonRequest {
	r := requests.NewCommonRequest()
	r.Method = method
	r.Scheme = "https"
	r.Domain = e.cfg.Endpoint
	r.Version = apiVersion
	r.PathPattern = path
	r.QueryParams["type"] = taskType
	r.Headers["Content-Type"] = "application/json"
	return r
}

func (e *Engine) call(r *requests.CommonRequest) (map[string]any, error) {
	raw, err := e.do(r)
	if err != nil {
		return nil, fmt.Errorf("%w: tingwu %s %s: %v", engine.ErrRemoteFailed, r.Method, r.PathPattern, err)
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: tingwu returned malformed json: %v", engine.ErrRemoteFailed, err)
	}
	return result, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
