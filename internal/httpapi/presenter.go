package httpapi

import (
	"math"
	"time"

	"github.com/nguyentantai21042004/vidscribe/internal/task"
)

type generateParams struct {
	Title     string         `json:"title"`
	Type      string         `json:"type"`
	Engine    string         `json:"engine"`
	Prompt    string         `json:"prompt"`
	TimeRange string         `json:"timeRange"`
	Options   map[string]any `json:"options"`
}

type generateRequest struct {
	VideoURL string         `json:"video_url"`
	Params   generateParams `json:"params"`
}

type createResponse struct {
	Code    int    `json:"code"`
	TaskID  string `json:"taskId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statusResponse struct {
	Code        int       `json:"code"`
	TaskID      string    `json:"taskId"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	Stage       string    `json:"stage"`
	Engine      string    `json:"engine"`
	Detail      string    `json:"detail,omitempty"`
	Content     string    `json:"content,omitempty"`
	ProcessTime *float64  `json:"processTime,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type cancelResponse struct {
	Code    int    `json:"code"`
	TaskID  string `json:"taskId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func toStatusResponse(s task.Snapshot) statusResponse {
	resp := statusResponse{
		Code:      s.Code,
		TaskID:    s.ID,
		Status:    string(s.Status),
		Progress:  s.Progress,
		Stage:     s.Stage,
		Engine:    s.Params.Engine,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}

	switch s.Status {
	case task.StatusSuccess:
		resp.Content = s.Content
		seconds := math.Round(s.ProcessTime.Seconds()*100) / 100
		resp.ProcessTime = &seconds
	case task.StatusFailed, task.StatusCanceled:
		resp.Detail = s.Detail
	}
	return resp
}

func (r generateRequest) toParams() task.Params {
	return task.Params{
		VideoURL:  r.VideoURL,
		Prompt:    r.Params.Prompt,
		Title:     r.Params.Title,
		Type:      r.Params.Type,
		Engine:    r.Params.Engine,
		TimeRange: r.Params.TimeRange,
		Options:   r.Params.Options,
	}
}
