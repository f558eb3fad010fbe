package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/nguyentantai21042004/vidscribe/internal/config"
	"github.com/nguyentantai21042004/vidscribe/internal/engine"
	"github.com/nguyentantai21042004/vidscribe/internal/engine/doubao"
	"github.com/nguyentantai21042004/vidscribe/internal/engine/gemini"
	"github.com/nguyentantai21042004/vidscribe/internal/engine/local"
	"github.com/nguyentantai21042004/vidscribe/internal/engine/tingwu"
	"github.com/nguyentantai21042004/vidscribe/internal/events"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
	"github.com/nguyentantai21042004/vidscribe/internal/publisher"
	"github.com/nguyentantai21042004/vidscribe/internal/signedurl"
	"github.com/nguyentantai21042004/vidscribe/internal/task"
	"github.com/nguyentantai21042004/vidscribe/pkg/executor"
)

// preferredDefaultEngine is used for requests that name no engine.
const preferredDefaultEngine = "local"

// buildRegistry creates one engine per configured name.
func buildRegistry(c *config.Config, exec executor.Executor, log logger.Logger) (*engine.Registry, error) {
	names := make([]string, 0, len(c.Engines))
	for name := range c.Engines {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := engine.NewRegistry()
	for _, name := range names {
		ec := c.Engines[name]

		var e engine.Engine
		switch ec.Type {
		case config.EngineWhisper:
			e = local.NewWhisper(name, ec, exec, log)
		case config.EngineQwen3:
			e = local.NewQwen3(name, ec, exec, log)
		case config.EngineDoubao:
			e = doubao.New(name, ec, log)
		case config.EngineTingwu:
			tw, err := tingwu.New(name, ec, log)
			if err != nil {
				return nil, fmt.Errorf("engine %s: %w", name, err)
			}
			e = tw
		case config.EngineGemini:
			e = gemini.New(name, ec, log)
		default:
			return nil, fmt.Errorf("engine %s: unknown type %q", name, ec.Type)
		}

		if err := reg.Register(e); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func defaultEngine(reg *engine.Registry) string {
	if reg.Has(preferredDefaultEngine) {
		return preferredDefaultEngine
	}
	if names := reg.Names(); len(names) > 0 {
		return names[0]
	}
	return ""
}

func newPublisher(c *config.Config, codec *signedurl.Codec) (publisher.Publisher, error) {
	if c.Publish.Backend == config.PublishMinio {
		return publisher.NewMinio(c.Publish.Minio, c.PublicMedia.TTL())
	}
	return publisher.NewGateway(codec, c.PublicMedia.TTL()), nil
}

func newEvents(ctx context.Context, c *config.Config, log logger.Logger) events.Publisher {
	if c.Events.RedisAddr == "" {
		return events.NewNop()
	}
	pub, err := events.NewRedis(ctx, c.Events, log)
	if err != nil {
		log.Warn(ctx, "Task events disabled: %v", err)
		return events.NewNop()
	}
	log.Info(ctx, "Publishing task events to redis %s", c.Events.RedisAddr)
	return pub
}

func toEvent(s task.Snapshot) events.Event {
	return events.Event{
		TaskID:    s.ID,
		Status:    string(s.Status),
		Progress:  s.Progress,
		Stage:     s.Stage,
		Code:      s.Code,
		Detail:    s.Detail,
		UpdatedAt: s.UpdatedAt,
	}
}
