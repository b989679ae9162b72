package providers

import (
	"context"
	"fmt"

	"stockdesk/config"

	clc "github.com/cloudwego/eino-ext/callbacks/cozeloop"
	"github.com/cloudwego/eino/callbacks"
	"github.com/coze-dev/cozeloop-go"
)

// SetupTracing registers the CozeLoop callback handler globally when tracing
// credentials are configured. The returned func flushes and closes the client;
// it is a no-op when tracing is disabled.
func SetupTracing(ctx context.Context, cfg config.TracingConfig) (func(context.Context), error) {
	if !cfg.Enabled() {
		return func(context.Context) {}, nil
	}

	client, err := cozeloop.NewClient(
		cozeloop.WithAPIToken(cfg.CozeLoopAPIToken),
		cozeloop.WithWorkspaceID(cfg.CozeLoopWorkspaceID),
	)
	if err != nil {
		return nil, fmt.Errorf("create cozeloop client: %w", err)
	}

	callbacks.AppendGlobalHandlers(clc.NewLoopHandler(client))

	return func(ctx context.Context) {
		client.Close(ctx)
	}, nil
}
