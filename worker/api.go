package worker

import (
	"context"

	"airshark/internal/api"
)

// APIWorker runs the feed HTTP server under the manager.
type APIWorker struct {
	Server *api.Server
	Addr   string
}

func (w *APIWorker) Start(ctx context.Context) error {
	return w.Server.Run(ctx, w.Addr)
}
