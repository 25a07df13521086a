package steps

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/riftlane/jobforge/internal/engine"
)

// AssetServer starts a loopback HTTP listener in handle_run, publishes
// its URL into the run's SharedContext for a later step to consume, and
// shuts it down in handle_cleanup. It is the engine's stand-in for any
// step that owns a listener or other resource that must outlive RUN and
// be released deterministically once the Job finishes, whether or not
// later steps succeeded.
type AssetServer struct {
	engine.BaseStep

	Body string

	server *http.Server
}

// NewAssetServer builds an AssetServer step serving body at "/" on a
// loopback port chosen at run time.
func NewAssetServer(body string, maxRetries int) *AssetServer {
	return &AssetServer{
		BaseStep: engine.BaseStep{
			StepName:       "assetserver",
			StepMaxRetries: maxRetries,
		},
		Body: body,
	}
}

func (a *AssetServer) HandleRun(ctx context.Context, shared *engine.SharedContext, done engine.Completer) error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("assetserver: listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(a.Body))
	})
	a.server = &http.Server{Handler: mux}

	go func() {
		_ = a.server.Serve(listener)
	}()

	shared.Set("assetserver.url", fmt.Sprintf("http://%s/", listener.Addr().String()))
	done.Resolve()
	return nil
}

func (a *AssetServer) HandleCleanup(ctx context.Context, shared *engine.SharedContext, done engine.Completer) error {
	if a.server == nil {
		done.Resolve()
		return nil
	}
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("assetserver: shutdown: %w", err)
	}
	done.Resolve()
	return nil
}
