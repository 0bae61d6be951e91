package routes

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/zonkedw/project-shop-sub001/jobs"
	"github.com/zonkedw/project-shop-sub001/logger"
)

// Subscriber is the part of the enrichment worker the SSE stream needs.
type Subscriber interface {
	Subscribe(ch chan jobs.ProductUpdate)
	Unsubscribe(ch chan jobs.ProductUpdate)
}

// ProductSSE streams product enrichment updates as Server-Sent Events.
func ProductSSE(worker Subscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		updateCh := make(chan jobs.ProductUpdate, 10)
		worker.Subscribe(updateCh)
		defer worker.Unsubscribe(updateCh)

		logger.Info("SSE client connected")

		fmt.Fprintf(w, "event: connected\ndata: {\"status\": \"connected\"}\n\n")
		flusher.Flush()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				logger.Info("SSE client disconnected")
				return
			case update, open := <-updateCh:
				if !open {
					return
				}
				data, err := json.Marshal(update)
				if err != nil {
					logger.Error("Failed to marshal product update", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: product_update\ndata: %s\n\n", data)
				flusher.Flush()
			}
		}
	}
}
