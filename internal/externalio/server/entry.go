// HTTP server exposing the metric registry as JSON queries and a Prometheus scrape endpoint
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"packetlog/internal/global"
	"packetlog/internal/logctx"
	"packetlog/internal/metrics"
)

// Sets up HTTP listener configuration for metric querying and scraping
func SetupListener(ctx context.Context, address string, registry *metrics.Registry, prefix string) (server *http.Server, err error) {
	promRegistry := prometheus.NewRegistry()
	err = promRegistry.Register(metrics.NewCollector(registry, prefix))
	if err != nil {
		return
	}

	server = &http.Server{
		Addr:         address,
		Handler:      newMux(ctx, promRegistry, registry.Search, registry.Discover, registry.Aggregate),
		ReadTimeout:  global.HTTPReadTimeout,
		WriteTimeout: global.HTTPWriteTimeout,
		IdleTimeout:  global.HTTPIdleTimeout,
		ErrorLog:     log.New(httpLogWriter{ctx: ctx}, "", 0),
	}
	return
}

func newMux(ctx context.Context, gatherer prometheus.Gatherer, search DataSearcher, discover Discoverer, aggregation AggSearcher) (requestMultiplexer *http.ServeMux) {
	requestMultiplexer = http.NewServeMux()

	// Root index of endpoints
	requestMultiplexer.HandleFunc("/", getOnly(func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.URL.Path != "/" {
			serverResponder.WriteHeader(http.StatusNotFound)
			return
		}
		jResp(ctx, serverResponder, map[string]string{
			"prometheus":  global.PrometheusPath,
			"data":        global.DataPath + "{namespace}?name=&starttime=&endtime=",
			"discover":    global.DiscoveryPath + "{namespace}?name=&description=&unit=&type=",
			"aggregation": global.AggregationPath + "{namespace}?name=&aggregation=&starttime=&endtime=",
		})
	}))

	requestMultiplexer.Handle(global.PrometheusPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: log.New(httpLogWriter{ctx: ctx}, "", 0),
	}))

	requestMultiplexer.HandleFunc(global.DiscoveryPath, getOnly(func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleDiscovery(ctx, discover, serverResponder, clientRequest)
	}))
	requestMultiplexer.HandleFunc(global.DataPath, getOnly(func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleData(ctx, search, serverResponder, clientRequest)
	}))
	requestMultiplexer.HandleFunc(global.AggregationPath, getOnly(func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleAggregation(ctx, aggregation, serverResponder, clientRequest)
	}))
	return
}

func getOnly(handler http.HandlerFunc) http.HandlerFunc {
	return func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.Method != http.MethodGet {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(serverResponder, clientRequest)
	}
}

// Starts the metric HTTP server and waits for requests
func Start(ctx context.Context, server *http.Server) {
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Metric server starting on %s (http://%s%s)\n",
		server.Addr, server.Addr, global.PrometheusPath)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Metric server failed to start: %v\n", err)
	}
}

// Encodes JSON and sends as response body
func jResp(ctx context.Context, serverResponder http.ResponseWriter, content any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(content); err != nil {
		serverResponder.WriteHeader(http.StatusInternalServerError)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Failed marshaling metric results: %v\n", err)
		return
	}
	serverResponder.Header().Set("Content-Type", "application/json")
	serverResponder.WriteHeader(http.StatusOK)
	_, _ = serverResponder.Write(buf.Bytes())
}

// Logs HTTP server errors to internal program buffer (via context logger)
func (logWriter httpLogWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	if n == 0 {
		return
	}
	logctx.LogEvent(logWriter.ctx, global.VerbosityStandard, global.ErrorLog, "%s\n", strings.TrimSpace(string(p)))
	return
}
