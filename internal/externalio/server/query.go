package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"packetlog/internal/global"
	"packetlog/internal/metrics"
)

// Start/end from request values. Start defaults to the last minute and may be relative ("-5m").
func parseWindow(clientRequest *http.Request, now time.Time) (start, end time.Time, err error) {
	rawStartTime := clientRequest.FormValue("starttime")
	switch {
	case rawStartTime == "":
		start = now.Add(-1 * time.Minute)
	case rawStartTime[0] == '-' || rawStartTime[0] == '+':
		dur, parseErr := time.ParseDuration(rawStartTime)
		if parseErr != nil {
			// Unparsable relative times fall back to the default
			start = now.Add(-1 * time.Minute)
			break
		}
		start = now.Add(dur)
	default:
		start, err = time.Parse(time.RFC3339Nano, rawStartTime)
		if err != nil {
			err = fmt.Errorf("invalid start time: %w", err)
			return
		}
	}
	if start.After(now) {
		err = fmt.Errorf("start time is in the future")
		return
	}

	rawEndTime := clientRequest.FormValue("endtime")
	if rawEndTime == "now" || rawEndTime == "" {
		end = now
		return
	}
	end, err = time.Parse(time.RFC3339Nano, rawEndTime)
	if err != nil {
		err = fmt.Errorf("invalid end time: %w", err)
		return
	}
	return
}

func namespaceFromPath(path string, prefix string) (namespace []string) {
	raw := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if raw == "" {
		return
	}
	namespace = strings.Split(raw, "/")
	return
}

// Handles metric search requests based on time for data
func handleData(ctx context.Context, search DataSearcher, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	start, end, err := parseWindow(clientRequest, time.Now())
	if err != nil {
		serverResponder.WriteHeader(http.StatusBadRequest)
		return
	}

	rawResults := search(clientRequest.FormValue("name"), namespaceFromPath(clientRequest.URL.Path, global.DataPath), start, end)
	if len(rawResults) == 0 {
		jResp(ctx, serverResponder, Jerror{Msg: "Search returned no results"})
		return
	}
	jResp(ctx, serverResponder, metrics.ConvertAll(rawResults))
}

// Handles metric search requests based on time and aggregation type
func handleAggregation(ctx context.Context, search AggSearcher, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	start, end, err := parseWindow(clientRequest, time.Now())
	if err != nil {
		serverResponder.WriteHeader(http.StatusBadRequest)
		return
	}

	result, err := search(clientRequest.FormValue("aggregation"), clientRequest.FormValue("name"),
		namespaceFromPath(clientRequest.URL.Path, global.AggregationPath), start, end)
	if err != nil {
		jResp(ctx, serverResponder, Jerror{Msg: err.Error()})
		return
	}
	jResp(ctx, serverResponder, result.Convert())
}

// Handles metric search to discover metrics (returns no actual data, only sample metric per individual metric)
func handleDiscovery(ctx context.Context, discover Discoverer, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	rawType := clientRequest.FormValue("type")

	var reqType metrics.MetricType
	switch metrics.MetricType(strings.ToLower(rawType)) {
	case metrics.Counter:
		reqType = metrics.Counter
	case metrics.Gauge:
		reqType = metrics.Gauge
	case metrics.Summary:
		reqType = metrics.Summary
	default:
		// Empty is valid
		if rawType != "" {
			serverResponder.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	rawResults := discover(clientRequest.FormValue("name"), clientRequest.FormValue("description"),
		namespaceFromPath(clientRequest.URL.Path, global.DiscoveryPath), clientRequest.FormValue("unit"), reqType)
	if len(rawResults) == 0 {
		jResp(ctx, serverResponder, Jerror{Msg: "Search returned no results"})
		return
	}
	jResp(ctx, serverResponder, metrics.ConvertAll(rawResults))
}
