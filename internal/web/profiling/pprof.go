// Package profiling mounts the net/http/pprof endpoints and a runtime stats
// endpoint on a chi router.
//
// The endpoints expose goroutine stacks and heap contents. They are off by
// default and, when enabled, sit behind the same auth middleware as the
// GraphQL endpoint.
package profiling

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"
)

// DefaultPath is the URL prefix for profiling endpoints
const DefaultPath = "/debug/pprof"

// RegisterRoutes registers pprof profiling routes under path
func RegisterRoutes(router chi.Router, path string) {
	if path == "" {
		path = DefaultPath
	}

	router.Route(path, func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.Get("/runtime", StatsHandler())

		for _, profile := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			r.Handle("/"+profile, pprof.Handler(profile))
		}
	})
}

// Stats is a snapshot of runtime counters
type Stats struct {
	Goroutines int         `json:"goroutines"`
	Memory     MemoryStats `json:"memory"`
	NumCPU     int         `json:"num_cpu"`
	NumCgoCall int64       `json:"num_cgo_call"`
}

// MemoryStats is the memory part of Stats
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

// RuntimeStats returns current runtime statistics
func RuntimeStats() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Stats{
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
		NumCPU:     runtime.NumCPU(),
		NumCgoCall: runtime.NumCgoCall(),
	}
}

// StatsHandler serves RuntimeStats as JSON
func StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(RuntimeStats())
	}
}
