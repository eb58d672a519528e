// server/stats.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"html/template"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type serverStats struct {
	Uptime           time.Duration `json:"uptime"`
	AllocMemory      uint64        `json:"allocMemoryMB"`
	TotalAllocMemory uint64        `json:"totalAllocMemoryMB"`
	SysMemory        uint64        `json:"sysMemoryMB"`
	HostMemoryUsed   int           `json:"hostMemoryUsedPercent"`
	NumGC            uint32        `json:"numGC"`
	NumGoRoutines    int           `json:"numGoroutines"`
	CPUUsage         int           `json:"cpuUsagePercent"`

	Requests  int64 `json:"requests"`
	CacheHits int64 `json:"cacheHits"`
	CacheSize int   `json:"cacheSize"`

	RegistryVersion string   `json:"registryVersion"`
	Airports        []string `json:"airports"`
}

var statsTemplate = template.Must(template.New("").Parse(`
<!DOCTYPE html>
<html>
<head>
<title>airlimit</title>
</head>
<style>
body {
  font-family: sans-serif;
}
</style>
<body>
<h1>Server Status</h1>
<ul>
  <li>Uptime: {{.Uptime}}</li>
  <li>CPU usage: {{.CPUUsage}}%</li>
  <li>Host memory in use: {{.HostMemoryUsed}}%</li>
  <li>Allocated memory: {{.AllocMemory}} MB</li>
  <li>Total allocated memory: {{.TotalAllocMemory}} MB</li>
  <li>System memory: {{.SysMemory}} MB</li>
  <li>Garbage collection passes: {{.NumGC}}</li>
  <li>Running goroutines: {{.NumGoRoutines}}</li>
</ul>

<h1>Queries</h1>
<ul>
  <li>Requests: {{.Requests}}</li>
  <li>Cache hits: {{.CacheHits}}</li>
  <li>Cached results: {{.CacheSize}}</li>
</ul>

<h1>Registry {{.RegistryVersion}}</h1>
<ol>
{{range .Airports}}  <li><tt>{{.}}</tt></li>
{{end}}</ol>

</body>
</html>
`))

func (s *Server) getStats() serverStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := serverStats{
		Uptime:           time.Since(s.startTime).Round(time.Second),
		AllocMemory:      m.Alloc / (1024 * 1024),
		TotalAllocMemory: m.TotalAlloc / (1024 * 1024),
		SysMemory:        m.Sys / (1024 * 1024),
		NumGC:            m.NumGC,
		NumGoRoutines:    runtime.NumGoroutine(),
		Requests:         s.requests.Load(),
		CacheHits:        s.cacheHits.Load(),
		RegistryVersion:  s.engine.Registry().Version,
		Airports:         s.engine.Registry().Ids(),
	}

	// The host statistics aren't available everywhere; they're left at
	// zero if they can't be read.
	if usage, err := cpu.Percent(s.cpuSampleInterval, false); err == nil && len(usage) > 0 {
		stats.CPUUsage = int(usage[0] + 0.5)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.HostMemoryUsed = int(vm.UsedPercent + 0.5)
	}
	if s.cache != nil {
		stats.CacheSize = s.cache.Len()
	}

	return stats
}

// handleStats serves the process statistics as HTML, or as JSON or
// msgpack if the client asks for either.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.getStats()

	if r.URL.Query().Get("format") == "json" || wantsMsgpack(r) {
		s.writeResponse(w, r, stats)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statsTemplate.Execute(w, stats); err != nil {
		s.lg.Warnf("stats template: %v", err)
	}
}
