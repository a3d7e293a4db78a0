package server

import "fmt"

// printStartupInfo prints the endpoint list and the effective protection
// settings to the console at startup.
func (s *Server) printStartupInfo() {
	endpoints := []struct {
		method, path, desc string
		auth               bool
	}{
		{"GET", "/health", "Health check", false},
		{"GET", "/stats", "Server statistics", false},
		{"POST", "/autonomous-workflow", "Full career workflow run", true},
		{"POST", "/score", "Resume/job match score", true},
		{"POST", "/tailored-answers", "Tailored application answers", true},
		{"GET", "/agent-memory/{user_id}", "Per-user career history", true},
		{"GET", "/agent-global-learning", "Process-wide learning summary", true},
	}

	fmt.Println("Available endpoints:")
	for _, ep := range endpoints {
		desc := ep.desc
		if ep.auth {
			desc += " (requires API key)"
		}
		fmt.Printf("  %-4s %-26s - %s\n", ep.method, ep.path, desc)
	}

	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: enabled, %d key(s) configured\n", len(s.APIKeys))
		fmt.Println("Send an 'X-API-Key' header or Authorization Bearer token with API requests")
	} else {
		fmt.Println("API authentication: disabled")
		fmt.Println("WARNING: API endpoints are publicly accessible")
	}

	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n",
			s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: none")
	}

	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: %d requests/min, burst %d\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - keyed by API key")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - keyed by client IP")
		}
	} else {
		fmt.Println("Rate limiting: disabled")
	}
}
