package ratelimit

import "strings"

// matchEndpoint resolves the tier for a request. The health probe is always
// exempt. Exact path+method matches win; a config path ending in "/" acts as
// a prefix so "/buyers/" covers "/buyers/{id}/matches". No match means the
// default tier applies.
func matchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method == method && c.Path == path {
			return c
		}
	}
	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}
	return nil
}
