package config

import (
	"net/url"
	"strings"
)

func dsnUsesInsecureSSL(dsn string) bool {
	u, err := url.Parse(strings.TrimSpace(dsn))
	if err != nil {
		return false
	}
	q := strings.TrimSpace(strings.ToLower(u.Query().Get("sslmode")))
	return q == "disable" || q == "allow" || q == "prefer"
}

func boolPtr(v bool) *bool {
	return &v
}
