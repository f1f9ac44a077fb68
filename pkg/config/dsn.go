package config

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const defaultPostgresPort = 5432

// ParsedDatabaseURL is a postgres:// URL split into libpq keywords
type ParsedDatabaseURL struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// Options holds the remaining query parameters, e.g. application_name
	Options map[string]string
}

// ParseDatabaseURL accepts postgres:// and postgresql:// URLs.
// Port defaults to 5432 and sslmode to disable.
func ParseDatabaseURL(rawURL string) (*ParsedDatabaseURL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("invalid database URL scheme %q, expected postgres or postgresql", u.Scheme)
	}

	p := &ParsedDatabaseURL{
		Host:     u.Hostname(),
		Port:     defaultPostgresPort,
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
		Options:  map[string]string{},
	}

	if raw := u.Port(); raw != "" {
		if p.Port, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("invalid port in database URL: %w", err)
		}
	}
	if u.User != nil {
		p.User = u.User.Username()
		p.Password, _ = u.User.Password()
	}

	for key, values := range u.Query() {
		switch {
		case len(values) == 0:
		case key == "sslmode":
			p.SSLMode = values[0]
		default:
			p.Options[key] = values[0]
		}
	}

	return p, nil
}

// ToDSN renders p as a libpq keyword/value string, extra options in key order
func (p *ParsedDatabaseURL) ToDSN() string {
	return buildDSN(p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode, p.Options)
}

func buildDSN(host string, port int, user, password, dbname, sslmode string, extra map[string]string) string {
	pairs := [][2]string{
		{"host", host},
		{"port", strconv.Itoa(port)},
		{"user", user},
		{"password", password},
		{"dbname", dbname},
		{"sslmode", sslmode},
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, extra[k]})
	}

	parts := make([]string, len(pairs))
	for i, kv := range pairs {
		parts[i] = kv[0] + "=" + quoteDSNValue(kv[1])
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue single-quotes values libpq would otherwise split or misread
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
	return "'" + v + "'"
}

// Target returns host:port/database without credentials, for logs
func (c *DatabaseConfig) Target() string {
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
}
