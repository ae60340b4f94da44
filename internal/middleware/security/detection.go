package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"

	"fintrack/internal/log"
)

// rule is one probe signature. Blocking rules reject the request with 405.
type rule struct {
	name  string
	block bool
	match func(r *http.Request) bool
}

var probeFragments = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", "etc/passwd", "cmd.exe",
	"<script", "javascript:", "eval(", "union select",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "scanner"}

var rules = []rule{
	{name: "debug_method", block: true, match: func(r *http.Request) bool {
		switch r.Method {
		case http.MethodTrace, http.MethodConnect, "TRACK", "DEBUG":
			return true
		}
		return false
	}},
	{name: "path_probe", match: func(r *http.Request) bool {
		return hasFragment(strings.ToLower(r.URL.Path), probeFragments) ||
			hasFragment(strings.ToLower(r.URL.RawQuery), probeFragments)
	}},
	{name: "scanner_agent", match: func(r *http.Request) bool {
		return hasFragment(strings.ToLower(r.UserAgent()), scannerAgents)
	}},
	{name: "oversized_url", match: func(r *http.Request) bool {
		return len(r.URL.RequestURI()) > 2048
	}},
	{name: "proxy_chain", match: func(r *http.Request) bool {
		return strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5
	}},
}

func hasFragment(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// Detector flags probe traffic and resolves the client address behind
// trusted proxies.
type Detector struct {
	logger *log.Logger

	mu      sync.RWMutex
	proxies []netip.Prefix
	hits    map[string]int64
}

func NewDetector(logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	d := &Detector{
		logger: logger.WithComponent(log.ComponentSecurity),
		hits:   make(map[string]int64),
	}
	for _, cidr := range []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		d.proxies = append(d.proxies, netip.MustParsePrefix(cidr))
	}
	return d
}

// Inspect returns the first rule the request trips, if any.
func (d *Detector) Inspect(r *http.Request) (reason string, block bool, flagged bool) {
	for _, rl := range rules {
		if rl.match(r) {
			d.mu.Lock()
			d.hits[rl.name]++
			d.mu.Unlock()
			return rl.name, rl.block, true
		}
	}
	return "", false, false
}

// Hits returns how often each rule matched.
func (d *Detector) Hits() map[string]int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int64, len(d.hits))
	for k, v := range d.hits {
		out[k] = v
	}
	return out
}

func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason, block, flagged := d.Inspect(r)
		if !flagged {
			next.ServeHTTP(w, r)
			return
		}
		d.logger.WarnContext(r.Context(), "Suspicious request",
			log.FieldReason, reason,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, d.ExtractClientIP(r),
			log.FieldUserAgent, r.UserAgent())
		if block {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the peer address, or the forwarded client when the
// peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !d.trusted(peer.Unmap()) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	return host
}

func (d *Detector) trusted(addr netip.Addr) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// AddTrustedProxy trusts forwarded headers from cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("invalid proxy CIDR %q: %w", cidr, err)
	}
	d.mu.Lock()
	d.proxies = append(d.proxies, p.Masked())
	d.mu.Unlock()
	return nil
}
