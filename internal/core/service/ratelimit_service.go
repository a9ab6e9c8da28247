package service

import (
	"context"
	"math"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

// RateLimitConfig controls request classification and the IP lists.
type RateLimitConfig struct {
	// LoginRoutes are matched exactly against the path of POST requests.
	LoginRoutes []string
	// APIPrefixes are matched as path prefixes.
	APIPrefixes []string
	// HeavyPaths are matched as substrings of the path.
	HeavyPaths []string
	// Whitelist and Blacklist accept single addresses or CIDR prefixes.
	Whitelist []string
	Blacklist []string
	// Quotas overrides DefaultQuotas per class.
	Quotas map[domain.RouteClass]domain.Quota
}

type rateLimitService struct {
	store     ports.RateLimitStore
	blacklist ports.BlacklistRepository
	cfg       RateLimitConfig
	quotas    map[domain.RouteClass]domain.Quota
	allow     ipSet
	deny      ipSet
	log       zerolog.Logger
	now       func() time.Time
}

// NewRateLimitService returns a fixed-window RateLimitService.
func NewRateLimitService(
	store ports.RateLimitStore,
	blacklist ports.BlacklistRepository,
	cfg RateLimitConfig,
	log zerolog.Logger,
) ports.RateLimitService {
	return newRateLimitService(store, blacklist, cfg, log, time.Now)
}

func newRateLimitService(
	store ports.RateLimitStore,
	blacklist ports.BlacklistRepository,
	cfg RateLimitConfig,
	log zerolog.Logger,
	now func() time.Time,
) *rateLimitService {
	quotas := domain.DefaultQuotas()
	for class, q := range cfg.Quotas {
		quotas[class] = q
	}
	return &rateLimitService{
		store:     store,
		blacklist: blacklist,
		cfg:       cfg,
		quotas:    quotas,
		allow:     newIPSet(cfg.Whitelist, log),
		deny:      newIPSet(cfg.Blacklist, log),
		log:       log,
		now:       now,
	}
}

// Check classifies the request and counts it against its window.
//
// Storage errors fail open: a blacklist or counter outage lets traffic
// through rather than locking out every visitor. Permission checks elsewhere
// fail closed; keep the two policies apart.
func (s *rateLimitService) Check(ctx context.Context, req ports.RateLimitRequest) domain.RateLimitDecision {
	now := s.now()

	if s.localRequest(req) || s.allow.contains(req.IP) {
		return domain.RateLimitDecision{Allowed: true, Whitelisted: true}
	}
	if s.isBlacklisted(ctx, req.IP, now) {
		return domain.RateLimitDecision{Allowed: false, Blacklisted: true}
	}

	class := s.Classify(req)
	quota := s.quotas[class]
	id := Identifier(class, req.IP, req.Path)
	decision := domain.RateLimitDecision{
		Allowed:    true,
		Class:      class,
		Identifier: id,
		Limit:      quota.Limit,
		Remaining:  quota.Limit,
		Reset:      now.Add(quota.Window),
	}

	if err := s.store.Purge(ctx, now); err != nil {
		s.log.Warn().Err(err).Msg("rate limit purge failed")
	}

	rec, err := s.store.Hit(ctx, id, quota.Window, now)
	if err != nil {
		s.log.Error().Err(err).Str("identifier", id).Msg("rate limit store unavailable, allowing request")
		return decision
	}

	decision.Allowed = rec.Attempts <= quota.Limit
	decision.Remaining = max(0, quota.Limit-rec.Attempts)
	decision.Reset = rec.ExpiresAt
	if !decision.Allowed {
		decision.RetryAfter = max(1, int(math.Ceil(rec.ExpiresAt.Sub(now).Seconds())))
	}
	return decision
}

// Classify returns the quota class for req. The first matching rule wins.
func (s *rateLimitService) Classify(req ports.RateLimitRequest) domain.RouteClass {
	if strings.EqualFold(req.Method, "POST") {
		for _, route := range s.cfg.LoginRoutes {
			if req.Path == route {
				return domain.ClassLogin
			}
		}
	}
	for _, prefix := range s.cfg.APIPrefixes {
		if strings.HasPrefix(req.Path, prefix) {
			return domain.ClassAPI
		}
	}
	for _, heavy := range s.cfg.HeavyPaths {
		if strings.Contains(req.Path, heavy) {
			return domain.ClassHeavy
		}
	}
	if req.AJAX {
		return domain.ClassAJAX
	}
	return domain.ClassGeneral
}

func (s *rateLimitService) isBlacklisted(ctx context.Context, ip string, now time.Time) bool {
	if s.deny.contains(ip) {
		return true
	}
	if s.blacklist == nil {
		return false
	}
	banned, err := s.blacklist.IsBlacklisted(ctx, ip, now)
	if err != nil {
		s.log.Warn().Err(err).Str("ip", ip).Msg("blacklist lookup failed, treating as not blacklisted")
		return false
	}
	return banned
}

// Identifier builds the counter key for a class.
//
//	login → login:{ip}
//	api   → api:{ip}:{path without numeric segments}
//	other → global:{ip}
func Identifier(class domain.RouteClass, ip, path string) string {
	switch class {
	case domain.ClassLogin:
		return "login:" + ip
	case domain.ClassAPI:
		return "api:" + ip + ":" + stripNumericSegments(path)
	default:
		return "global:" + ip
	}
}

func stripNumericSegments(path string) string {
	parts := strings.Split(path, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" && isDigits(p) {
			continue
		}
		kept = append(kept, p)
	}
	out := strings.Join(kept, "/")
	if out == "" {
		return "/"
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// localRequest reports a loopback client arriving over a loopback
// connection. A forwarded 127.0.0.1 from a remote peer does not count.
func (s *rateLimitService) localRequest(req ports.RateLimitRequest) bool {
	peer := req.RemoteIP
	if peer == "" {
		peer = req.IP
	}
	return isLoopback(req.IP) && isLoopback(peer)
}

func isLoopback(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	return err == nil && addr.Unmap().IsLoopback()
}

// ipSet matches addresses against exact IPs and CIDR prefixes.
type ipSet struct {
	addrs    map[netip.Addr]struct{}
	prefixes []netip.Prefix
}

func newIPSet(entries []string, log zerolog.Logger) ipSet {
	set := ipSet{addrs: make(map[netip.Addr]struct{}, len(entries))}
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				log.Warn().Str("entry", raw).Msg("ignoring malformed ip prefix")
				continue
			}
			set.prefixes = append(set.prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(raw)
		if err != nil {
			log.Warn().Str("entry", raw).Msg("ignoring malformed ip")
			continue
		}
		set.addrs[a.Unmap()] = struct{}{}
	}
	return set
}

func (s ipSet) contains(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	if _, ok := s.addrs[a]; ok {
		return true
	}
	for _, p := range s.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
