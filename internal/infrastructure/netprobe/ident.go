package netprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

const (
	maxBodyBytes       = 1 << 20
	defaultCacheSize   = 64
	defaultUserAgent   = "seca-audit/1.0"
	defaultGeoEndpoint = "https://ipinfo.io/%s/json"
)

// DefaultIPEndpoints answer with the caller's public IP as JSON.
var DefaultIPEndpoints = []string{
	"https://api.ipify.org?format=json",
	"https://ident.me/json",
	"https://api64.ipify.org?format=json",
}

// Location is what a geolocation provider knows about an IP.
type Location struct {
	IP             string
	City           string
	Region         string
	Country        string
	CountryCode    string
	ISP            string
	ASN            string
	Timezone       string
	Latitude       float64
	Longitude      float64
	HasCoordinates bool
}

// Place renders a short human place name such as "Berlin, DE".
func (l Location) Place() string {
	country := l.CountryCode
	if country == "" {
		country = l.Country
	}
	parts := make([]string, 0, 2)
	if l.City != "" {
		parts = append(parts, l.City)
	} else if l.Region != "" {
		parts = append(parts, l.Region)
	}
	if country != "" {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}

func (l Location) empty() bool {
	return l.City == "" && l.Region == "" && l.Country == "" && l.CountryCode == "" &&
		l.ISP == "" && l.ASN == "" && !l.HasCoordinates
}

// IdentOptions configures an IdentClient. Zero values pick defaults.
type IdentOptions struct {
	HTTP        *http.Client
	IPEndpoints []string
	// GeoEndpoint is a format string with one %s for the IP.
	GeoEndpoint string
	UserAgent   string
	// RateLimit is outbound requests per second. Zero disables pacing.
	RateLimit float64
	CacheSize int
	Logger    *zap.Logger
}

// IdentClient resolves the public IP and its geolocation.
type IdentClient struct {
	http        *http.Client
	ipEndpoints []string
	geoEndpoint string
	userAgent   string
	limiter     *rate.Limiter
	cache       *lru.Cache
	logger      *zap.Logger
}

func NewIdentClient(opts IdentOptions) (*IdentClient, error) {
	client := opts.HTTP
	if client == nil {
		client = NewHTTPClient(FamilyAny, 10*time.Second)
	}
	endpoints := opts.IPEndpoints
	if len(endpoints) == 0 {
		endpoints = DefaultIPEndpoints
	}
	geo := opts.GeoEndpoint
	if geo == "" {
		geo = defaultGeoEndpoint
	}
	if !strings.Contains(geo, "%s") {
		return nil, fmt.Errorf("%w: geo endpoint %q needs a %%s placeholder", sharedErrors.ErrInvalidInput, geo)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create geolocation cache: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &IdentClient{
		http:        client,
		ipEndpoints: append([]string(nil), endpoints...),
		geoEndpoint: geo,
		userAgent:   ua,
		cache:       cache,
		logger:      logger,
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c, nil
}

// PublicIP asks each endpoint in turn and returns the first valid answer.
func (c *IdentClient) PublicIP(ctx context.Context) (string, error) {
	var errs *multierror.Error
	for _, endpoint := range c.ipEndpoints {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		raw, err := c.fetchJSON(ctx, endpoint)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", endpoint, err))
			continue
		}
		ip := pickString(raw, "ip", "ip_address", "address", "query")
		if net.ParseIP(ip) == nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: invalid ip %q", endpoint, ip))
			continue
		}
		c.logger.Debug("public_ip_resolved", zap.String("endpoint", endpoint), zap.String("ip", ip))
		return ip, nil
	}
	return "", fmt.Errorf("%w: %v", sharedErrors.ErrNoPublicIP, errs.ErrorOrNil())
}

// Locate returns geolocation and network ownership for ip. Results are cached per IP.
func (c *IdentClient) Locate(ctx context.Context, ip string) (Location, error) {
	if net.ParseIP(ip) == nil {
		return Location{}, fmt.Errorf("%w: invalid ip %q", sharedErrors.ErrInvalidInput, ip)
	}
	if cached, ok := c.cache.Get(ip); ok {
		return cached.(Location), nil
	}

	endpoint := fmt.Sprintf(c.geoEndpoint, url.PathEscape(ip))
	raw, err := c.fetchJSON(ctx, endpoint)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", sharedErrors.ErrNoGeolocation, err)
	}

	loc := parseLocation(raw)
	loc.IP = ip
	if loc.empty() {
		return Location{}, fmt.Errorf("%w: no location fields in response", sharedErrors.ErrNoGeolocation)
	}
	c.cache.Add(ip, loc)
	return loc, nil
}

func (c *IdentClient) fetchJSON(ctx context.Context, endpoint string) (map[string]interface{}, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, errors.New("empty response body")
	}
	// Some providers answer with a bare address.
	if !strings.HasPrefix(trimmed, "{") {
		if net.ParseIP(trimmed) != nil {
			return map[string]interface{}{"ip": trimmed}, nil
		}
		return nil, errors.New("unexpected non-json response")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func parseLocation(raw map[string]interface{}) Location {
	loc := Location{
		City:        pickString(raw, "city", "town"),
		Region:      pickString(raw, "region", "region_name", "regionName", "state"),
		Country:     pickString(raw, "country_name", "country"),
		CountryCode: pickString(raw, "cc", "country_code", "countryCode"),
		Timezone:    pickString(raw, "tz", "timezone", "time_zone", "timeZone"),
	}
	if loc.CountryCode == "" && len(loc.Country) == 2 {
		loc.CountryCode = strings.ToUpper(loc.Country)
	}

	lat, latOK := pickFloat(raw, "latitude", "lat")
	lon, lonOK := pickFloat(raw, "longitude", "lon", "lng")
	ok := latOK && lonOK && validCoordinates(lat, lon)
	if !ok {
		lat, lon, ok = parseLatLon(pickString(raw, "loc"))
		ok = ok && validCoordinates(lat, lon)
	}
	if ok {
		loc.Latitude, loc.Longitude, loc.HasCoordinates = lat, lon, true
	}

	org := pickString(raw, "isp", "aso", "org", "organization", "as_org")
	asn := pickString(raw, "asn", "as", "as_number", "asNumber")
	if asn == "" {
		asn, org = splitASOrg(org)
	} else if strings.HasPrefix(asn, "AS") {
		// "AS3320 Deutsche Telekom AG"
		if code, rest := splitASOrg(asn); rest != "" {
			asn = code
			if org == "" {
				org = rest
			}
		}
	}
	loc.ISP = org
	loc.ASN = normalizeASN(asn)
	return loc
}

func splitASOrg(s string) (string, string) {
	fields := strings.SplitN(strings.TrimSpace(s), " ", 2)
	if len(fields) == 0 || !strings.HasPrefix(strings.ToUpper(fields[0]), "AS") {
		return "", s
	}
	if _, err := strconv.Atoi(fields[0][2:]); err != nil {
		return "", s
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], strings.TrimSpace(fields[1])
}

func normalizeASN(asn string) string {
	asn = strings.TrimSpace(asn)
	if asn == "" {
		return ""
	}
	if _, err := strconv.Atoi(asn); err == nil {
		return "AS" + asn
	}
	if len(asn) > 2 && strings.EqualFold(asn[:2], "AS") {
		return "AS" + asn[2:]
	}
	return asn
}

func parseLatLon(s string) (float64, float64, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// validCoordinates rejects NaN, infinities and values off the globe.
func validCoordinates(lat, lon float64) bool {
	for _, v := range []float64{lat, lon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return math.Abs(lat) <= 90 && math.Abs(lon) <= 180
}

func pickString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', 0, 64)
		}
	}
	return ""
}

func pickFloat(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch t := m[k].(type) {
		case float64:
			return t, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
