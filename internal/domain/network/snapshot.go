package network

import (
	"encoding/json"
	"strconv"
	"time"
)

// Coordinates are either present as a pair or absent entirely.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

// Identity is the externally visible identity of this machine. It is
// resolved and replaced as one unit.
type Identity struct {
	PublicIP    string
	Geo         string
	ISP         string
	ASN         string
	Timezone    string
	Coordinates *Coordinates
}

func (id Identity) clone() *Identity {
	out := id
	if id.Coordinates != nil {
		c := *id.Coordinates
		out.Coordinates = &c
	}
	return &out
}

// Snapshot is one resolved network profile. The zero value is the
// never-resolved profile with every boolean false.
type Snapshot struct {
	identity       *Identity
	vpnActive      bool
	ipv6Enabled    bool
	httpsReachable bool
	resolvedAt     time.Time
}

// Update carries the outcome of one refresh. Nil fields are absent and leave
// the previous value in place.
type Update struct {
	Identity       *Identity
	VPNActive      *bool
	IPv6Enabled    *bool
	HTTPSReachable *bool
	ResolvedAt     time.Time
}

// Apply merges an update into the snapshot and returns the new snapshot.
func (s Snapshot) Apply(u Update) Snapshot {
	next := s
	if u.Identity != nil {
		next.identity = u.Identity.clone()
	}
	if u.VPNActive != nil {
		next.vpnActive = *u.VPNActive
	}
	if u.IPv6Enabled != nil {
		next.ipv6Enabled = *u.IPv6Enabled
	}
	if u.HTTPSReachable != nil {
		next.httpsReachable = *u.HTTPSReachable
	}
	if !u.ResolvedAt.IsZero() {
		next.resolvedAt = u.ResolvedAt
	}
	return next
}

// Identity returns a copy of the resolved identity, if any.
func (s Snapshot) Identity() (Identity, bool) {
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity.clone(), true
}

func (s Snapshot) PublicIP() (string, bool) {
	if s.identity == nil || s.identity.PublicIP == "" {
		return "", false
	}
	return s.identity.PublicIP, true
}

func (s Snapshot) Geo() (string, bool) {
	if s.identity == nil || s.identity.Geo == "" {
		return "", false
	}
	return s.identity.Geo, true
}

func (s Snapshot) ISP() (string, bool) {
	if s.identity == nil || s.identity.ISP == "" {
		return "", false
	}
	return s.identity.ISP, true
}

func (s Snapshot) ASN() (string, bool) {
	if s.identity == nil || s.identity.ASN == "" {
		return "", false
	}
	return s.identity.ASN, true
}

func (s Snapshot) Timezone() (string, bool) {
	if s.identity == nil || s.identity.Timezone == "" {
		return "", false
	}
	return s.identity.Timezone, true
}

func (s Snapshot) Coordinates() (Coordinates, bool) {
	if s.identity == nil || s.identity.Coordinates == nil {
		return Coordinates{}, false
	}
	return *s.identity.Coordinates, true
}

func (s Snapshot) VPNActive() bool {
	return s.vpnActive
}

func (s Snapshot) IPv6Enabled() bool {
	return s.ipv6Enabled
}

func (s Snapshot) HTTPSReachable() bool {
	return s.httpsReachable
}

func (s Snapshot) ResolvedAt() time.Time {
	return s.resolvedAt
}

type snapshotJSON struct {
	PublicIP       string     `json:"public_ip,omitempty"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	Geo            string     `json:"geo,omitempty"`
	ISP            string     `json:"isp,omitempty"`
	ASN            string     `json:"asn,omitempty"`
	Timezone       string     `json:"timezone,omitempty"`
	VPNActive      bool       `json:"vpn_active"`
	IPv6Enabled    bool       `json:"ipv6_enabled"`
	HTTPSReachable bool       `json:"https_reachable"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		VPNActive:      s.vpnActive,
		IPv6Enabled:    s.ipv6Enabled,
		HTTPSReachable: s.httpsReachable,
	}
	if s.identity != nil {
		out.PublicIP = s.identity.PublicIP
		out.Geo = s.identity.Geo
		out.ISP = s.identity.ISP
		out.ASN = s.identity.ASN
		out.Timezone = s.identity.Timezone
		if c := s.identity.Coordinates; c != nil {
			lat, lon := c.Latitude, c.Longitude
			out.Latitude = &lat
			out.Longitude = &lon
		}
	}
	if !s.resolvedAt.IsZero() {
		at := s.resolvedAt
		out.ResolvedAt = &at
	}
	return json.Marshal(out)
}
