package checker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
)

// ExposureChecker reports the public IP and location remote services see.
type ExposureChecker struct {
	Lookup IdentityLookup
}

func (c *ExposureChecker) Kind() check.Kind { return check.KindIPExposure }

func (c *ExposureChecker) Check(ctx context.Context) (check.Outcome, error) {
	if c.Lookup == nil {
		return check.Outcome{}, fmt.Errorf("no identity lookup configured")
	}

	ip, err := c.Lookup.PublicIP(ctx)
	if err != nil {
		return check.Outcome{}, err
	}

	loc, err := c.Lookup.Locate(ctx, ip)
	if err != nil {
		outcome := check.NewOutcome(check.CheckStatusInfo, fmt.Sprintf("Public IP %s", ip))
		outcome.AddDetail("IP", ip)
		outcome.AddNote("Geolocation unavailable: %v", err)
		return outcome, nil
	}

	headline := fmt.Sprintf("Public IP %s", ip)
	if place := loc.Place(); place != "" {
		headline = fmt.Sprintf("Public IP %s (%s)", ip, place)
	}
	outcome := check.NewOutcome(check.CheckStatusInfo, headline)
	outcome.AddDetail("IP", ip)
	outcome.AddDetail("Geo", loc.Place())
	if loc.HasCoordinates {
		outcome.AddDetail("Coordinates",
			strconv.FormatFloat(loc.Latitude, 'f', -1, 64)+","+strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	}
	outcome.AddDetail("ISP", loc.ISP)
	outcome.AddDetail("ASN", loc.ASN)
	outcome.AddDetail("Timezone", loc.Timezone)
	return outcome, nil
}
