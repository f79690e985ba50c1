package network

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/seca-audit/internal/domain/network"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/events"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/netprobe"
	consts "github.com/khanhnv2901/seca-audit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

// IdentityLookup resolves the public IP and what is known about it.
type IdentityLookup interface {
	PublicIP(ctx context.Context) (string, error)
	Locate(ctx context.Context, ip string) (netprobe.Location, error)
}

// Probe answers one yes/no question about the network.
type Probe func(ctx context.Context) (bool, error)

// Probes are independent of the identity lookup. A nil probe is skipped and
// its flag keeps its previous value.
type Probes struct {
	VPN   Probe
	IPv6  Probe
	HTTPS Probe
}

type Config struct {
	StepTimeout time.Duration
	Logger      *zap.Logger
	Broker      *events.Broker
	Now         func() time.Time
}

// State is what presentation renders: the current snapshot plus the
// loading flag and the last resolution error.
type State struct {
	Snapshot  network.Snapshot
	IsLoading bool
	Error     string
}

// Resolver keeps the current network profile up to date.
type Resolver struct {
	identity    IdentityLookup
	probes      Probes
	stepTimeout time.Duration
	logger      *zap.Logger
	broker      *events.Broker
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	snapshot network.Snapshot
	loading  chan struct{}
	lastErr  string
	closed   bool
}

func NewResolver(identity IdentityLookup, probes Probes, cfg Config) *Resolver {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = consts.DefaultStepTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		identity:    identity,
		probes:      probes,
		stepTimeout: cfg.StepTimeout,
		logger:      cfg.Logger,
		broker:      cfg.Broker,
		now:         cfg.Now,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Refresh starts a resolution unless one is already in flight, in which case
// it returns that run's channel. IsLoading is true when Refresh returns.
func (r *Resolver) Refresh() (<-chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, sharedErrors.ErrResolverClosed
	}
	if r.loading != nil {
		return r.loading, nil
	}

	done := make(chan struct{})
	r.loading = done
	r.broker.Publish(events.Event{Type: events.ProfileLoading})

	r.wg.Add(1)
	go r.run(done)
	return done, nil
}

// State returns the snapshot, loading flag and error as one consistent view.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		Snapshot:  r.snapshot,
		IsLoading: r.loading != nil,
		Error:     r.lastErr,
	}
}

// Close cancels an in-flight refresh, waits for it and rejects new ones.
func (r *Resolver) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	return nil
}

type identityStep struct {
	ip     string
	ipErr  error
	loc    netprobe.Location
	locErr error
}

type probeStep struct {
	name  string
	value bool
	err   error
	ran   bool
}

func (p probeStep) update() *bool {
	if !p.ran || p.err != nil {
		return nil
	}
	v := p.value
	return &v
}

func (r *Resolver) run(done chan struct{}) {
	defer r.wg.Done()

	var (
		ident            identityStep
		vpn, ipv6, https probeStep
		g                errgroup.Group
	)
	g.Go(func() error {
		ident = r.resolveIdentity(r.ctx)
		return nil
	})
	g.Go(func() error {
		vpn = r.runProbe(r.ctx, "vpn", r.probes.VPN)
		return nil
	})
	g.Go(func() error {
		ipv6 = r.runProbe(r.ctx, "ipv6", r.probes.IPv6)
		return nil
	})
	g.Go(func() error {
		https = r.runProbe(r.ctx, "https", r.probes.HTTPS)
		return nil
	})
	_ = g.Wait()

	var probeErrs *multierror.Error
	for _, p := range []probeStep{vpn, ipv6, https} {
		if p.err != nil {
			probeErrs = multierror.Append(probeErrs, fmt.Errorf("%s probe: %w", p.name, p.err))
		}
	}
	if ident.ipErr == nil && ident.locErr != nil {
		probeErrs = multierror.Append(probeErrs, fmt.Errorf("geolocation: %w", ident.locErr))
	}

	r.mu.Lock()
	update := network.Update{
		VPNActive:      vpn.update(),
		IPv6Enabled:    ipv6.update(),
		HTTPSReachable: https.update(),
	}
	if ident.ipErr == nil {
		update.Identity = mergeIdentity(r.snapshot, ident)
		update.ResolvedAt = r.now()
		r.lastErr = ""
	} else {
		r.lastErr = "public IP lookup failed: " + ident.ipErr.Error()
	}
	r.snapshot = r.snapshot.Apply(update)
	r.loading = nil
	snapshot, lastErr := r.snapshot, r.lastErr
	r.mu.Unlock()

	if err := probeErrs.ErrorOrNil(); err != nil {
		r.logger.Warn("profile_probes_failed", zap.Error(err))
	}
	if lastErr != "" {
		r.logger.Warn("profile_refresh_failed", zap.String("error", lastErr))
		r.broker.Publish(events.Event{Type: events.ProfileFailed, Message: lastErr})
	} else {
		ip, _ := snapshot.PublicIP()
		geo, _ := snapshot.Geo()
		r.logger.Info("profile_refreshed",
			zap.String("public_ip", ip),
			zap.String("geo", geo),
			zap.Bool("vpn_active", snapshot.VPNActive()),
			zap.Bool("ipv6_enabled", snapshot.IPv6Enabled()),
			zap.Bool("https_reachable", snapshot.HTTPSReachable()),
		)
		r.broker.Publish(events.Event{Type: events.ProfileUpdated, Message: describe(snapshot)})
	}

	close(done)
}

// resolveIdentity looks up the public IP and then locates it. Each lookup
// gets its own timeout.
func (r *Resolver) resolveIdentity(ctx context.Context) identityStep {
	if r.identity == nil {
		return identityStep{ipErr: fmt.Errorf("%w: no identity lookup configured", sharedErrors.ErrNoPublicIP)}
	}

	ipCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	ip, err := r.identity.PublicIP(ipCtx)
	cancel()
	if err == nil && strings.TrimSpace(ip) == "" {
		err = sharedErrors.ErrNoPublicIP
	}
	if err != nil {
		return identityStep{ipErr: err}
	}

	geoCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	loc, err := r.identity.Locate(geoCtx, ip)
	cancel()
	return identityStep{ip: ip, loc: loc, locErr: err}
}

func (r *Resolver) runProbe(ctx context.Context, name string, probe Probe) probeStep {
	if probe == nil {
		return probeStep{name: name}
	}
	probeCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()
	v, err := probe(probeCtx)
	return probeStep{name: name, value: v, err: err, ran: true}
}

// mergeIdentity builds the identity for a successful IP lookup. When the
// location lookup failed but the IP has not changed, the previous location
// data still describes it and is kept.
func mergeIdentity(prev network.Snapshot, step identityStep) *network.Identity {
	if step.locErr != nil {
		if old, ok := prev.Identity(); ok && old.PublicIP == step.ip {
			return &old
		}
		return &network.Identity{PublicIP: step.ip}
	}

	id := &network.Identity{
		PublicIP: step.ip,
		Geo:      step.loc.Place(),
		ISP:      step.loc.ISP,
		ASN:      step.loc.ASN,
		Timezone: step.loc.Timezone,
	}
	if step.loc.HasCoordinates {
		id.Coordinates = &network.Coordinates{Latitude: step.loc.Latitude, Longitude: step.loc.Longitude}
	}
	return id
}

func describe(s network.Snapshot) string {
	ip, ok := s.PublicIP()
	if !ok {
		return "no public IP"
	}
	if geo, ok := s.Geo(); ok {
		return ip + " (" + geo + ")"
	}
	return ip
}
