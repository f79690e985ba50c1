package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	checkapp "github.com/khanhnv2901/seca-audit/internal/application/check"
	networkapp "github.com/khanhnv2901/seca-audit/internal/application/network"
	"github.com/khanhnv2901/seca-audit/internal/checker"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/events"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/netprobe"
	consts "github.com/khanhnv2901/seca-audit/internal/shared/constants"
)

// Settings are the runtime knobs read from config and flags.
type Settings struct {
	CheckTimeout time.Duration
	StepTimeout  time.Duration

	IPEndpoints  []string
	GeoEndpoint  string
	HTTPSHost    string
	IPv6Target   string
	ResolvConf   string
	DNSProbeName string
	RateLimit    float64
	GeoCacheSize int
}

// Container holds all application services
// This is a simple dependency injection container
type Container struct {
	Broker   *events.Broker
	Identity *netprobe.IdentClient

	// Services
	Checks  *checkapp.Orchestrator
	Profile *networkapp.Resolver
}

// NewContainer creates a new application service container
func NewContainer(settings Settings, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.StepTimeout <= 0 {
		settings.StepTimeout = consts.DefaultStepTimeout
	}

	broker := events.NewBroker()

	identity, err := netprobe.NewIdentClient(netprobe.IdentOptions{
		HTTP:        netprobe.NewHTTPClient(netprobe.FamilyAny, settings.StepTimeout),
		IPEndpoints: settings.IPEndpoints,
		GeoEndpoint: settings.GeoEndpoint,
		RateLimit:   settings.RateLimit,
		CacheSize:   settings.GeoCacheSize,
		Logger:      logger.Named("ident"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create identity client: %w", err)
	}

	orchestrator, err := checkapp.NewOrchestrator(Executors(settings, identity), checkapp.Config{
		Timeout: settings.CheckTimeout,
		Logger:  logger.Named("checks"),
		Broker:  broker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create check orchestrator: %w", err)
	}

	resolver := networkapp.NewResolver(identity, ProfileProbes(settings), networkapp.Config{
		StepTimeout: settings.StepTimeout,
		Logger:      logger.Named("profile"),
		Broker:      broker,
	})

	return &Container{
		Broker:   broker,
		Identity: identity,
		Checks:   orchestrator,
		Profile:  resolver,
	}, nil
}

// Executors returns one executor per catalog kind.
func Executors(settings Settings, identity checker.IdentityLookup) []checker.Checker {
	return []checker.Checker{
		&checker.DNSChecker{ResolvConf: settings.ResolvConf, ProbeName: settings.DNSProbeName},
		&checker.ProxyChecker{},
		&checker.FirewallChecker{},
		&checker.ExposureChecker{Lookup: identity},
		&checker.VPNChecker{},
		&checker.IPv6Checker{Target: settings.IPv6Target},
		&checker.HTTPSChecker{Host: settings.HTTPSHost},
	}
}

// ProfileProbes builds the boolean probes of the network profile.
func ProfileProbes(settings Settings) networkapp.Probes {
	host := settings.HTTPSHost
	if host == "" {
		host = "www.apple.com"
	}
	httpsClient := netprobe.NewHTTPClient(netprobe.FamilyAny, settings.StepTimeout)

	return networkapp.Probes{
		VPN: func(ctx context.Context) (bool, error) {
			ifaces, err := netprobe.ListInterfaces(ctx)
			if err != nil {
				return false, err
			}
			return len(netprobe.ActiveTunnels(ifaces)) > 0, nil
		},
		IPv6: func(context.Context) (bool, error) {
			addrs, err := netprobe.GlobalIPv6Addrs()
			if err != nil {
				return false, err
			}
			return len(addrs) > 0, nil
		},
		HTTPS: func(ctx context.Context) (bool, error) {
			return netprobe.HTTPSReachable(ctx, httpsClient, "https://"+host+"/")
		},
	}
}

// Close stops both engines and waits for in-flight work.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	_ = c.Checks.Close()
	return c.Profile.Close()
}
