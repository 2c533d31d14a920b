package routing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"
)

// ClusterCoordinatorConfig configures lease-based leader election for a
// multi-replica deployment. Only the elected leader runs the Updater's
// rebuild ticker; followers keep serving Router.Route against whatever
// Engine they last received.
type ClusterCoordinatorConfig struct {
	Namespace     string
	LeaseName     string
	Identity      string
	LeaseDuration time.Duration
	RenewDeadline time.Duration
	RetryPeriod   time.Duration
}

// DefaultClusterCoordinatorConfig returns the client-go package's
// recommended lease timings, with Identity derived from the pod hostname
// so replicas don't collide.
func DefaultClusterCoordinatorConfig() ClusterCoordinatorConfig {
	identity, err := os.Hostname()
	if err != nil || identity == "" {
		identity = "streamrouter-unknown"
	}
	return ClusterCoordinatorConfig{
		Namespace:     "default",
		LeaseName:     "streamrouter-engine-updater",
		Identity:      identity,
		LeaseDuration: 15 * time.Second,
		RenewDeadline: 10 * time.Second,
		RetryPeriod:   2 * time.Second,
	}
}

func (c ClusterCoordinatorConfig) Validate() error {
	if c.Namespace == "" || c.LeaseName == "" || c.Identity == "" {
		return fmt.Errorf("cluster coordinator: namespace, lease name and identity are required")
	}
	if c.RenewDeadline >= c.LeaseDuration {
		return fmt.Errorf("cluster coordinator: renew deadline must be shorter than lease duration")
	}
	return nil
}

// ClusterCoordinator wraps client-go's lease-based leader election so
// exactly one replica in a cluster runs the Updater at a time. Grounded
// on the teacher's internal/infrastructure/k8s client wrapper shape
// (interface + Config + constructor + Close), adapted from a Secrets
// reader to a leader-election driver.
type ClusterCoordinator struct {
	clientset *kubernetes.Clientset
	cfg       ClusterCoordinatorConfig
	logger    *slog.Logger
}

// NewClusterCoordinator builds a coordinator using in-cluster
// Kubernetes credentials.
func NewClusterCoordinator(cfg ClusterCoordinatorConfig, logger *slog.Logger) (*ClusterCoordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	restConfig, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("cluster coordinator: load in-cluster config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("cluster coordinator: build clientset: %w", err)
	}

	return &ClusterCoordinator{clientset: clientset, cfg: cfg, logger: logger}, nil
}

// Run blocks until ctx is cancelled, calling onStartLeading when this
// replica acquires the lease and onStopLeading when it loses it
// (including on ctx cancellation). A typical caller starts the Updater's
// ticker in onStartLeading and calls Updater.Stop in onStopLeading.
func (c *ClusterCoordinator) Run(ctx context.Context, onStartLeading func(ctx context.Context), onStopLeading func()) error {
	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      c.cfg.LeaseName,
			Namespace: c.cfg.Namespace,
		},
		Client: c.clientset.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: c.cfg.Identity,
		},
	}

	elector, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock:            lock,
		LeaseDuration:   c.cfg.LeaseDuration,
		RenewDeadline:   c.cfg.RenewDeadline,
		RetryPeriod:     c.cfg.RetryPeriod,
		ReleaseOnCancel: true,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(leadCtx context.Context) {
				c.logger.Info("cluster coordinator: acquired leadership", "identity", c.cfg.Identity)
				onStartLeading(leadCtx)
			},
			OnStoppedLeading: func() {
				c.logger.Info("cluster coordinator: lost leadership", "identity", c.cfg.Identity)
				onStopLeading()
			},
			OnNewLeader: func(identity string) {
				if identity != c.cfg.Identity {
					c.logger.Debug("cluster coordinator: observed new leader", "leader", identity)
				}
			},
		},
	})
	if err != nil {
		return fmt.Errorf("cluster coordinator: build leader elector: %w", err)
	}

	elector.Run(ctx)
	return nil
}
