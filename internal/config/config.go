// Package config implements PRISM's configuration surface: a frozen record
// consulted through accessors (spec.md 9, replacing the source's global
// configuration singleton), loaded from YAML and validated once at startup.
//
// PRISM does not hot-reload configuration; an epoch transition is the
// mechanism by which configuration effectively changes, so there is no
// SIGHUP path. internal/epoch's CONFIG command carries no patch itself; the
// caller applies any change before enqueueing it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration record for a PRISM node or client.
// Every field corresponds to a key in spec.md section 6's configuration
// table; nested structs group keys by the component that consumes them.
type Config struct {
	PseudonymSalt string `yaml:"pseudonym_salt"`

	Client   ClientConfig   `yaml:"client"`
	MPC      MPCConfig      `yaml:"mpc"`
	ARK      ARKConfig      `yaml:"ark"`
	LinkState LinkStateConfig `yaml:"link_state"`
	NARK     NARKConfig     `yaml:"nark"`
	Flood    FloodConfig    `yaml:"flood"`
	VRF      VRFConfig      `yaml:"vrf"`
	Dedupe   DedupeConfig   `yaml:"dedupe"`
	Send     SendConfig     `yaml:"send"`
	Mix      MixConfig      `yaml:"mix"`
}

// ClientConfig holds the dropbox/client shard and polling parameters.
type ClientConfig struct {
	DropboxCount         int `yaml:"dropbox_count"`
	DropboxesPerClient   int `yaml:"dropboxes_per_client"`
	DropboxSendRedundancy int `yaml:"dropbox_send_redundancy"`
	PollTimingMS         int `yaml:"poll_timing_ms"`
	OnionLayers          int `yaml:"onion_layers"`
}

// MPCConfig holds secret-sharing geometry and dropbox operational limits.
type MPCConfig struct {
	NParties                 int           `yaml:"nparties"`
	Threshold                int           `yaml:"threshold"`
	ModulusHex               string        `yaml:"modulus_hex"`
	PreproductBatchSize      int           `yaml:"preproduct_batch_size"`
	PreproductRefreshThresh  float64       `yaml:"preproduct_refresh_threshold"`
	ConcurrentStoreLimit     int           `yaml:"concurrent_store_limit"`
	ConcurrentFindLimit      int           `yaml:"concurrent_find_limit"`
	StoreTimeout             time.Duration `yaml:"store_timeout"`
	CheckTimeout             time.Duration `yaml:"check_timeout"`
	RetrieveTimeout          time.Duration `yaml:"retrieve_timeout"`
	BatchTimeout             time.Duration `yaml:"batch_timeout"`
	HelloTimeout             time.Duration `yaml:"hello_timeout"`
	BaseOpTimeout            time.Duration `yaml:"base_op_timeout"`
	FindLimit                int           `yaml:"find_limit"`
	ReplyRetry               time.Duration `yaml:"reply_retry_seconds"`
	DBReplyTimeout           time.Duration `yaml:"db_reply_timeout"`
}

// ARKConfig holds ARK broadcast cadence and TTL parameters.
type ARKConfig struct {
	SleepTime        time.Duration `yaml:"sleep_time"`
	Timeout          time.Duration `yaml:"timeout"`
	ExpirationFactor float64       `yaml:"expiration_factor"`
	MaxMTU           int           `yaml:"max_mtu"`
}

// LinkStateConfig holds LSP protocol tuning.
type LinkStateConfig struct {
	TTLMax                time.Duration `yaml:"ttl_max"`
	HopsMax               int           `yaml:"hops_max"`
	AliveFactor           float64       `yaml:"alive_factor"`
	PresumedDeadTimeout   time.Duration `yaml:"presumed_dead_timeout"`
	NeighborDiscoverySleep time.Duration `yaml:"neighbor_discovery_sleep"`
	QueueRateLimit        int           `yaml:"q_rate_limit"`
	MaxDiscoveryAttempts  int           `yaml:"max_discovery_attempts"`
}

// NARKConfig holds death-notice pacing.
type NARKConfig struct {
	ConfirmationSeconds time.Duration `yaml:"confirmation_seconds"`
	TimeoutSeconds      time.Duration `yaml:"timeout_seconds"`
}

// FloodConfig holds gossip fanout parameters.
type FloodConfig struct {
	MaxHops       int           `yaml:"max_hops"`
	GossipR       int           `yaml:"gossip_r"`
	SpreadSeconds time.Duration `yaml:"spread_seconds"`
	ViaDirectOnly bool          `yaml:"via_direct_only"`
}

// VRFConfig holds sortition distribution parameters.
type VRFConfig struct {
	POff     float64 `yaml:"p_off"`
	PEmix    float64 `yaml:"p_emix"`
	NRanges  int     `yaml:"n_ranges"`
	MReplicas int    `yaml:"m_replicas"`
	Seed     string  `yaml:"seed"`
}

// DedupeConfig holds receive-dedupe parameters.
type DedupeConfig struct {
	SeenTTL   time.Duration `yaml:"seen_ttl"`
	SeenSleep time.Duration `yaml:"seen_sleep"`
}

// SendConfig holds send resilience parameters.
type SendConfig struct {
	EmitRetries      int           `yaml:"emit_retries"`
	SleepTryEmitting time.Duration `yaml:"sleep_try_emitting"`
	HoldPackageSec   time.Duration `yaml:"hold_package_sec"`
}

// MixConfig selects and tunes the per-message mixing strategy an EMIX
// role applies before forwarding.
type MixConfig struct {
	Strategy          string        `yaml:"strategy"`
	PoissonLambda     float64       `yaml:"poisson_lambda"`
	PoolThreshold     int           `yaml:"pool_threshold"`
	PoolFlushInterval time.Duration `yaml:"pool_flush_interval"`
}

// Defaults returns a Config populated with the same shape of reasonable
// defaults spec.md's configuration table implies, mirroring the teacher
// pack's Defaults()-then-override-from-file idiom.
func Defaults() *Config {
	return &Config{
		PseudonymSalt: "prism-default-salt",
		Client: ClientConfig{
			DropboxCount:          4,
			DropboxesPerClient:    1,
			DropboxSendRedundancy: 2,
			PollTimingMS:          5000,
			OnionLayers:           3,
		},
		MPC: MPCConfig{
			NParties:                4,
			Threshold:               2,
			PreproductBatchSize:     256,
			PreproductRefreshThresh: 0.25,
			ConcurrentStoreLimit:    8,
			ConcurrentFindLimit:     8,
			StoreTimeout:            10 * time.Second,
			CheckTimeout:            10 * time.Second,
			RetrieveTimeout:         10 * time.Second,
			BatchTimeout:            30 * time.Second,
			HelloTimeout:            5 * time.Second,
			BaseOpTimeout:           10 * time.Second,
			FindLimit:               10,
			ReplyRetry:              2 * time.Second,
			DBReplyTimeout:          5 * time.Second,
		},
		ARK: ARKConfig{
			SleepTime:        30 * time.Second,
			Timeout:          5 * time.Minute,
			ExpirationFactor: 3.0,
			MaxMTU:           4096,
		},
		LinkState: LinkStateConfig{
			TTLMax:                 10 * time.Minute,
			HopsMax:                16,
			AliveFactor:            3.0,
			PresumedDeadTimeout:    15 * time.Second,
			NeighborDiscoverySleep: 5 * time.Second,
			QueueRateLimit:         50,
			MaxDiscoveryAttempts:   5,
		},
		NARK: NARKConfig{
			ConfirmationSeconds: 10 * time.Second,
			TimeoutSeconds:      30 * time.Second,
		},
		Flood: FloodConfig{
			MaxHops:       16,
			GossipR:       0,
			SpreadSeconds: 2 * time.Second,
			ViaDirectOnly: false,
		},
		VRF: VRFConfig{
			POff:      0.2,
			PEmix:     0.3,
			NRanges:   1,
			MReplicas: 1,
		},
		Dedupe: DedupeConfig{
			SeenTTL:   5 * time.Minute,
			SeenSleep: 10 * time.Second,
		},
		Send: SendConfig{
			EmitRetries:      3,
			SleepTryEmitting: time.Second,
			HoldPackageSec:   5 * time.Second,
		},
		Mix: MixConfig{
			Strategy:          "IdempotentMix",
			PoissonLambda:     1.0,
			PoolThreshold:     8,
			PoolFlushInterval: time.Second,
		},
	}
}

// Load reads and validates a YAML configuration file, applying Defaults()
// for anything the file omits.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

// Validate enforces the invariants a PRISM process refuses to start without.
func (c *Config) Validate() error {
	if c.MPC.Threshold > c.MPC.NParties {
		return fmt.Errorf("config: threshold %d exceeds nparties %d", c.MPC.Threshold, c.MPC.NParties)
	}
	if c.MPC.NParties < 3 {
		return fmt.Errorf("config: nparties must be >= 3, got %d", c.MPC.NParties)
	}
	if c.Client.OnionLayers < 1 {
		return fmt.Errorf("config: onion_layers must be >= 1")
	}
	if c.Client.DropboxCount < 1 {
		return fmt.Errorf("config: dropbox_count must be >= 1")
	}
	sum := c.VRF.POff + c.VRF.PEmix
	if sum < 0 || sum > 1 {
		return fmt.Errorf("config: vrf_p_off + vrf_p_emix must be in [0,1], got %f", sum)
	}
	return nil
}
