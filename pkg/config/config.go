// Package config loads bdctl's settings: discovery input paths, the BD
// Store's Redis connection, pipeline worker-pool sizing, edit-session and
// deploy timeouts, and audit log rotation. Adapted from the teacher's
// pkg/settings/settings.go, switched from its JSON file to YAML (the
// teacher already depends on gopkg.in/yaml.v3 for its lab topology and
// test-scenario files) since this tool's settings include nested device
// override tables better expressed as YAML.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDiscoveryDir is where per-device CLI dumps are read from
	// when no override is configured (spec §4.C1).
	DefaultDiscoveryDir = "/etc/bdctl/discovery"

	// DefaultRedisAddr is the BD Store's default Redis connection.
	DefaultRedisAddr = "127.0.0.1:6379"
	DefaultRedisDB   = 0

	DefaultWorkerPoolSize   = 16 // C1/C2/C3/C4 parallel stage pool size
	DefaultSessionTTLHours  = 24
	DefaultDeployTimeoutSec = 60

	DefaultAuditMaxSizeMB  = 10
	DefaultAuditMaxBackups = 10
)

// Settings holds bdctl's persistent configuration.
type Settings struct {
	DiscoveryDir string `yaml:"discovery_dir,omitempty"`

	RedisAddr string `yaml:"redis_addr,omitempty"`
	RedisDB   int    `yaml:"redis_db,omitempty"`

	WorkerPoolSize int `yaml:"worker_pool_size,omitempty"`

	SessionTTLHours  int `yaml:"session_ttl_hours,omitempty"`
	DeployTimeoutSec int `yaml:"deploy_timeout_sec,omitempty"`

	// DeviceClassOverrides maps a device name to a manual class override
	// (spec §4.C3: "pattern-table match... with a manual override map").
	DeviceClassOverrides map[string]string `yaml:"device_class_overrides,omitempty"`

	// InfrastructureBundlePatterns overrides the default bundle-60000*/
	// bundle-6000N infrastructure patterns (spec §4.C7 customer-editable
	// filter), for fabrics with different bundle naming.
	InfrastructureBundlePatterns []string `yaml:"infrastructure_bundle_patterns,omitempty"`

	AuditLogPath    string `yaml:"audit_log_path,omitempty"`
	AuditMaxSizeMB  int    `yaml:"audit_max_size_mb,omitempty"`
	AuditMaxBackups int    `yaml:"audit_max_backups,omitempty"`
}

// Default returns settings that work out of the box against a local Redis.
func Default() *Settings {
	return &Settings{
		DiscoveryDir:     DefaultDiscoveryDir,
		RedisAddr:        DefaultRedisAddr,
		RedisDB:          DefaultRedisDB,
		WorkerPoolSize:   DefaultWorkerPoolSize,
		SessionTTLHours:  DefaultSessionTTLHours,
		DeployTimeoutSec: DefaultDeployTimeoutSec,
		AuditMaxSizeMB:   DefaultAuditMaxSizeMB,
		AuditMaxBackups:  DefaultAuditMaxBackups,
	}
}

// DefaultSettingsPath returns "$HOME/.bdctl/config.yaml".
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/bdctl_config.yaml"
	}
	return filepath.Join(home, ".bdctl", "config.yaml")
}

// Load reads settings from the default location, falling back to Default()
// for any field left unset (and for a missing file entirely).
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path.
func LoadFrom(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	var file Settings
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	mergeOverrides(s, &file)
	return s, nil
}

// mergeOverrides copies every non-zero field of override onto base.
func mergeOverrides(base, override *Settings) {
	if override.DiscoveryDir != "" {
		base.DiscoveryDir = override.DiscoveryDir
	}
	if override.RedisAddr != "" {
		base.RedisAddr = override.RedisAddr
	}
	if override.RedisDB != 0 {
		base.RedisDB = override.RedisDB
	}
	if override.WorkerPoolSize != 0 {
		base.WorkerPoolSize = override.WorkerPoolSize
	}
	if override.SessionTTLHours != 0 {
		base.SessionTTLHours = override.SessionTTLHours
	}
	if override.DeployTimeoutSec != 0 {
		base.DeployTimeoutSec = override.DeployTimeoutSec
	}
	if len(override.DeviceClassOverrides) > 0 {
		base.DeviceClassOverrides = override.DeviceClassOverrides
	}
	if len(override.InfrastructureBundlePatterns) > 0 {
		base.InfrastructureBundlePatterns = override.InfrastructureBundlePatterns
	}
	if override.AuditLogPath != "" {
		base.AuditLogPath = override.AuditLogPath
	}
	if override.AuditMaxSizeMB != 0 {
		base.AuditMaxSizeMB = override.AuditMaxSizeMB
	}
	if override.AuditMaxBackups != 0 {
		base.AuditMaxBackups = override.AuditMaxBackups
	}
}

// Save writes settings to the default location.
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path.
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
