package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	s := Default()
	if s.DiscoveryDir != DefaultDiscoveryDir {
		t.Errorf("DiscoveryDir = %q, want %q", s.DiscoveryDir, DefaultDiscoveryDir)
	}
	if s.RedisAddr != DefaultRedisAddr {
		t.Errorf("RedisAddr = %q, want %q", s.RedisAddr, DefaultRedisAddr)
	}
	if s.WorkerPoolSize != DefaultWorkerPoolSize {
		t.Errorf("WorkerPoolSize = %d, want %d", s.WorkerPoolSize, DefaultWorkerPoolSize)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	s, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom(missing) error = %v, want nil", err)
	}
	if s.RedisAddr != DefaultRedisAddr {
		t.Errorf("missing file should fall back to Default(), got RedisAddr = %q", s.RedisAddr)
	}
}

func TestLoadFromOverridesOnlySetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := "redis_addr: redis.fabric.internal:6379\nworker_pool_size: 32\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if s.RedisAddr != "redis.fabric.internal:6379" {
		t.Errorf("RedisAddr = %q, want override applied", s.RedisAddr)
	}
	if s.WorkerPoolSize != 32 {
		t.Errorf("WorkerPoolSize = %d, want 32", s.WorkerPoolSize)
	}
	// Fields absent from the file must still carry their defaults.
	if s.DiscoveryDir != DefaultDiscoveryDir {
		t.Errorf("DiscoveryDir = %q, want default preserved", s.DiscoveryDir)
	}
	if s.SessionTTLHours != DefaultSessionTTLHours {
		t.Errorf("SessionTTLHours = %d, want default preserved", s.SessionTTLHours)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	s := Default()
	s.DiscoveryDir = "/var/lib/bdctl/discovery"
	s.DeviceClassOverrides = map[string]string{"spine-99": "superspine"}

	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.DiscoveryDir != s.DiscoveryDir {
		t.Errorf("DiscoveryDir round-trip = %q, want %q", loaded.DiscoveryDir, s.DiscoveryDir)
	}
	if loaded.DeviceClassOverrides["spine-99"] != "superspine" {
		t.Errorf("DeviceClassOverrides round-trip = %v, want spine-99=superspine", loaded.DeviceClassOverrides)
	}
}

func TestDefaultSettingsPath(t *testing.T) {
	p := DefaultSettingsPath()
	if filepath.Base(p) != "config.yaml" {
		t.Errorf("DefaultSettingsPath() = %q, want a config.yaml path", p)
	}
}
