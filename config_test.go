package eventbus

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type configFakeEvent struct{}

func TestLoadConfig_AppliesAllSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eventbus.yaml")
	body := `
default_cache_size: 2
topic_cache_sizes:
  orders.created: 5
topic_pattern_cache_sizes:
  "alerts\\..*": 3
reaper_high_water: 10
reaper_low_water: 2
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultCacheSize != 2 {
		t.Errorf("expected default cache size 2, got %d", cfg.DefaultCacheSize)
	}

	svc := New()
	if err := cfg.Apply(svc); err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	if got := svc.CleanupStartThreshold(); got == nil || *got != 10 {
		t.Errorf("expected reaper high water 10, got %v", got)
	}

	svc.PublishTopic("orders.created", "p1")
	svc.PublishTopic("orders.created", "p2")
	svc.PublishTopic("orders.created", "p3")
	svc.PublishTopic("orders.created", "p4")
	svc.PublishTopic("orders.created", "p5")
	svc.PublishTopic("orders.created", "p6")
	if got := svc.GetCachedTopicData("orders.created"); len(got) != 5 {
		t.Errorf("expected exact-topic cap 5, got %d", len(got))
	}

	svc.PublishTopic("alerts.fire", "a")
	svc.PublishTopic("alerts.fire", "b")
	svc.PublishTopic("alerts.fire", "c")
	svc.PublishTopic("alerts.fire", "d")
	if got := svc.GetCachedTopicData("alerts.fire"); len(got) != 3 {
		t.Errorf("expected pattern cap 3, got %d", len(got))
	}

	et := reflect.TypeOf(configFakeEvent{})
	svc.Publish(configFakeEvent{})
	svc.Publish(configFakeEvent{})
	svc.Publish(configFakeEvent{})
	if got, err := svc.GetCachedEvents(et); err != nil || len(got) != 2 {
		t.Errorf("expected default cache size 2, got %d err=%v", len(got), err)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/eventbus.yaml"); err == nil {
		t.Fatal("expected an error reading a missing config file")
	}
}

func TestConfig_Apply_InvalidTopicPattern(t *testing.T) {
	cfg := &Config{
		TopicPatternCacheSizes: map[string]int{"(": 1},
	}
	svc := New()
	defer svc.Close()
	if err := cfg.Apply(svc); err == nil {
		t.Fatal("expected an error compiling an invalid topic pattern")
	}
}
