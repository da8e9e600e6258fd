package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/sensenrich/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "service.ini")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
[service]
server_ip = 0.0.0.0
service_port = 8080
consumer_topic = mlengine-raw
producer_topic = mlengine-enriched
num_processes = 4
desired_objects = VEHICLE,PERSON
image_service_definition = images.internal,9000,/v1/fetch

[consumer_config]
bootstrap.servers = localhost:9092
group.id = sensenrich
auto.offset.reset = earliest
enable.auto.commit = false

[producer_config]
bootstrap.servers = localhost:9092
`

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, validConfig)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConsumerTopic != "mlengine-raw" {
		t.Errorf("ConsumerTopic = %q", cfg.ConsumerTopic)
	}
	if cfg.ProducerTopic != "mlengine-enriched" {
		t.Errorf("ProducerTopic = %q", cfg.ProducerTopic)
	}
	if !cfg.IsDesired("VEHICLE") {
		t.Error("expected VEHICLE to be desired")
	}
	if cfg.IsDesired("vehicle") {
		t.Error("desired_objects match should be case-sensitive")
	}
	if cfg.ImageService.URL() != "http://images.internal:9000/v1/fetch" {
		t.Errorf("ImageService.URL() = %q", cfg.ImageService.URL())
	}
	if cfg.ConsumerConfig["group.id"] != "sensenrich" {
		t.Errorf("ConsumerConfig[group.id] = %q", cfg.ConsumerConfig["group.id"])
	}
}

func TestLoad_MissingDesiredObjects(t *testing.T) {
	body := `
[service]
server_ip = 0.0.0.0
service_port = 8080
consumer_topic = in
producer_topic = out
num_processes = 1
image_service_definition = h,1,/p

[consumer_config]
bootstrap.servers = localhost:9092
group.id = g
auto.offset.reset = earliest
enable.auto.commit = false

[producer_config]
bootstrap.servers = localhost:9092
`
	path := writeConfig(t, body)
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error for missing desired_objects")
	}
}

func TestLoad_MissingConsumerConfigKey(t *testing.T) {
	body := `
[service]
server_ip = 0.0.0.0
service_port = 8080
consumer_topic = in
producer_topic = out
num_processes = 1
desired_objects = VEHICLE
image_service_definition = h,1,/p

[consumer_config]
bootstrap.servers = localhost:9092

[producer_config]
bootstrap.servers = localhost:9092
`
	path := writeConfig(t, body)
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error for missing consumer_config.group.id")
	}
}

func TestAutoCommit(t *testing.T) {
	path := writeConfig(t, validConfig)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := cfg.AutoCommit()
	if err != nil {
		t.Fatalf("AutoCommit: %v", err)
	}
	if got {
		t.Error("expected AutoCommit() = false")
	}
}
