// Package config loads the service's flat key/value configuration from
// an INI file.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// ImageServiceEndpoint is the host/port/path triple the Fetcher pool
// builds its HTTP endpoint from.
type ImageServiceEndpoint struct {
	Host string
	Port string
	Path string
}

// URL returns the full endpoint as http://host:port followed by Path
// exactly as configured (no separator is inserted, so Path normally
// starts with "/").
func (e ImageServiceEndpoint) URL() string {
	return fmt.Sprintf("http://%s:%s%s", e.Host, e.Port, e.Path)
}

// Config is the parsed [service] section plus the verbatim
// consumer/producer client config maps.
type Config struct {
	ServerIP       string
	ServicePort    int
	ConsumerTopic  string
	ProducerTopic  string
	NumProcesses   int
	DesiredObjects map[string]struct{}
	ImageService   ImageServiceEndpoint

	// ConsumerConfig and ProducerConfig hold every key of their INI
	// section verbatim and are handed as-is to the broker client adapter.
	// broker.NewKafkaBroker applies only bootstrap.servers, group.id and
	// auto.offset.reset (enable.auto.commit via AutoCommit); other keys
	// are kept in the maps but not applied to the client.
	ConsumerConfig map[string]string
	ProducerConfig map[string]string
}

// IsDesired reports whether objectType is in the configured desired set.
// The comparison is case-sensitive.
func (c *Config) IsDesired(objectType string) bool {
	_, ok := c.DesiredObjects[objectType]
	return ok
}

// Load reads an INI file at path and validates required fields.
//
// desired_objects and image_service_definition have no sane default, so
// their absence is a configuration error rather than a silent fallback.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}

	svc := f.Section("service")

	port, err := svc.Key("service_port").Int()
	if err != nil {
		return nil, fmt.Errorf("config: service.service_port: %w", err)
	}
	numProcesses, err := svc.Key("num_processes").Int()
	if err != nil {
		return nil, fmt.Errorf("config: service.num_processes: %w", err)
	}

	desiredRaw := svc.Key("desired_objects").String()
	if strings.TrimSpace(desiredRaw) == "" {
		return nil, fmt.Errorf("config: service.desired_objects is required")
	}
	desired := make(map[string]struct{})
	for _, ot := range strings.Split(desiredRaw, ",") {
		ot = strings.TrimSpace(ot)
		if ot != "" {
			desired[ot] = struct{}{}
		}
	}

	svcDef := svc.Key("image_service_definition").String()
	if strings.TrimSpace(svcDef) == "" {
		return nil, fmt.Errorf("config: service.image_service_definition is required")
	}
	parts := strings.Split(svcDef, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("config: service.image_service_definition must be host,port,path, got %q", svcDef)
	}

	cfg := &Config{
		ServerIP:       svc.Key("server_ip").String(),
		ServicePort:    port,
		ConsumerTopic:  svc.Key("consumer_topic").String(),
		ProducerTopic:  svc.Key("producer_topic").String(),
		NumProcesses:   numProcesses,
		DesiredObjects: desired,
		ImageService: ImageServiceEndpoint{
			Host: strings.TrimSpace(parts[0]),
			Port: strings.TrimSpace(parts[1]),
			Path: strings.TrimSpace(parts[2]),
		},
		ConsumerConfig: sectionToMap(f, "consumer_config"),
		ProducerConfig: sectionToMap(f, "producer_config"),
	}

	for _, req := range []string{"bootstrap.servers", "group.id", "auto.offset.reset", "enable.auto.commit"} {
		if _, ok := cfg.ConsumerConfig[req]; !ok {
			return nil, fmt.Errorf("config: consumer_config.%s is required", req)
		}
	}
	if _, ok := cfg.ProducerConfig["bootstrap.servers"]; !ok {
		return nil, fmt.Errorf("config: producer_config.bootstrap.servers is required")
	}
	if cfg.ConsumerTopic == "" {
		return nil, fmt.Errorf("config: service.consumer_topic is required")
	}
	if cfg.ProducerTopic == "" {
		return nil, fmt.Errorf("config: service.producer_topic is required")
	}

	return cfg, nil
}

func sectionToMap(f *ini.File, name string) map[string]string {
	m := make(map[string]string)
	if !f.HasSection(name) {
		return m
	}
	sec := f.Section(name)
	for _, k := range sec.Keys() {
		m[k.Name()] = k.String()
	}
	return m
}

// autoCommit interprets enable.auto.commit as a bool, accepting the
// capitalized forms ("True"/"False") other INI tooling emits as well as
// "true"/"false".
func autoCommit(raw string) (bool, error) {
	b, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		return false, fmt.Errorf("config: enable.auto.commit: %w", err)
	}
	return b, nil
}

// AutoCommit parses ConsumerConfig's enable.auto.commit.
func (c *Config) AutoCommit() (bool, error) {
	return autoCommit(c.ConsumerConfig["enable.auto.commit"])
}
