package events

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads YAML from file path, expanding ${VAR} references so
// secrets can stay in the environment. If path is empty, returns zero value.
func LoadConfig(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &c); err != nil {
		return c, fmt.Errorf("parse events config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("events config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks enabled sinks and their filters.
func (c Config) Validate() error {
	var errs []error
	if w := c.Sinks.Webhook; w.Enabled {
		if !strings.HasPrefix(w.Endpoint, "http://") && !strings.HasPrefix(w.Endpoint, "https://") {
			errs = append(errs, fmt.Errorf("webhook: endpoint %q is not an http(s) URL", w.Endpoint))
		}
		errs = append(errs, validateFilter("webhook", w.Filter))
	}
	if r := c.Sinks.Redis; r.Enabled {
		if r.DSN == "" {
			errs = append(errs, errors.New("redis: dsn is required"))
		}
		errs = append(errs, validateFilter("redis", r.Filter))
	}
	if k := c.Sinks.Kafka; k.Enabled {
		if len(k.Brokers) == 0 {
			errs = append(errs, errors.New("kafka: brokers are required"))
		}
		errs = append(errs, validateFilter("kafka", k.Filter))
	}
	return errors.Join(errs...)
}

var knownEvents = []string{
	FieldCreated, FieldUpdated, FieldDeleted, FieldMoved, TemplateReplaced,
	PageCreated, PageUpdated, PageDeleted, PageMetaSaved,
}

// validateFilter rejects names and wildcards no event can match.
func validateFilter(sink string, f Filter) error {
	for _, pat := range f.Events {
		ok := false
		for _, name := range knownEvents {
			if (Filter{Events: []string{pat}}).Match(Event{Name: name}) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%s: filter %q matches no event", sink, pat)
		}
	}
	return nil
}
