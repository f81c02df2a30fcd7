package server

import (
	"database/sql"
	"fmt"

	"github.com/faciam-dev/guidecms/internal/events"
	"github.com/faciam-dev/guidecms/internal/logger"
)

// initEvents installs the global dispatcher with the sinks named in the
// events config. Failed deliveries land in the events_failed table.
func initEvents(db *sql.DB, cfg Config) error {
	evtConf, err := events.LoadConfig(cfg.EventsConfig)
	if err != nil {
		return fmt.Errorf("load events config: %w", err)
	}
	var sinks []events.Sink
	sc := evtConf.Sinks
	if wh := events.NewWebhookSink(sc.Webhook); wh != nil {
		sinks = append(sinks, events.Filtered(wh, sc.Webhook.Filter))
	}
	if rs, err := events.NewRedisSink(sc.Redis); err != nil {
		logger.L.Error("redis sink", "err", err)
	} else if rs != nil {
		sinks = append(sinks, events.Filtered(rs, sc.Redis.Filter))
	}
	if ks, err := events.NewKafkaSink(sc.Kafka); err != nil {
		logger.L.Error("kafka sink", "err", err)
	} else if ks != nil {
		sinks = append(sinks, events.Filtered(ks, sc.Kafka.Filter))
	}
	logger.L.Info("event sinks ready", "count", len(sinks))
	events.Default = events.NewDispatcher(evtConf, &events.SQLDLQ{DB: db, Driver: cfg.Driver, TablePrefix: cfg.TablePrefix}, sinks...)
	return nil
}
