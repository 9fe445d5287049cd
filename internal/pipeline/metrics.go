package pipeline

import (
	"fmt"

	"bggetl/internal/config"
	"bggetl/internal/logging"
	"bggetl/internal/metrics"
	"bggetl/internal/metrics/datadog"
	"bggetl/internal/metrics/prompush"
)

// InstallMetrics sets the process-wide metrics backend named by cfg. The
// returned flush must be called once when the job ends; it is a no-op when
// metrics are disabled.
func InstallMetrics(job string, cfg config.Metrics, log *logging.Logger) (flush func(), err error) {
	log = logging.Or(log)
	var b metrics.Backend

	switch cfg.Backend {
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}, nil
	case "prompush":
		b, err = prompush.NewBackend(job, cfg.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.DatadogAddr,
			Namespace:  cfg.Namespace,
			GlobalTags: cfg.Tags,
		})
	default:
		return nil, fmt.Errorf("metrics: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	metrics.SetBackend(b)
	log.Info("metrics enabled", "backend", cfg.Backend)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", "error", err)
		}
	}, nil
}
