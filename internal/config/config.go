// v2
// internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime parameter. All values are fixed at process
// start; there is no hot-reload.
type Config struct {
	BrokerHost string
	BrokerPort int
	Topic      string
	AssetID    string

	CSVPath         string
	PublishInterval time.Duration
	RetryInterval   time.Duration
	NominalFreqHz   float64

	HTTPBind string

	// Optional Kafka mirror of every published payload. Disabled when
	// KafkaBrokers is empty.
	KafkaBrokers []string
	MirrorTopic  string

	// Insight constants (grid-edge dashboard arithmetic).
	CO2FactorKgPerKWh float64
	P2PPriceUSD       float64
	InsightsWindow    int
}

// BrokerURL renders the paho broker address.
func (c Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.BrokerHost, c.BrokerPort)
}

// Load reads environment variables (with defaults matching the reference
// deployment) and then, when METERSIM_PROPERTIES points at a properties
// file, applies its overrides on top.
func Load(log *slog.Logger) (Config, error) {
	cfg := Config{
		BrokerHost:        getEnv("MQTT_BROKER", "localhost"),
		BrokerPort:        getEnvInt("MQTT_PORT", 1883, log),
		Topic:             getEnv("MQTT_TOPIC", "vpp/telemetry/main_bus"),
		AssetID:           getEnv("ASSET_ID", "mumbai_campus_node_01"),
		CSVPath:           getEnv("CSV_PATH", "./smart_grid_dataset.csv"),
		PublishInterval:   getEnvDuration("PUBLISH_INTERVAL", 2*time.Second, log),
		RetryInterval:     getEnvDuration("RETRY_INTERVAL", 5*time.Second, log),
		NominalFreqHz:     getEnvFloat("NOMINAL_FREQ_HZ", 50.0, log),
		HTTPBind:          getEnv("HTTP_BIND", ":5000"),
		KafkaBrokers:      splitCSV(os.Getenv("KAFKA_BROKERS")),
		MirrorTopic:       getEnv("KAFKA_MIRROR_TOPIC", "vpp.telemetry.mirror"),
		CO2FactorKgPerKWh: getEnvFloat("CO2_FACTOR_KG_PER_KWH", 0.475, log),
		P2PPriceUSD:       getEnvFloat("P2P_PRICE_USD", 0.08, log),
		InsightsWindow:    getEnvInt("INSIGHTS_WINDOW", 24, log),
	}

	if path := os.Getenv("METERSIM_PROPERTIES"); path != "" {
		props, err := loadProps(path)
		if err != nil {
			return Config{}, err
		}
		cfg.applyProps(props, log)
		log.Info("properties applied", "path", path, "keys", len(props))
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyProps(m map[string]string, log *slog.Logger) {
	c.BrokerHost = gets(m, "mqtt.broker", c.BrokerHost)
	c.BrokerPort = geti(m, "mqtt.port", c.BrokerPort, log)
	c.Topic = gets(m, "mqtt.topic", c.Topic)
	c.AssetID = gets(m, "asset.id", c.AssetID)
	c.CSVPath = gets(m, "csv.path", c.CSVPath)
	c.PublishInterval = getd(m, "publish.interval", c.PublishInterval, log)
	c.RetryInterval = getd(m, "retry.interval", c.RetryInterval, log)
	c.NominalFreqHz = getf(m, "nominal.freq.hz", c.NominalFreqHz, log)
	c.HTTPBind = gets(m, "listen_addr", c.HTTPBind)
	if v, ok := m["kafka.brokers"]; ok {
		c.KafkaBrokers = splitCSV(v)
	}
	c.MirrorTopic = gets(m, "kafka.mirror.topic", c.MirrorTopic)
	c.CO2FactorKgPerKWh = getf(m, "co2.factor", c.CO2FactorKgPerKWh, log)
	c.P2PPriceUSD = getf(m, "p2p.price", c.P2PPriceUSD, log)
	c.InsightsWindow = geti(m, "insights.window", c.InsightsWindow, log)
}

func (c Config) validate() error {
	if c.AssetID == "" {
		return errors.New("asset id must not be empty")
	}
	if c.Topic == "" {
		return errors.New("mqtt topic must not be empty")
	}
	if c.PublishInterval <= 0 {
		return fmt.Errorf("publish interval must be positive, got %s", c.PublishInterval)
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("retry interval must be positive, got %s", c.RetryInterval)
	}
	if c.NominalFreqHz <= 0 {
		return fmt.Errorf("nominal frequency must be positive, got %g", c.NominalFreqHz)
	}
	if c.InsightsWindow <= 0 {
		return fmt.Errorf("insights window must be positive, got %d", c.InsightsWindow)
	}
	return nil
}

func loadProps(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load properties file: %w", err)
	}
	lines := strings.Split(string(b), "\n")
	m := map[string]string{}
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") || strings.HasPrefix(ln, "//") {
			continue
		}
		kv := strings.SplitN(ln, "=", 2)
		if len(kv) != 2 {
			continue
		}
		m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return m, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int, log *slog.Logger) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Warn("invalid int in env, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func getEnvFloat(key string, def float64, log *slog.Logger) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn("invalid float in env, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func getEnvDuration(key string, def time.Duration, log *slog.Logger) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Warn("invalid duration in env, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func gets(m map[string]string, key, def string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return def
}

func geti(m map[string]string, key string, def int, log *slog.Logger) int {
	if v, ok := m[key]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Warn("invalid int in properties, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func getf(m map[string]string, key string, def float64, log *slog.Logger) float64 {
	if v, ok := m[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn("invalid float in properties, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func getd(m map[string]string, key string, def time.Duration, log *slog.Logger) time.Duration {
	if v, ok := m[key]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Warn("invalid duration in properties, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
