// Package telemetry implements internal/engine.Telemetry: an MQTT
// publisher, which can be disabled, and an append-only JSONL file. Both follow spec.md §6's "never blocks the
// tick thread for longer than a channel send" contract by running the
// actual I/O on a background goroutine fed through a bounded channel —
// a full channel drops the sample rather than stalling Tick.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rosswood/keegan/internal/engine"
	"github.com/rosswood/keegan/internal/paths"
)

// Sample is what gets published to MQTT and appended to the JSONL sink.
type Sample struct {
	State    engine.PublicState `json:"state"`
	BlockRMS float64            `json:"blockRms"`
	AtMs     int64              `json:"atMs"`
}

// MQTTConfig configures the MQTT publisher half of a Sink.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string // KEEGAN_BROADCAST_SECRET
	QoS      byte
}

// Sink fans a stream of samples out to an MQTT broker and/or a JSONL
// file. An empty MQTT.Broker in Config disables the MQTT half.
type Sink struct {
	samples chan Sample
	done    chan struct{}
	logger  *slog.Logger

	mqttClient pahomqtt.Client
	mqttTopic  string
	mqttQoS    byte

	filePath string

	publishCount int
}

// Config selects which halves of the sink are active. An empty
// MQTT.Broker disables the MQTT half; the JSONL half is always active
// when Enabled is true. FilePath defaults
// to paths.DefaultTelemetryPath() (cache/telemetry.jsonl) when Enabled
// is true but FilePath is empty.
type Config struct {
	Enabled  bool
	MQTT     MQTTConfig
	FilePath string
	Logger   *slog.Logger
}

// New connects (if configured) and starts the sink's background
// writer goroutine. Call Close to flush and disconnect.
func New(cfg Config) *Sink {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Sink{
		samples: make(chan Sample, 64),
		done:    make(chan struct{}),
		logger:  logger,
	}
	if !cfg.Enabled {
		close(s.done)
		return s
	}

	if cfg.MQTT.Broker != "" {
		opts := pahomqtt.NewClientOptions().
			AddBroker(cfg.MQTT.Broker).
			SetClientID(cfg.MQTT.ClientID).
			SetConnectTimeout(5 * time.Second)
		if cfg.MQTT.Username != "" {
			opts.SetUsername(cfg.MQTT.Username)
		}
		if cfg.MQTT.Password != "" {
			opts.SetPassword(cfg.MQTT.Password)
		}
		client := pahomqtt.NewClient(opts)
		if tok := client.Connect(); tok.WaitTimeout(5*time.Second) && tok.Error() == nil {
			s.mqttClient = client
			s.mqttTopic = cfg.MQTT.Topic
			s.mqttQoS = cfg.MQTT.QoS
		} else {
			logger.Warn("telemetry: mqtt connect failed, disabling mqtt sink", "broker", cfg.MQTT.Broker)
		}
	}

	s.filePath = cfg.FilePath
	if s.filePath == "" {
		s.filePath = paths.DefaultTelemetryPath()
	}

	go s.run()
	return s
}

// Publish implements internal/engine.Telemetry. It never blocks: a full
// channel means this sample is dropped.
func (s *Sink) Publish(state engine.PublicState, blockRMS float64) {
	select {
	case <-s.done:
		return
	default:
	}

	sample := Sample{State: state, BlockRMS: blockRMS, AtMs: time.Now().UnixMilli()}
	select {
	case s.samples <- sample:
	default:
		s.logger.Warn("telemetry: sample dropped, sink backed up")
	}
}

// Close stops the background writer and disconnects MQTT if connected.
func (s *Sink) Close() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.samples)
	<-s.done
	if s.mqttClient != nil {
		s.mqttClient.Disconnect(250)
	}
}

func (s *Sink) run() {
	defer close(s.done)
	var bytesWritten uint64
	for sample := range s.samples {
		s.publishCount++
		payload, err := json.Marshal(sample)
		if err != nil {
			s.logger.Warn("telemetry: marshaling sample", "err", err)
			continue
		}
		bytesWritten += uint64(len(payload))

		if s.mqttClient != nil {
			s.mqttClient.Publish(s.mqttTopic, s.mqttQoS, false, payload)
		}
		if s.filePath != "" {
			if err := s.appendJSONL(payload); err != nil {
				s.logger.Warn("telemetry: appending jsonl", "err", err)
			}
		}
		if s.publishCount%100 == 0 {
			s.logger.Debug("telemetry: flushed samples",
				"count", s.publishCount, "total", humanize.Bytes(bytesWritten))
		}
	}
}

func (s *Sink) appendJSONL(payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), paths.DirPerm); err != nil {
		return fmt.Errorf("creating telemetry dir: %w", err)
	}
	f, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, paths.FilePerm)
	if err != nil {
		return fmt.Errorf("opening telemetry file: %w", err)
	}
	defer f.Close()

	_, err = f.Write(append(payload, '\n'))
	return err
}
