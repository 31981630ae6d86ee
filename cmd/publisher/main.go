// Command publisher simulates a camera: it publishes an image file to the relay,
// chunked or as a JSON envelope, optionally AES-CBC encrypted.
package main

import (
	"cam-relay/decode"
	"cam-relay/domain"
	"cam-relay/infrastructure/nats"
	"cam-relay/internal"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

const (
	modeChunked  = "chunked"
	modeEnvelope = "envelope"
)

type Config struct {
	NatsURL       string        `envconfig:"NATS_URL" default:"nats://127.0.0.1:4222"`
	Subject       string        `envconfig:"PUBLISH_SUBJECT" default:"esp32.cam1.image"`
	StatusSubject string        `envconfig:"NATS_STATUS_SUBJECT" default:"esp32.status"`
	ClientID      string        `envconfig:"CLIENT_ID" default:"esp32-cam-1"`
	Mode          string        `envconfig:"PUBLISH_MODE" default:"chunked"`
	ChunkSize     int           `envconfig:"CHUNK_SIZE" default:"1024"`
	Count         int           `envconfig:"PUBLISH_COUNT" default:"1"`
	Interval      time.Duration `envconfig:"PUBLISH_INTERVAL" default:"2s"`
	CipherKey     string        `envconfig:"CIPHER_KEY"`
	CipherIV      string        `envconfig:"CIPHER_IV"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"INFO"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Publisher terminated with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	imagePath := flag.String("image", "", "Path of the image to publish")
	label := flag.String("label", domain.DefaultLabel, "Detection label sent with envelopes")
	confidence := flag.Float64("confidence", 0, "Detection confidence sent with envelopes")
	flag.Parse()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return err
	}
	if *imagePath == "" {
		return fmt.Errorf("-image is required")
	}
	if config.Mode != modeChunked && config.Mode != modeEnvelope {
		return fmt.Errorf("unknown PUBLISH_MODE %q", config.Mode)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	raw, err := os.ReadFile(*imagePath)
	if err != nil {
		return err
	}
	encoded, err := encode(raw, config)
	if err != nil {
		return err
	}

	publisher, err := nats.NewPublisher(config.NatsURL, config.ClientID, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	status, err := json.Marshal(domain.DeviceStatus{ClientID: config.ClientID, Status: "online"})
	if err != nil {
		return err
	}
	if err = publisher.PublishStatus(config.StatusSubject, status); err != nil {
		return err
	}

	for i := range config.Count {
		if i > 0 {
			time.Sleep(config.Interval)
		}
		started := time.Now()
		switch config.Mode {
		case modeEnvelope:
			err = publisher.PublishEnvelope(config.Subject, domain.Envelope{
				ImageAES:      encoded,
				Label:         *label,
				Confidence:    *confidence,
				ClientID:      config.ClientID,
				Timestamp:     time.Now().Unix(),
				InferenceTime: 0,
			})
		default:
			err = publisher.PublishTransfer(config.Subject, encoded, config.ChunkSize)
		}
		if err != nil {
			return err
		}
		logger.Info("Image published", "subject", config.Subject, "mode", config.Mode,
			"bytes", len(raw), "chars", len(encoded), "took", time.Since(started))
	}
	return nil
}

// encode returns the base64 text a camera would send, encrypted when a key is configured.
func encode(raw []byte, config Config) (string, error) {
	key, err := internal.ParseCipherMaterial(config.CipherKey)
	if err != nil {
		return "", err
	}
	iv, err := internal.ParseCipherMaterial(config.CipherIV)
	if err != nil {
		return "", err
	}
	if len(key) > 0 {
		if raw, err = decode.EncryptCBC(key, iv, raw); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
