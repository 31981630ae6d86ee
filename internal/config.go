package internal

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const hexPrefix = "hex:"

type Config struct {
	NatsURL           string        `env:"NATS_URL,default=nats://127.0.0.1:4222" validate:"required,url"`
	NatsSubjects      string        `env:"NATS_SUBJECTS,required=true" validate:"required"`
	NatsStatusSubject string        `env:"NATS_STATUS_SUBJECT,default=esp32.status"`
	IngestWorkers     int           `env:"INGEST_WORKERS,default=4" validate:"gte=1"`
	DecodeWorkers     int           `env:"DECODE_WORKERS,default=2" validate:"gte=1"`
	BufferSize        int           `env:"BUFFER_SIZE,default=256" validate:"gte=1"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`
	SessionTTL        time.Duration `env:"SESSION_TTL,default=30s" validate:"gte=0"`
	ReaperInterval    time.Duration `env:"REAPER_INTERVAL,default=5s" validate:"gte=0"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true" validate:"required"`
	CaptureRetention  int           `env:"CAPTURE_RETENTION,default=1000" validate:"gte=0"`
	SaveFolder        string        `env:"SAVE_FOLDER"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	DebugPort         int           `env:"DEBUG_PORT,default=8081" validate:"gte=0,lte=65535"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=10s" validate:"gte=0"`
	LowCapacity       int           `env:"LOW_CAPACITY_THRESHOLD,default=8" validate:"gte=0"`

	CipherKey                string `env:"CIPHER_KEY"`
	CipherIV                 string `env:"CIPHER_IV"`
	RequireImageValidation   bool   `env:"REQUIRE_IMAGE_VALIDATION,default=true"`
	MinViableCiphertextChars int    `env:"MIN_VIABLE_CIPHERTEXT_CHARS,default=100" validate:"gte=0"`
	MinViableDecodedBytes    int    `env:"MIN_VIABLE_DECODED_BYTES,default=100" validate:"gte=0"`
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if len(c.Subjects()) == 0 {
		return fmt.Errorf("NATS_SUBJECTS must list at least one subject")
	}
	if (c.CipherKey == "") != (c.CipherIV == "") {
		return fmt.Errorf("CIPHER_KEY and CIPHER_IV must be set together")
	}
	return nil
}

// Subjects returns the comma separated NATS_SUBJECTS plus the status subject.
func (c Config) Subjects() []string {
	subjects := lo.Compact(lo.Map(strings.Split(c.NatsSubjects, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
	status := c.NatsStatusSubject
	if len(subjects) > 0 && status != "" && !lo.SomeBy(subjects, func(s string) bool { return covers(s, status) }) {
		subjects = append(subjects, status)
	}
	return lo.Uniq(subjects)
}

// covers reports whether the NATS subject pattern matches subject ("*" one token, ">" the rest).
func covers(pattern, subject string) bool {
	patternTokens := strings.Split(pattern, ".")
	subjectTokens := strings.Split(subject, ".")
	for i, token := range patternTokens {
		if token == ">" {
			return len(subjectTokens) > i
		}
		if i >= len(subjectTokens) || (token != "*" && token != subjectTokens[i]) {
			return false
		}
	}
	return len(patternTokens) == len(subjectTokens)
}

// Cipher returns the decoded key and IV. Both are empty when encryption is disabled.
func (c Config) Cipher() (key, iv []byte, err error) {
	if key, err = ParseCipherMaterial(c.CipherKey); err != nil {
		return nil, nil, fmt.Errorf("CIPHER_KEY: %w", err)
	}
	if iv, err = ParseCipherMaterial(c.CipherIV); err != nil {
		return nil, nil, fmt.Errorf("CIPHER_IV: %w", err)
	}
	return key, iv, nil
}

// ParseCipherMaterial reads raw bytes, or hex when the value starts with "hex:".
func ParseCipherMaterial(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	if encoded, ok := strings.CutPrefix(value, hexPrefix); ok {
		return hex.DecodeString(encoded)
	}
	return []byte(value), nil
}
