package internal

import (
	"testing"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		NatsURL:           "nats://127.0.0.1:4222",
		NatsSubjects:      "esp32.cam1.image, esp32.cam2.image,,",
		NatsStatusSubject: "esp32.status",
		IngestWorkers:     4,
		DecodeWorkers:     2,
		BufferSize:        16,
		SinkTimeout:       1,
		RestartInterval:   1,
		BadgerFilepath:    "/tmp/relay",
		LogLevel:          "INFO",
	}
}

func TestConfig_FromEnviron(t *testing.T) {
	req := require.New(t)
	t.Setenv("NATS_SUBJECTS", "esp32.>")
	t.Setenv("BADGER_FILEPATH", "/tmp/relay")
	t.Setenv("CIPHER_KEY", "hex:000102030405060708090a0b0c0d0e0f")
	t.Setenv("CIPHER_IV", "0123456789abcdef")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)
	req.NoError(config.Validate())

	req.Equal(100, config.MinViableCiphertextChars)
	req.Equal(100, config.MinViableDecodedBytes)
	req.True(config.RequireImageValidation)
	req.Equal([]string{"esp32.>"}, config.Subjects())

	key, iv, err := config.Cipher()
	req.NoError(err)
	req.Len(key, 16)
	req.Equal(byte(0x0f), key[15])
	req.Equal([]byte("0123456789abcdef"), iv)
}

func TestConfig_Validate(t *testing.T) {
	req := require.New(t)
	req.NoError(validConfig().Validate())
	req.Equal([]string{"esp32.cam1.image", "esp32.cam2.image", "esp32.status"}, validConfig().Subjects())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"No subject", func(c *Config) { c.NatsSubjects = " , " }},
		{"No worker", func(c *Config) { c.DecodeWorkers = 0 }},
		{"Bad level", func(c *Config) { c.LogLevel = "TRACE" }},
		{"Bad url", func(c *Config) { c.NatsURL = "not a url" }},
		{"Key without IV", func(c *Config) { c.CipherKey = "0123456789abcdef" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestCovers(t *testing.T) {
	req := require.New(t)
	req.True(covers("esp32.>", "esp32.status"))
	req.True(covers("esp32.*", "esp32.status"))
	req.True(covers("esp32.status", "esp32.status"))
	req.False(covers("esp32.>", "esp32"))
	req.False(covers("esp32.*", "esp32.cam1.image"))
	req.False(covers("esp32.cam1", "esp32.status"))
}

func TestParseCipherMaterial(t *testing.T) {
	req := require.New(t)

	raw, err := ParseCipherMaterial("abcdefghijklmnop")
	req.NoError(err)
	req.Equal([]byte("abcdefghijklmnop"), raw)

	empty, err := ParseCipherMaterial("")
	req.NoError(err)
	req.Nil(empty)

	_, err = ParseCipherMaterial("hex:zz")
	req.Error(err)
}
