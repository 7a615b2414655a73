// Package audio resolves QA prompt audio to playable URLs and renders
// missing prompt audio with text-to-speech.
package audio

import "time"

// Config describes the object store holding prompt audio and the voice used
// to render it.
type Config struct {
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`

	// URLTTL is how long presigned URLs stay valid. Resolved URLs are cached
	// for half of it.
	URLTTL time.Duration `koanf:"url_ttl" validate:"gte=0"`

	LanguageCode string `koanf:"language_code"`
	Voice        string `koanf:"voice"`
}

func DefaultConfig() Config {
	return Config{
		Region:       "us-east-1",
		URLTTL:       15 * time.Minute,
		LanguageCode: "en-US",
		Voice:        "en-US-Standard-F",
	}
}

// Enabled reports whether an object store is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

// Key is the object key of a QA pair's prompt audio.
func Key(qaID string) string {
	return "qa/" + qaID + ".mp3"
}
