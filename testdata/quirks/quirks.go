package quirks

import "os"

// Config is built by several factories sharing a signature.
type Config struct {
	Path string
}

func NewConfigFromEnv(name string) *Config {
	return &Config{Path: os.Getenv(name)}
}

func NewConfig(path string) *Config {
	return &Config{Path: path}
}

func NewDefaultConfig() Config {
	return Config{Path: "config.yaml"}
}

// Padded keeps its fields aligned.
type Padded struct {
	A int
	_ [4]byte
	B int
	_ [4]byte
}
