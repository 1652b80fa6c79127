package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the binaries read from the environment.
type Config struct {
	Server    ServerConfig
	Endpoints EndpointsConfig
	Transport TransportConfig
	Cache     CacheConfig
	Profile   ProfileConfig
}

// Load reads the full configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	endpoints := loadEndpointsConfig()

	transport, err := loadTransportConfig()
	if err != nil {
		return nil, err
	}

	cache := loadCacheConfig()

	profile, err := loadProfileConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Endpoints: endpoints,
		Transport: transport,
		Cache:     cache,
		Profile:   profile,
	}, nil
}

// ServerConfig describes the dev backend HTTP listener.
type ServerConfig struct {
	Addr string
}

// loadServerConfig resolves the listen address from PORT.
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// EndpointsConfig holds the URLs the client stack talks to. APIURL is
// the REST root; the session and monitoring clients append their own
// resource paths under it.
type EndpointsConfig struct {
	WSURL  string
	APIURL string
}

func loadEndpointsConfig() EndpointsConfig {
	return EndpointsConfig{
		WSURL:  getEnvOrDefault("SHOPCHAT_WS_URL", "ws://localhost:8080/api/v1/chat/ws"),
		APIURL: getEnvOrDefault("SHOPCHAT_API_URL", "http://localhost:8080/api/v1"),
	}
}

// TransportConfig carries the WebSocket channel timing knobs.
type TransportConfig struct {
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
}

func loadTransportConfig() (TransportConfig, error) {
	reconnect, err := parseDurationEnv("SHOPCHAT_RECONNECT_DELAY", 5*time.Second)
	if err != nil {
		return TransportConfig{}, err
	}

	handshake, err := parseDurationEnv("SHOPCHAT_HANDSHAKE_TIMEOUT", 30*time.Second)
	if err != nil {
		return TransportConfig{}, err
	}

	read, err := parseDurationEnv("SHOPCHAT_READ_TIMEOUT", 60*time.Second)
	if err != nil {
		return TransportConfig{}, err
	}

	write, err := parseDurationEnv("SHOPCHAT_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return TransportConfig{}, err
	}

	ping, err := parseDurationEnv("SHOPCHAT_PING_INTERVAL", 54*time.Second)
	if err != nil {
		return TransportConfig{}, err
	}

	return TransportConfig{
		ReconnectDelay:   reconnect,
		HandshakeTimeout: handshake,
		ReadTimeout:      read,
		WriteTimeout:     write,
		PingInterval:     ping,
	}, nil
}

// CacheConfig locates the local session cache database.
type CacheConfig struct {
	Path string
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Path: getEnvOrDefault("SHOPCHAT_CACHE_PATH", "shopchat.db"),
	}
}

// ProfileConfig identifies the shopper the client sends as. Persona and
// Discount stay raw strings here; callers parse them into profile tags.
type ProfileConfig struct {
	UserID   string
	Name     string
	Email    string
	Age      int
	Gender   string
	Persona  string
	Discount string
	UseAgent bool
}

func loadProfileConfig() (ProfileConfig, error) {
	age, err := parseIntEnv("SHOPCHAT_USER_AGE", 0)
	if err != nil {
		return ProfileConfig{}, err
	}

	useAgent, err := parseBoolEnv("SHOPCHAT_USE_AGENT", false)
	if err != nil {
		return ProfileConfig{}, err
	}

	return ProfileConfig{
		UserID:   getEnvOrDefault("SHOPCHAT_USER_ID", "shopper-maya"),
		Name:     strings.TrimSpace(os.Getenv("SHOPCHAT_USER_NAME")),
		Email:    strings.TrimSpace(os.Getenv("SHOPCHAT_USER_EMAIL")),
		Age:      age,
		Gender:   strings.TrimSpace(os.Getenv("SHOPCHAT_USER_GENDER")),
		Persona:  strings.TrimSpace(os.Getenv("SHOPCHAT_PERSONA")),
		Discount: strings.TrimSpace(os.Getenv("SHOPCHAT_DISCOUNT_PERSONA")),
		UseAgent: useAgent,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}
