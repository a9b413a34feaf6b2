package transport

// DefaultClientPort is where clients created without a port send to.
const DefaultClientPort = 57120

// ClientConfig names one outbound destination.
type ClientConfig struct {
	Name string
	Host string
	Port int
}

// Config configures the OSC server socket and its initial clients.
type Config struct {
	Host string
	Port int
	// Concurrent handles inbound messages on Workers goroutines instead of
	// one. Handlers registered with a lock still run one at a time.
	Concurrent bool
	Workers    int
	// Verbose logs every message sent and received at info level.
	Verbose bool
	Clients []ClientConfig
}

// Transport defaults for a local server.
func DefaultConfig() Config {
	return Config{
		Host:    "127.0.0.1",
		Port:    9999,
		Workers: 4,
	}
}

func (c Config) workers() int {
	if !c.Concurrent || c.Workers < 1 {
		return 1
	}
	return c.Workers
}
