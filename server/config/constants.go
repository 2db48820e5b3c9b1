package config

// Network server constants.
// The HTTP port avoids common development ports like 8080, 3000, 5000 and the
// usual database ports so the catalog can run next to the engines it serves.
const (
	// HTTP Server Port - REST catalog API
	HTTP_SERVER_PORT = 2847

	// Default bind address
	DEFAULT_SERVER_ADDRESS = "0.0.0.0"

	// Localhost address for development
	LOCALHOST_ADDRESS = "127.0.0.1"
)

// Port validation constants
const (
	MIN_PORT = 1
	MAX_PORT = 65535
)

// IsValidPort checks if a port number is within valid range
func IsValidPort(port int) bool {
	return port >= MIN_PORT && port <= MAX_PORT
}
