package terminal

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"udpforum/config"
)

// ParseFlags builds the server configuration: defaults, then environment
// (with optional .env), then an optional YAML file named by FORUM_CONFIG,
// then positional arguments. The boolean reports that help or version was
// printed and the caller should exit.
func ParseFlags() (*config.Config, bool, error) {
	cfg := config.Default()

	if path := os.Getenv("FORUM_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, false, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, false, err
	}

	showHelp := false
	showVersion := false
	positional := 0
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-h", "--help":
			showHelp = true
		case "-v", "--version":
			showVersion = true
		default:
			switch positional {
			case 0:
				port, err := strconv.Atoi(arg)
				if err != nil {
					return nil, false, fmt.Errorf("invalid port number: %s", arg)
				}
				cfg.Port = port
			case 1:
				cfg.DataDir = arg
			}
			positional++
		}
	}

	if showHelp {
		PrintUsage()
		return nil, true, nil
	}
	if showVersion {
		ShowVersion()
		return nil, true, nil
	}
	return cfg, false, nil
}

// ValidateConfig validates the assembled configuration.
func ValidateConfig(cfg *config.Config) error {
	return cfg.Validate()
}

// PrintStartupInfo prints server startup information.
func PrintStartupInfo(cfg *config.Config) {
	log.Printf("Starting UDP forum server...")
	log.Printf("Listening port: %d", cfg.Port)
	log.Printf("Thread directory: %s", cfg.DataDir)
	log.Printf("Upload directory: %s", cfg.UploadDir)
	log.Printf("Credentials file: %s", cfg.CredentialsFile)
	if cfg.LossRate > 0 {
		log.Printf("Simulated datagram loss: %.0f%%", cfg.LossRate*100)
	}
}

// PrintUsage prints usage information.
func PrintUsage() {
	fmt.Printf("Usage: %s [port] [data_directory]\n", os.Args[0])
	fmt.Println()
	fmt.Println("Arguments:")
	fmt.Println("  port             Listen port for the forum server (default: 9090)")
	fmt.Println("  data_directory   Directory holding thread files (default: ./threads)")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  FORUM_CONFIG     Path to a YAML config file")
	fmt.Println("  FORUM_PORT, FORUM_DATA_DIR, FORUM_UPLOAD_DIR,")
	fmt.Println("  FORUM_CREDENTIALS_FILE, FORUM_LOSS_RATE, FORUM_ACK_TIMEOUT,")
	fmt.Println("  FORUM_MAX_RETRIES (a .env file in the working dir is honored)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s                  # Default: port 9090, ./threads\n", os.Args[0])
	fmt.Printf("  %s 8090             # Custom port\n", os.Args[0])
	fmt.Printf("  %s 8090 /srv/forum  # Custom port and data directory\n", os.Args[0])
}

// HandleStartupError handles startup errors with appropriate logging and
// exit.
func HandleStartupError(err error, context string) {
	log.Fatalf("Failed to %s: %v", context, err)
}

// ShowVersion displays version information.
func ShowVersion() {
	fmt.Println("UDP Forum Server v1.0")
	fmt.Println("Built with Go")
}
