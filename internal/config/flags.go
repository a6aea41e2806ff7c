package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds a host and port. It implements flag.Value.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses args (without the program name).
//
// Flags:
//
//	-a                 backend listen address host:port
//	-server-url        backend URL used by the client
//	-d                 SQLite DSN
//	-media-dir         media blob directory
//	-c, -config        JSON, YAML or TOML config file
//	-user              member id the client syncs for
//	-hash-key          HashSHA256 key
//	-token-sign-key    device JWT signing key
//	-token-issuer      device JWT issuer
//	-token-duration    device JWT lifetime (e.g. 24h)
//	-request-timeout   request timeout (e.g. 30s)
//	-sync-interval     background sync period (e.g. 5m)
//	-max-cache-mb      entity cache budget in MB
//	-headless          run the client without the dashboard
//	-catalog           JSON or YAML file the backend ledger is seeded from
func ParseFlags(args []string) (*StructuredConfig, error) {
	var serverAddress NetAddress
	var (
		serverURL      string
		databaseDSN    string
		mediaDir       string
		configPath     string
		userID         string
		hashKey        string
		tokenSignKey   string
		tokenIssuer    string
		tokenDuration  time.Duration
		requestTimeout time.Duration
		syncInterval   time.Duration
		maxCacheMB     int64
		headless       bool
		catalogPath    string
	)

	fs := flag.NewFlagSet(programName(), flag.ContinueOnError)
	fs.Var(&serverAddress, "a", "Net address host:port")
	fs.StringVar(&serverURL, "server-url", "", "Backend URL")
	fs.StringVar(&databaseDSN, "d", "", "SQLite DSN")
	fs.StringVar(&mediaDir, "media-dir", "", "Media blob directory")
	fs.StringVar(&configPath, "c", "", "Config file path")
	fs.StringVar(&configPath, "config", "", "Config file path (alias)")
	fs.StringVar(&userID, "user", "", "Member id")
	fs.StringVar(&hashKey, "hash-key", "", "Security hash key")
	fs.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")
	fs.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	fs.DurationVar(&tokenDuration, "token-duration", 0, "Token duration (e.g., 24h)")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.DurationVar(&syncInterval, "sync-interval", 0, "Background sync interval (e.g., 5m)")
	fs.Int64Var(&maxCacheMB, "max-cache-mb", 0, "Entity cache budget in MB")
	fs.BoolVar(&headless, "headless", false, "Disable the operator dashboard")
	fs.StringVar(&catalogPath, "catalog", "", "Backend catalog seed file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return &StructuredConfig{
		App: App{
			UserID:        userID,
			TokenSignKey:  tokenSignKey,
			TokenIssuer:   tokenIssuer,
			TokenDuration: tokenDuration,
			HashKey:       hashKey,
			Headless:      headless,
		},
		Storage: Storage{
			DB:    DB{DSN: databaseDSN},
			Media: Media{Dir: mediaDir},
			Cache: Cache{MaxSizeMB: maxCacheMB},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
			CatalogPath:    catalogPath,
		},
		Adapter: Adapter{
			HTTPAddress:    serverURL,
			RequestTimeout: requestTimeout,
		},
		Workers:        Workers{SyncInterval: syncInterval},
		ConfigFilePath: configPath,
	}, nil
}

func programName() string {
	if len(os.Args) > 0 {
		return os.Args[0]
	}
	return "offline-sync"
}

// String returns host:port, or "" when nothing was set.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses host:port. The host must be "localhost" or an IP address.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
