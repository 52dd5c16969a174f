package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-t target kind (filesystem, memory, webdav, s3)
//	-target-id target identifier
//	-p target root path or key prefix
//	-u WebDAV base URL
//	-endpoint S3 endpoint in format [host]:[port]
//	-user backend user / access key
//	-bucket S3 bucket
//	-region S3 region
//	-ssl use TLS for the S3 endpoint
//	-request-timeout backend request timeout (e.g., "30s", "1m")
//	-d local database DSN
//	-r local resource blob directory
//	-c/-config json file path with configs
//	-client-id client identifier used in lock files
//	-log-level zerolog level name
//	-sync-interval periodic sync interval (e.g., "5m")
//	-encrypt enable end-to-end encryption of pushed items
//	-max-retries transient failure retry count
//
// Secrets (backend password, master password) are read from the
// environment or the JSON file only.
func ParseFlags() *StructuredConfig {
	var endpoint NetAddress
	var targetKind, targetID, targetPath, targetURL string
	var user, bucket, region string
	var useSSL, encrypt bool
	var requestTimeout, syncInterval time.Duration
	var databaseDSN, resourceDir string
	var jsonConfigPath string
	var clientID, logLevel string
	var maxRetries int

	flag.StringVar(&targetKind, "t", "", "Target kind: filesystem, memory, webdav, s3")
	flag.StringVar(&targetID, "target-id", "", "Target identifier")
	flag.StringVar(&targetPath, "p", "", "Target root path or key prefix")
	flag.StringVar(&targetURL, "u", "", "WebDAV base URL")
	flag.Var(&endpoint, "endpoint", "S3 endpoint host:port")
	flag.StringVar(&user, "user", "", "Backend user or access key")
	flag.StringVar(&bucket, "bucket", "", "S3 bucket")
	flag.StringVar(&region, "region", "", "S3 region")
	flag.BoolVar(&useSSL, "ssl", false, "Use TLS for the S3 endpoint")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Backend request timeout (e.g., 30s, 1m)")
	flag.StringVar(&databaseDSN, "d", "", "Local database DSN")
	flag.StringVar(&resourceDir, "r", "", "Local resource blob directory")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&clientID, "client-id", "", "Client identifier")
	flag.StringVar(&logLevel, "log-level", "", "Log level")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Periodic sync interval (e.g., 5m)")
	flag.BoolVar(&encrypt, "encrypt", false, "Enable end-to-end encryption")
	flag.IntVar(&maxRetries, "max-retries", 0, "Transient failure retry count")

	flag.Parse()

	url := targetURL
	if url == "" {
		url = endpoint.String()
	}

	return &StructuredConfig{
		App: App{
			ClientID: clientID,
			LogLevel: logLevel,
		},
		Target: Target{
			ID:             targetID,
			Kind:           targetKind,
			Path:           targetPath,
			URL:            url,
			Username:       user,
			Bucket:         bucket,
			Region:         region,
			UseSSL:         useSSL,
			RequestTimeout: requestTimeout,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
			Files: Files{
				ResourceDir: resourceDir,
			},
		},
		Sync: Sync{
			MaxRetries:        maxRetries,
			EncryptionEnabled: encrypt,
		},
		Workers: Workers{
			SyncInterval: syncInterval,
		},
		JSONFilePath: jsonConfigPath,
	}
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range and checks that the host is either an IP
// address or a plausible DNS name.
func (a *NetAddress) Set(s string) error {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return errors.New("need address in a form `host:port`")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return err
	}

	if port < 1 || port > 65535 {
		return errors.New("port number must be in range 1-65535")
	}

	if net.ParseIP(host) == nil && !isHostname(host) {
		return errors.New("incorrect host provided")
	}

	a.Host = host
	a.Port = port
	return nil
}

func isHostname(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for _, r := range label {
			if !(r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return false
			}
		}
	}
	return true
}
