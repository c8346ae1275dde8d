package firerest

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const defaultEndpoint = "https://firestore.googleapis.com/v1"

// DefaultDatabaseID is the database every project starts with.
const DefaultDatabaseID = "(default)"

// Config carries everything needed to reach a Firestore database.
type Config struct {
	ProjectID  string
	DatabaseID string

	// CredentialsFile points at a service account key file. CredentialsJSON
	// takes precedence when both are set.
	CredentialsFile string
	CredentialsJSON []byte

	// Endpoint overrides the API base URL, e.g. for the emulator or tests.
	// Defaults to the public Firestore endpoint.
	Endpoint string
}

// LoadConfig builds a Config from the environment, reading a .env file first
// when one is present (missing .env is not an error):
//
//	FIRESTORE_PROJECT_ID                  project ID (required)
//	FIRESTORE_DATABASE_ID                 database, defaults to "(default)"
//	GOOGLE_APPLICATION_CREDENTIALS        service account key file path
//	GOOGLE_APPLICATION_CREDENTIALS_JSON   inline service account key
//	FIRESTORE_EMULATOR_HOST               emulator host:port, overrides Endpoint
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ProjectID:       os.Getenv("FIRESTORE_PROJECT_ID"),
		DatabaseID:      os.Getenv("FIRESTORE_DATABASE_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}
	if raw := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"); raw != "" {
		cfg.CredentialsJSON = []byte(raw)
	}
	if host := os.Getenv("FIRESTORE_EMULATOR_HOST"); host != "" {
		cfg.Endpoint = "http://" + host + "/v1"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and fills in defaults.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("project ID is required")
	}
	if c.DatabaseID == "" {
		c.DatabaseID = DefaultDatabaseID
	}
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	return nil
}

// credentials returns the raw service account key, reading the key file when
// no inline JSON was supplied.
func (c *Config) credentials() ([]byte, error) {
	if len(c.CredentialsJSON) > 0 {
		return c.CredentialsJSON, nil
	}
	if c.CredentialsFile == "" {
		return nil, fmt.Errorf("no service account credentials configured")
	}
	data, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return data, nil
}

// documentsBase returns the URL prefix up to and including "documents", e.g.
// https://firestore.googleapis.com/v1/projects/p/databases/(default)/documents
func (c *Config) documentsBase() string {
	return fmt.Sprintf("%s/projects/%s/databases/%s/documents", c.Endpoint, c.ProjectID, c.DatabaseID)
}
