package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/shelfscan-backend/internal/platform/envutil"
)

// ClientOptionsFromEnv reads GOOGLE_APPLICATION_CREDENTIALS_JSON (inline
// JSON) or GOOGLE_APPLICATION_CREDENTIALS (inline JSON or a file path).
// With neither set, the client libraries fall back to ambient credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	if creds == "" {
		creds = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", "")
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
