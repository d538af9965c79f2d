// Package assumerole exchanges long-lived AWS keys for temporary role credentials
// and caches them per access key and role.
package assumerole

import (
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
)

const (
	DefaultRegion          = "us-east-1"
	DefaultDurationSeconds = 3600
	DefaultSessionName     = "bedrock-assumerole-session"
)

var (
	ErrMissingBaseCredentials = errors.New("Missing AWS base credentials. Provide them via environment variables or credential fields.")
	ErrMissingRoleArn         = errors.New("Missing Role ARN to assume")
	ErrNoTemporaryCredentials = errors.New("Failed to obtain temporary credentials from STS")
)

// BaseCredentials are the long-lived keys and the role they assume.
type BaseCredentials struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	RoleArn         string `json:"role_arn"`
	Region          string `json:"region"`
	DurationSeconds int    `json:"duration_seconds"`
	SessionName     string `json:"session_name"`
}

// DefaultsFromConfig reads the environment backed defaults.
func DefaultsFromConfig() BaseCredentials {
	return BaseCredentials{
		AccessKeyID:     config.AWSAccessKeyID,
		SecretAccessKey: config.AWSSecretAccessKey,
		RoleArn:         config.AWSRoleArn,
		Region:          config.AWSRegion,
		DurationSeconds: config.AWSRoleDurationSeconds,
		SessionName:     config.AWSRoleSessionName,
	}
}

// ResolveBase overlays the non-empty explicit fields on defaults, trims every
// string and fills in region, duration and session name when still missing.
func ResolveBase(explicit, defaults BaseCredentials) (BaseCredentials, error) {
	resolved := defaults
	if err := copier.CopyWithOption(&resolved, &explicit, copier.Option{IgnoreEmpty: true}); err != nil {
		return BaseCredentials{}, errors.Wrap(err, "merge credential overrides")
	}

	resolved.AccessKeyID = strings.TrimSpace(resolved.AccessKeyID)
	resolved.SecretAccessKey = strings.TrimSpace(resolved.SecretAccessKey)
	resolved.RoleArn = strings.TrimSpace(resolved.RoleArn)
	resolved.Region = strings.TrimSpace(resolved.Region)
	resolved.SessionName = strings.TrimSpace(resolved.SessionName)

	if resolved.Region == "" {
		resolved.Region = DefaultRegion
	}
	if resolved.DurationSeconds <= 0 {
		resolved.DurationSeconds = DefaultDurationSeconds
	}
	if resolved.SessionName == "" {
		resolved.SessionName = DefaultSessionName
	}
	return resolved, nil
}

// Validate reports missing keys or role.
func (b BaseCredentials) Validate() error {
	if b.AccessKeyID == "" || b.SecretAccessKey == "" {
		return ErrMissingBaseCredentials
	}
	if b.RoleArn == "" {
		return ErrMissingRoleArn
	}
	return nil
}

// CacheKey identifies the credentials of one access key assuming one role.
func (b BaseCredentials) CacheKey() string {
	return b.AccessKeyID + ":" + b.RoleArn
}

// TemporaryCredentials are returned by AssumeRole.
type TemporaryCredentials struct {
	AccessKeyID     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"secret_access_key"`
	SessionToken    string    `json:"session_token"`
	Expiration      time.Time `json:"expiration"`
}

// ValidFor reports whether more than buffer remains before expiration at now.
func (c *TemporaryCredentials) ValidFor(now time.Time, buffer time.Duration) bool {
	if c == nil || c.Expiration.IsZero() {
		return false
	}
	return c.Expiration.Sub(now) > buffer
}

// MaskKey keeps the first 8 characters of a key for logging.
func MaskKey(key string) string {
	if key == "" {
		return "MISSING"
	}
	if len(key) <= 8 {
		return key + "..."
	}
	return key[:8] + "..."
}
