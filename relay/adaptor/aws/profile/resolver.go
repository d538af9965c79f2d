package profile

import (
	"fmt"
	"strings"
)

// Input carries everything needed to pick the effective model id.
type Input struct {
	ModelID         string
	Region          string
	AccountID       string
	LegacyProfileID string
	Profiles        *Map
}

// Strategy selects a profile id for an input. An empty result means the
// strategy does not apply and the next one is consulted.
type Strategy interface {
	ProfileID(in Input) string
}

// PerModelProfile picks the entry of Input.Profiles whose model id matches exactly.
type PerModelProfile struct{}

func (PerModelProfile) ProfileID(in Input) string {
	id, _ := in.Profiles.Lookup(in.ModelID)
	return strings.TrimSpace(id)
}

// LegacyProfile applies the single account-wide profile id to every model.
type LegacyProfile struct{}

func (LegacyProfile) ProfileID(in Input) string {
	return strings.TrimSpace(in.LegacyProfileID)
}

// Resolver evaluates strategies in order; the first non-empty profile id wins.
type Resolver struct {
	strategies []Strategy
}

func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// DefaultResolver prefers a per-model profile over the legacy one.
var DefaultResolver = NewResolver(PerModelProfile{}, LegacyProfile{})

// Resolve returns the model id unchanged unless an account id is configured and
// some strategy yields a profile id, in which case the profile ARN is returned.
// A model id that already is a profile ARN is never rewritten.
func (r *Resolver) Resolve(in Input) string {
	accountID := strings.TrimSpace(in.AccountID)
	if accountID == "" || IsProfileArn(in.ModelID) {
		return in.ModelID
	}

	for _, s := range r.strategies {
		if profileID := s.ProfileID(in); profileID != "" {
			return BuildProfileArn(in.Region, accountID, profileID)
		}
	}
	return in.ModelID
}

// Resolve uses DefaultResolver.
func Resolve(in Input) string {
	return DefaultResolver.Resolve(in)
}

// BuildProfileArn formats an application inference profile ARN from trimmed components.
func BuildProfileArn(region, accountID, profileID string) string {
	return fmt.Sprintf("arn:aws:bedrock:%s:%s:application-inference-profile/%s",
		strings.TrimSpace(region), strings.TrimSpace(accountID), strings.TrimSpace(profileID))
}

// IsProfileArn reports whether id is an application inference profile ARN.
func IsProfileArn(id string) bool {
	return strings.HasPrefix(id, "arn:aws:bedrock:") && strings.Contains(id, ":application-inference-profile/")
}
