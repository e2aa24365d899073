// Package config defines the RuntimeConfig advertised to the sidecar's
// configuration probe, along with the per-type override and reentrancy
// sub-documents it carries.
package config

import (
	"encoding/json"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Reentrancy is the optional reentrancy sub-document of a RuntimeConfig or
// per-type override.
type Reentrancy struct {
	Enabled       bool
	MaxStackDepth int
}

// MarshalJSON renders {"enabled":...,"maxStackDepth":...}.
func (r Reentrancy) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Enabled       bool `json:"enabled"`
		MaxStackDepth int  `json:"maxStackDepth"`
	}{r.Enabled, r.MaxStackDepth})
}

// TypeConfig is a per-actor-type override of the process-wide defaults.
// Reentrancy and RemindersStoragePartitions are fn.None when unset,
// matching the JSON wire contract's "optionally present" fields.
type TypeConfig struct {
	ActorType                  string
	ActorIdleTimeout           time.Duration
	ActorScanInterval          time.Duration
	DrainOngoingCallTimeout    time.Duration
	DrainRebalancedActors      bool
	Reentrancy                 fn.Option[Reentrancy]
	RemindersStoragePartitions fn.Option[int]
}

func (t TypeConfig) asDict() map[string]interface{} {
	out := map[string]interface{}{
		"actorIdleTimeout":        FormatDuration(t.ActorIdleTimeout),
		"actorScanInterval":       FormatDuration(t.ActorScanInterval),
		"drainOngoingCallTimeout": FormatDuration(t.DrainOngoingCallTimeout),
		"drainRebalancedActors":   t.DrainRebalancedActors,
	}

	t.Reentrancy.WhenSome(func(r Reentrancy) { out["reentrancy"] = r })
	t.RemindersStoragePartitions.WhenSome(func(n int) {
		out["remindersStoragePartitions"] = n
	})

	return out
}

// RuntimeConfig is the process-wide configuration advertised to the
// sidecar's getConfig probe. Durations marshal using the Go-style wire
// format (config.FormatDuration), matching spec.md §6's duration contract.
type RuntimeConfig struct {
	IdleTimeout                time.Duration
	ScanInterval               time.Duration
	DrainOngoingCallTimeout    time.Duration
	DrainRebalancedActors      bool
	Reentrancy                 fn.Option[Reentrancy]
	RemindersStoragePartitions fn.Option[int]

	// Entities holds the registered actor type names. The advertised
	// entities list is the union of these plus any PerType config names
	// (spec.md §3 invariant).
	Entities map[string]struct{}

	// PerType holds per-actor-type overrides, keyed by actor type name.
	PerType map[string]TypeConfig
}

// DefaultRuntimeConfig returns the default configuration: a 1 hour idle
// timeout, 30 second scan interval, 1 minute drain timeout, and rebalanced
// actor draining enabled — matching the original SDK's defaults.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		IdleTimeout:             time.Hour,
		ScanInterval:            30 * time.Second,
		DrainOngoingCallTimeout: time.Minute,
		DrainRebalancedActors:   true,
		Entities:                make(map[string]struct{}),
		PerType:                 make(map[string]TypeConfig),
	}
}

// AddEntity adds typeName to the set of advertised entities.
func (c *RuntimeConfig) AddEntity(typeName string) {
	if c.Entities == nil {
		c.Entities = make(map[string]struct{})
	}

	c.Entities[typeName] = struct{}{}
}

// entityNames returns the union of Entities and the PerType names as a
// sorted-free slice (order is not meaningful to the sidecar's consumer, only
// set membership is).
func (c RuntimeConfig) entityNames() []string {
	names := make([]string, 0, len(c.Entities)+len(c.PerType))
	for name := range c.Entities {
		names = append(names, name)
	}
	for name := range c.PerType {
		if _, ok := c.Entities[name]; !ok {
			names = append(names, name)
		}
	}

	return names
}

// MarshalJSON renders the RuntimeConfig JSON wire contract from spec.md §6:
// entities, actorIdleTimeout, actorScanInterval, drainOngoingCallTimeout,
// drainRebalancedActors, and the optional reentrancy/
// remindersStoragePartitions/entitiesConfig fields.
func (c RuntimeConfig) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"entities":                c.entityNames(),
		"actorIdleTimeout":        FormatDuration(c.IdleTimeout),
		"actorScanInterval":       FormatDuration(c.ScanInterval),
		"drainOngoingCallTimeout": FormatDuration(c.DrainOngoingCallTimeout),
		"drainRebalancedActors":   c.DrainRebalancedActors,
	}

	c.Reentrancy.WhenSome(func(r Reentrancy) { out["reentrancy"] = r })
	c.RemindersStoragePartitions.WhenSome(func(n int) {
		out["remindersStoragePartitions"] = n
	})

	if len(c.PerType) > 0 {
		entitiesConfig := make([]map[string]interface{}, 0, len(c.PerType))
		for name, tc := range c.PerType {
			entry := tc.asDict()
			entry["entities"] = []string{name}
			entitiesConfig = append(entitiesConfig, entry)
		}
		out["entitiesConfig"] = entitiesConfig
	}

	return json.Marshal(out)
}
