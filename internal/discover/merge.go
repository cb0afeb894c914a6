package discover

import (
	"fmt"

	"github.com/systmms/dotvault/internal/config"
)

// Merge reconciles a freshly discovered candidate document with the existing
// one. It is a pure structural merge: neither input is mutated, and for any
// document X both merge(X, X) == X and merge(X, empty) == X hold exactly.
//
// Policy per field:
//   - ssh_keys: union, candidate path wins for rediscovered names.
//   - vault_items: rediscovered entries adopt the candidate path and type but
//     preserve a manual required:false downgrade; entries not rediscovered
//     are retained verbatim as manual additions; new names are added.
//   - syncable_items: union, candidate wins.
//   - aws_expected_profiles: deduplicated union, existing order first.
//   - vault_location: the existing setting wins; discovery never picks one.
//
// The returned warnings name the items whose type changed between the
// existing document and the candidate.
func Merge(candidate, existing *config.Document) (*config.Document, []string) {
	if existing == nil {
		existing = &config.Document{}
	}

	merged := &config.Document{
		SSHKeys:       make(map[string]string),
		VaultItems:    make(map[string]config.VaultItem),
		SyncableItems: make(map[string]string),
	}
	var warnings []string

	for name, path := range existing.SSHKeys {
		merged.SSHKeys[name] = path
	}
	for name, path := range candidate.SSHKeys {
		merged.SSHKeys[name] = path
	}

	for name, item := range existing.VaultItems {
		merged.VaultItems[name] = item
	}
	for name, item := range candidate.VaultItems {
		prior, rediscovered := existing.VaultItems[name]
		if rediscovered {
			if prior.Type != item.Type {
				warnings = append(warnings,
					fmt.Sprintf("%s: type changed from %s to %s", name, prior.Type, item.Type))
			}
			if !prior.Required {
				item.Required = false
			}
			if prior.ID != "" {
				item.ID = prior.ID
			}
		}
		merged.VaultItems[name] = item
	}

	for name, path := range existing.SyncableItems {
		merged.SyncableItems[name] = path
	}
	for name, path := range candidate.SyncableItems {
		merged.SyncableItems[name] = path
	}

	seen := make(map[string]bool)
	for _, profile := range existing.AWSExpectedProfiles {
		if !seen[profile] {
			seen[profile] = true
			merged.AWSExpectedProfiles = append(merged.AWSExpectedProfiles, profile)
		}
	}
	for _, profile := range candidate.AWSExpectedProfiles {
		if !seen[profile] {
			seen[profile] = true
			merged.AWSExpectedProfiles = append(merged.AWSExpectedProfiles, profile)
		}
	}

	merged.VaultLocation = existing.VaultLocation
	if merged.VaultLocation == nil {
		merged.VaultLocation = candidate.VaultLocation
	}

	return merged, warnings
}
