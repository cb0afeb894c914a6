// Package validate checks the configuration document and the remote vault
// content against their expected shapes.
//
// Both checks aggregate every failure before reporting so one pass shows the
// complete list of problems; nothing aborts on the first hit.
package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/internal/sshkey"
	"github.com/systmms/dotvault/pkg/backend"
)

// minFileContentLength is the smallest plausible size for file-typed vault
// content. Anything shorter is almost certainly a storage accident rather
// than a real config file.
const minFileContentLength = 8

// namePattern is the item naming convention: capitalized words joined by
// hyphens (Git-Config, SSH-Work, GitHub-CLI-Hosts).
var namePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*(-[A-Za-z0-9]+)*$`)

// documentSchema is the JSON Schema for the configuration document.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "ssh_keys": {
      "type": "object",
      "additionalProperties": {"type": "string", "minLength": 1}
    },
    "vault_items": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["path", "required", "type"],
        "properties": {
          "path": {"type": "string", "minLength": 1},
          "required": {"type": "boolean"},
          "type": {"enum": ["file", "sshkey"]},
          "id": {"type": "string"}
        },
        "additionalProperties": false
      }
    },
    "syncable_items": {
      "type": "object",
      "additionalProperties": {"type": "string", "minLength": 1}
    },
    "aws_expected_profiles": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "vault_location": {
      "type": "object",
      "required": ["type", "value"],
      "properties": {
        "type": {"type": "string"},
        "value": {"type": "string"}
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false
}`

// Issue is one validation failure.
type Issue struct {
	Check  string // "schema", "naming", "content"
	Item   string // item name when the issue is item-scoped
	Reason string
}

func (i Issue) String() string {
	if i.Item != "" {
		return fmt.Sprintf("[%s] %s: %s", i.Check, i.Item, i.Reason)
	}
	return fmt.Sprintf("[%s] %s", i.Check, i.Reason)
}

// Report aggregates validation issues for one pass.
type Report struct {
	Issues []Issue
}

// Count returns the number of failures; zero means the pass is clean.
func (r Report) Count() int {
	return len(r.Issues)
}

func (r *Report) add(check, item, reason string) {
	r.Issues = append(r.Issues, Issue{Check: check, Item: item, Reason: reason})
}

// Document validates raw config bytes against the document schema and the
// naming convention. YAML input is normalized to JSON before the schema run.
func Document(data []byte, path string) (Report, error) {
	var report Report

	jsonData, err := normalizeJSON(data, path)
	if err != nil {
		report.add("schema", "", err.Error())
		return report, nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return report, fmt.Errorf("schema validation: %w", err)
	}
	for _, desc := range result.Errors() {
		report.add("schema", "", desc.String())
	}

	var doc config.Document
	if err := json.Unmarshal(jsonData, &doc); err == nil {
		checkNaming(&doc, &report)
		checkCrossReferences(&doc, &report)
	}
	return report, nil
}

// normalizeJSON converts YAML config input to JSON so one schema covers both
// formats. JSON input passes through untouched.
func normalizeJSON(data []byte, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc config.Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("cannot parse YAML: %v", err)
		}
		return json.Marshal(&doc)
	default:
		return data, nil
	}
}

func checkNaming(doc *config.Document, report *Report) {
	for _, name := range doc.ItemNames() {
		if !namePattern.MatchString(name) {
			report.add("naming", name, "does not match the Capitalized-Hyphen convention")
		}
	}
}

func checkCrossReferences(doc *config.Document, report *Report) {
	for _, name := range doc.SyncableNames() {
		if _, ok := doc.VaultItems[name]; !ok {
			report.add("schema", name, "syncable item has no matching vault_items entry")
		}
	}
}

// Remote shape-checks the vault content of every configured item. A missing
// required item is a failure; a missing optional item is not.
func Remote(ctx context.Context, b backend.Backend, sess backend.Session, doc *config.Document) Report {
	var report Report

	for _, name := range doc.ItemNames() {
		item := doc.VaultItems[name]

		content, err := b.GetContent(ctx, name, sess)
		if err != nil {
			var notFound backend.NotFoundError
			if errors.As(err, &notFound) {
				if item.Required {
					report.add("content", name, "required item is missing from the vault")
				}
				continue
			}
			report.add("content", name, "cannot fetch: "+err.Error())
			continue
		}

		for _, reason := range checkShape(item.Type, content) {
			report.add("content", name, reason)
		}
	}
	return report
}

// checkShape validates content against its declared type. Exported through
// Remote but kept separate so the rules are testable without a backend.
func checkShape(itemType backend.ItemType, content string) []string {
	var reasons []string

	switch itemType {
	case backend.TypeSSHKey:
		if !sshkey.HasPrivateKeyDelimiters(content) {
			reasons = append(reasons, "no private key BEGIN/END delimiter pair found")
		}
		if !hasPublicKeyLine(content) {
			reasons = append(reasons, "no recognizable public key line found")
		}
	default:
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			reasons = append(reasons, "content is empty")
		} else if len(trimmed) < minFileContentLength {
			reasons = append(reasons, fmt.Sprintf("content is shorter than %d characters", minFileContentLength))
		}
	}
	return reasons
}

func hasPublicKeyLine(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if sshkey.IsPublicKeyLine(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}
