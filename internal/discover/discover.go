// Package discover scans well-known local locations for credential files and
// SSH keys and produces a candidate configuration document. The scan is
// read-only; turning the candidate into the active config goes through Merge
// so manual edits survive rediscovery.
package discover

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/systmms/dotvault/internal/config"
	"github.com/systmms/dotvault/internal/logging"
	"github.com/systmms/dotvault/internal/sshkey"
	"github.com/systmms/dotvault/pkg/backend"
)

// wellKnownFile maps an item name to its home-relative location.
type wellKnownFile struct {
	name string
	path string
}

// wellKnownFiles is the fixed scan list for credential and identity files.
// Paths are relative to the scanner's home directory.
var wellKnownFiles = []wellKnownFile{
	{"Git-Config", ".gitconfig"},
	{"NPM-Token", ".npmrc"},
	{"PyPI-Config", ".pypirc"},
	{"AWS-Config", ".aws/config"},
	{"AWS-Credentials", ".aws/credentials"},
	{"GitHub-CLI-Hosts", ".config/gh/hosts.yml"},
	{"Kube-Config", ".kube/config"},
	{"Netrc", ".netrc"},
}

// Scanner discovers credential files under a home directory.
type Scanner struct {
	Home   string
	Logger *logging.Logger
}

// NewScanner creates a scanner rooted at the user's home directory.
func NewScanner(logger *logging.Logger) (*Scanner, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Scanner{Home: home, Logger: logger}, nil
}

// Discover produces a candidate document from the filesystem. Every found
// file becomes a required vault item; SSH keys are restore-only and stay out
// of syncable_items.
func (s *Scanner) Discover(ctx context.Context) (*config.Document, error) {
	doc := &config.Document{
		SSHKeys:       make(map[string]string),
		VaultItems:    make(map[string]config.VaultItem),
		SyncableItems: make(map[string]string),
	}

	s.scanFiles(doc)
	s.scanSSHKeys(doc)
	s.scanAWSProfiles(ctx, doc)

	return doc, nil
}

func (s *Scanner) scanFiles(doc *config.Document) {
	for _, wk := range wellKnownFiles {
		path := filepath.Join(s.Home, filepath.FromSlash(wk.path))
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		s.Logger.Debug("found %s at %s", wk.name, path)
		doc.VaultItems[wk.name] = config.VaultItem{
			Path:     path,
			Required: true,
			Type:     backend.TypeFile,
		}
		doc.SyncableItems[wk.name] = path
	}
}

// scanSSHKeys walks ~/.ssh for private keys. A file counts as a key when its
// content carries the private-key delimiters; extension and name are not
// trusted.
func (s *Scanner) scanSSHKeys(doc *config.Document) {
	sshDir := filepath.Join(s.Home, ".ssh")
	entries, err := os.ReadDir(sshDir)
	if err != nil {
		return
	}

	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".pub") {
			continue
		}
		switch e.Name() {
		case "config", "known_hosts", "known_hosts.old", "authorized_keys", "agent.env":
			continue
		}

		path := filepath.Join(sshDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.Logger.Debug("cannot read %s: %v", path, err)
			continue
		}
		if !sshkey.HasPrivateKeyDelimiters(string(data)) {
			continue
		}

		name := keyItemName(e.Name())
		s.Logger.Debug("found %s at %s", name, path)
		doc.SSHKeys[name] = path
		doc.VaultItems[name] = config.VaultItem{
			Path:     path,
			Required: true,
			Type:     backend.TypeSSHKey,
		}
	}
}

// keyAlgorithms are the id_<algo> tokens dropped when deriving an item name
// from a key filename.
var keyAlgorithms = map[string]bool{
	"rsa": true, "dsa": true, "ecdsa": true, "ed25519": true,
}

// keyItemName derives the item name from a key filename:
// id_ed25519_work -> SSH-Work, id_rsa -> SSH-Rsa, deploy_key -> SSH-Deploy-Key.
func keyItemName(filename string) string {
	parts := strings.Split(strings.TrimPrefix(filename, "id_"), "_")

	// The algorithm token only matters when nothing more descriptive follows.
	if len(parts) > 1 && keyAlgorithms[parts[0]] {
		parts = parts[1:]
	}

	var kept []string
	for _, part := range parts {
		if part != "" {
			kept = append(kept, capitalize(part))
		}
	}
	if len(kept) == 0 {
		kept = []string{"Key"}
	}
	return "SSH-" + strings.Join(kept, "-")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// scanAWSProfiles enumerates profile names from the shared config file and
// confirms each one loads through the AWS shared-config parser, so a profile
// with broken syntax is reported instead of silently recorded.
func (s *Scanner) scanAWSProfiles(ctx context.Context, doc *config.Document) {
	configFile := filepath.Join(s.Home, ".aws", "config")
	credsFile := filepath.Join(s.Home, ".aws", "credentials")

	names := readProfileNames(configFile, true)
	names = append(names, readProfileNames(credsFile, false)...)
	if len(names) == 0 {
		return
	}

	seen := make(map[string]bool)
	var profiles []string
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		_, err := awsconfig.LoadSharedConfigProfile(ctx, name,
			func(o *awsconfig.LoadSharedConfigOptions) {
				o.ConfigFiles = []string{configFile}
				o.CredentialsFiles = []string{credsFile}
			})
		if err != nil {
			s.Logger.Warn("aws profile %s did not load cleanly: %v", name, err)
			continue
		}
		profiles = append(profiles, name)
	}

	sort.Strings(profiles)
	doc.AWSExpectedProfiles = profiles
}

// readProfileNames extracts section names from an AWS ini file. The config
// file prefixes non-default sections with "profile "; the credentials file
// does not.
func readProfileNames(path string, profilePrefix bool) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
			continue
		}
		section := strings.TrimSpace(line[1 : len(line)-1])
		if profilePrefix {
			if section == "default" {
				names = append(names, section)
				continue
			}
			if strings.HasPrefix(section, "profile ") {
				names = append(names, strings.TrimSpace(strings.TrimPrefix(section, "profile ")))
			}
			continue
		}
		names = append(names, section)
	}
	return names
}
