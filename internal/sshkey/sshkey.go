// Package sshkey splits combined SSH key material into its private and
// public halves. Key-pair vault items store both in one blob: the PEM
// private-key block followed by the one-line public key.
package sshkey

import (
	"errors"
	"strings"
)

// ErrUnparseable indicates the content contains no recognizable private-key
// block.
var ErrUnparseable = errors.New("no private key block found in content")

// publicKeyPrefixes are the recognized first tokens of an OpenSSH public key
// line.
var publicKeyPrefixes = []string{
	"ssh-ed25519",
	"ssh-rsa",
	"ecdsa-sha2-nistp256",
	"ecdsa-sha2-nistp384",
	"ecdsa-sha2-nistp521",
	"sk-ssh-ed25519@openssh.com",
	"sk-ecdsa-sha2-nistp256@openssh.com",
	"ssh-dss",
}

// KeyPair is the parsed result of a combined key blob.
type KeyPair struct {
	// PrivateKey is the delimited private-key block, trailing newline
	// included.
	PrivateKey string
	// PublicKey is the first public-key line, trailing newline included.
	// Empty when the blob carries no public half.
	PublicKey string
}

// HasPublicKey reports whether a public key line was present.
func (k KeyPair) HasPublicKey() bool {
	return k.PublicKey != ""
}

// Parse extracts the private-key block and the first matching public-key
// line from combined content. The private block spans from the BEGIN
// delimiter through the matching END delimiter; everything is matched
// deterministically so identical input always yields identical output.
func Parse(content string) (KeyPair, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var (
		priv     []string
		inBlock  bool
		complete bool
		public   string
	)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case !inBlock && strings.HasPrefix(trimmed, "-----BEGIN") && strings.Contains(trimmed, "PRIVATE KEY-----"):
			inBlock = true
			priv = append(priv, trimmed)
		case inBlock && !complete:
			priv = append(priv, trimmed)
			if strings.HasPrefix(trimmed, "-----END") && strings.Contains(trimmed, "PRIVATE KEY-----") {
				complete = true
				inBlock = false
			}
		case public == "" && IsPublicKeyLine(trimmed):
			public = trimmed
		}
	}

	if !complete {
		return KeyPair{}, ErrUnparseable
	}

	pair := KeyPair{PrivateKey: strings.Join(priv, "\n") + "\n"}
	if public != "" {
		pair.PublicKey = public + "\n"
	}
	return pair, nil
}

// IsPublicKeyLine reports whether the line starts with a known OpenSSH
// public key type token.
func IsPublicKeyLine(line string) bool {
	for _, prefix := range publicKeyPrefixes {
		if strings.HasPrefix(line, prefix+" ") || line == prefix {
			return true
		}
	}
	return false
}

// HasPrivateKeyDelimiters reports whether content carries a BEGIN/END
// private-key delimiter pair. Used by validation without a full parse.
func HasPrivateKeyDelimiters(content string) bool {
	return strings.Contains(content, "-----BEGIN") &&
		strings.Contains(content, "PRIVATE KEY-----") &&
		strings.Contains(content, "-----END")
}

// Combine joins a private block and public line back into the canonical
// blob stored in the vault.
func Combine(privateKey, publicKey string) string {
	out := strings.TrimRight(privateKey, "\n") + "\n"
	if publicKey != "" {
		out += strings.TrimRight(publicKey, "\n") + "\n"
	}
	return out
}
