// Package backend defines the contract that every vault backend in dotvault
// implements.
//
// A backend is an external credential store (Bitwarden, 1Password, pass/GPG)
// reached through its own CLI or API surface. Backends differ wildly in how
// they authenticate (explicit unlock token, OS-level biometric agent, GPG
// passphrase cached by gpg-agent) and in how they shape records (typed field
// lists, a single notes blob, an encrypted file tree). This package normalizes
// all of that to one shape the rest of the engine understands: a logical item
// name mapped to opaque text content.
//
// Implementations translate their native responses into the canonical Item
// type and report failures through the typed errors defined here so that
// callers can distinguish "the tool is missing" from "you are not logged in"
// from "that item does not exist".
package backend

import "context"

// ItemType classifies what a vault item's content represents.
type ItemType string

const (
	// TypeFile is an opaque file body (config, credentials, env file).
	TypeFile ItemType = "file"
	// TypeSSHKey is a combined SSH key pair: the private key block followed
	// by the public key line. Restore-only; never pushed.
	TypeSSHKey ItemType = "sshkey"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	return t == TypeFile || t == TypeSSHKey
}

// Item is the canonical representation of a vault entry, independent of the
// backend that stores it.
type Item struct {
	// ID is the provider-assigned identifier, empty when the provider has
	// no stable IDs (pass addresses entries by path).
	ID string

	// Name is the logical item name, unique within the vault namespace
	// dotvault manages.
	Name string

	// Type classifies the content. Backends that cannot store a type
	// report TypeFile.
	Type ItemType

	// Content is the opaque secret text. Never log this field.
	Content string
}

// Session is an opaque unlock credential for a backend. For agent-based
// backends the token is empty and the session is still valid because
// authentication is ambient.
type Session struct {
	Token string
}

// Location is an optional namespace hint (a folder, collection or store
// prefix) that scopes where items live inside the backend.
type Location struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// HealthReport summarizes a backend diagnostic pass.
type HealthReport struct {
	Backend        string
	ToolInstalled  bool
	Authenticated  bool
	StoreReachable bool
	ItemCount      int
	Notes          []string
}

// Backend is the uniform operation set over heterogeneous vault providers.
//
// Every method that talks to the provider takes a context; implementations
// must propagate cancellation to the underlying process so an unresponsive
// provider cannot block the run indefinitely.
//
// CreateItem, UpdateItem and DeleteItem are idempotent on double-invocation
// with identical content. UpdateItem and DeleteItem of a missing item return
// a NotFoundError rather than panicking; callers treat that as a reported
// failure, not a crash.
type Backend interface {
	// Name returns the stable lowercase backend identifier used in
	// configuration and environment selection ("bitwarden", "onepassword",
	// "pass").
	Name() string

	// Init verifies the provider tooling is present and usable. Returns a
	// PrerequisiteError naming the missing tool and how to install it.
	Init(ctx context.Context) error

	// LoginCheck reports whether the given session is currently usable
	// against the provider.
	LoginCheck(ctx context.Context, sess Session) bool

	// AcquireSession obtains a reusable unlock credential, prompting the
	// user where the provider requires it. Agent-based backends return an
	// empty token.
	AcquireSession(ctx context.Context) (Session, error)

	// SyncRemote refreshes the provider's local cache. Best effort:
	// failures are logged by the implementation and never fail the caller.
	SyncRemote(ctx context.Context, sess Session)

	// GetItem fetches the canonical item by name. Returns a NotFoundError
	// when the item does not exist.
	GetItem(ctx context.Context, name string, sess Session) (Item, error)

	// GetContent fetches only the item's content.
	GetContent(ctx context.Context, name string, sess Session) (string, error)

	// ItemExists reports whether the named item exists.
	ItemExists(ctx context.Context, name string, sess Session) (bool, error)

	// GetItemID returns the provider-assigned ID for the named item.
	GetItemID(ctx context.Context, name string, sess Session) (string, error)

	// ListItems enumerates the items in the managed namespace. Content may
	// be omitted by backends where listing does not decrypt.
	ListItems(ctx context.Context, sess Session) ([]Item, error)

	// CreateItem stores a new item.
	CreateItem(ctx context.Context, name, content string, sess Session) error

	// UpdateItem replaces the content of an existing item.
	UpdateItem(ctx context.Context, name, content string, sess Session) error

	// DeleteItem removes an item.
	DeleteItem(ctx context.Context, name string, sess Session) error

	// HealthCheck produces a diagnostic summary for the doctor command.
	HealthCheck(ctx context.Context, sess Session) (HealthReport, error)
}

// LocationLister is implemented by backends that support enumerating the
// folders or collections items can live in.
type LocationLister interface {
	ListLocations(ctx context.Context, sess Session) ([]Location, error)
}

// NotFoundError indicates the named item does not exist in the backend.
type NotFoundError struct {
	Backend string
	Name    string
}

func (e NotFoundError) Error() string {
	return "item not found: " + e.Name + " in " + e.Backend
}

// AuthError indicates authentication to the backend failed or is required.
type AuthError struct {
	Backend string
	Message string
}

func (e AuthError) Error() string {
	return "authentication failed for " + e.Backend + ": " + e.Message
}

// PrerequisiteError indicates the provider tooling is absent or unusable.
type PrerequisiteError struct {
	Backend string
	Tool    string
	Install string
}

func (e PrerequisiteError) Error() string {
	msg := e.Backend + ": required tool '" + e.Tool + "' not found"
	if e.Install != "" {
		msg += ". Install: " + e.Install
	}
	return msg
}
