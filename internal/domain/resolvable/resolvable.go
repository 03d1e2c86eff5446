// Package resolvable defines the vocabulary shared between the product
// domain and the package-resolution backend: the kinds of installable
// units, their selection statuses, and the property records the backend
// reports for them.
package resolvable

import "context"

// Kind identifies the type of an installable unit in the backend.
type Kind string

const (
	// KindProduct is an installable software product (base system or add-on).
	KindProduct Kind = "product"
	// KindPackage is a plain binary package.
	KindPackage Kind = "package"
	// KindPattern is a named group of packages installed together.
	KindPattern Kind = "pattern"
	// KindPatch is a maintenance update.
	KindPatch Kind = "patch"
)

// Status is the selection state of a resolvable as tracked by the backend.
type Status string

const (
	// StatusNone means the resolvable is known but neither installed nor
	// marked for any transaction.
	StatusNone Status = "none"
	// StatusSelected means the resolvable is marked for installation.
	StatusSelected Status = "selected"
	// StatusInstalled means the resolvable is already installed.
	StatusInstalled Status = "installed"
	// StatusRemoved means the resolvable is marked for removal.
	StatusRemoved Status = "removed"
)

// Properties describes a single resolvable as reported by the backend.
// Version, Arch, Vendor and Summary are carried from repository metadata
// and may be empty for resolvables the repo does not fully describe.
type Properties struct {
	Name       string
	Kind       Kind
	Status     Status
	Version    string
	Arch       string
	Vendor     string
	Summary    string
	Repository string
}

// License holds the license text of a resolvable in one language, together
// with the flag saying whether the user must confirm it before installation.
type License struct {
	Name                 string
	Language             string
	Text                 string
	ConfirmationRequired bool
}

// Store provides persistence for the resolvable catalog, license texts and
// license confirmations.
type Store interface {
	// ListResolvables returns every resolvable in the catalog.
	ListResolvables(ctx context.Context) ([]Properties, error)
	// UpsertResolvable inserts or replaces a catalog entry keyed by
	// (name, kind, repository).
	UpsertResolvable(ctx context.Context, p Properties) error

	// GetLicense returns the license for (name, lang), or nil when the
	// resolvable has no license text in that language.
	GetLicense(ctx context.Context, name, lang string) (*License, error)
	// UpsertLicense inserts or replaces a license text.
	UpsertLicense(ctx context.Context, l License) error
	// LicenseConfirmationRequired reports whether any license text for
	// name carries the confirmation-required flag.
	LicenseConfirmationRequired(ctx context.Context, name string) (bool, error)

	// LicenseConfirmed reports whether the license for name has been
	// confirmed. Unknown names read as false.
	LicenseConfirmed(ctx context.Context, name string) (bool, error)
	// SetLicenseConfirmed persists the confirmation flag for name.
	SetLicenseConfirmed(ctx context.Context, name string, confirmed bool) error
}
