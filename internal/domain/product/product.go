// Package product implements the installable software product record: a
// small immutable attribute holder whose selection, installation and
// license state live in the package-resolution backend it delegates to.
package product

import (
	"context"

	"github.com/pkgforge/productd/internal/domain/resolvable"
	"github.com/pkgforge/productd/internal/locale"
)

// Category classifies a product within the distribution.
type Category string

const (
	// CategoryBase marks a product that can act as the base system.
	CategoryBase Category = "base"
	// CategoryAddon marks an add-on product installed on top of a base.
	CategoryAddon Category = "addon"
)

// Backend is the package-resolution engine a Product delegates to. It owns
// the authoritative selection and license state for every resolvable; the
// Product never mutates local state on its own.
//
// Lookups by unknown names are soft negatives (empty result, nil text,
// false), not errors.
type Backend interface {
	// Properties reports the resolvables matching name and kind. An empty
	// repo means all repositories.
	Properties(ctx context.Context, name string, kind resolvable.Kind, repo string) ([]resolvable.Properties, error)

	// Select marks the resolvable for installation. An empty repo means
	// the default repository.
	Select(ctx context.Context, name string, kind resolvable.Kind, repo string) error

	// Neutralize resets the resolvable to a neutral status. keepRelated
	// preserves the selection state of related resolvables.
	Neutralize(ctx context.Context, name string, kind resolvable.Kind, keepRelated bool) error

	// LicenseText returns the license text to confirm for name in the
	// given language: the text, the empty string when no license is
	// required, or nil when the backend does not know the name.
	LicenseText(ctx context.Context, name, lang string) (*string, error)

	// LicenseConfirmationRequired reports whether the license for name
	// must be confirmed before installation.
	LicenseConfirmationRequired(ctx context.Context, name string) (bool, error)

	// ConfirmLicense marks the license for name as confirmed.
	ConfirmLicense(ctx context.Context, name string) error

	// UnconfirmLicense marks the license for name as not confirmed.
	UnconfirmLicense(ctx context.Context, name string) error

	// LicenseConfirmed reports whether the license for name has already
	// been confirmed.
	LicenseConfirmed(ctx context.Context, name string) (bool, error)
}

// LanguageFunc returns the display-language code used when a license is
// requested without an explicit language.
type LanguageFunc func() string

// Attributes holds the descriptive attributes a Product is constructed
// from. DisplayName and ShortName are optional; nil means absent.
type Attributes struct {
	Name        string
	Version     string
	Arch        string
	Vendor      string
	Category    Category
	Status      resolvable.Status
	DisplayName *string
	ShortName   *string
}

// Product is an immutable record describing one installable product.
// Status is a snapshot taken at construction and may be stale; live state
// is always fetched from the backend.
type Product struct {
	Name        string
	Version     string
	Arch        string
	Vendor      string
	Category    Category
	Status      resolvable.Status
	DisplayName *string
	ShortName   *string

	backend Backend
	lang    LanguageFunc
}

// Option customizes product construction.
type Option func(*Product)

// WithLanguageFunc overrides the display-language accessor used as the
// default license language.
func WithLanguageFunc(fn LanguageFunc) Option {
	return func(p *Product) { p.lang = fn }
}

// New constructs a Product bound to the given backend. Construction never
// fails; absent optional attributes simply degrade the derived behavior.
func New(backend Backend, attrs Attributes, opts ...Option) *Product {
	p := &Product{
		Name:        attrs.Name,
		Version:     attrs.Version,
		Arch:        attrs.Arch,
		Vendor:      attrs.Vendor,
		Category:    attrs.Category,
		Status:      attrs.Status,
		DisplayName: attrs.DisplayName,
		ShortName:   attrs.ShortName,
		backend:     backend,
		lang:        locale.Display,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromMap constructs a Product from a loose attribute mapping. Unknown keys
// and values of unexpected types are ignored; missing optional keys stay
// absent.
func FromMap(backend Backend, attrs map[string]any, opts ...Option) *Product {
	a := Attributes{}
	for key, value := range attrs {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch key {
		case "name":
			a.Name = s
		case "version":
			a.Version = s
		case "arch":
			a.Arch = s
		case "vendor":
			a.Vendor = s
		case "category":
			a.Category = Category(s)
		case "status":
			a.Status = resolvable.Status(s)
		case "display_name":
			v := s
			a.DisplayName = &v
		case "short_name":
			v := s
			a.ShortName = &v
		}
	}
	return New(backend, a, opts...)
}

// Equal reports whether two products refer to the same release: name,
// version, arch and vendor all match. Category, status and display names
// are deliberately excluded so duplicates from different repositories
// compare equal.
func (p *Product) Equal(other *Product) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Name == other.Name &&
		p.Version == other.Version &&
		p.Arch == other.Arch &&
		p.Vendor == other.Vendor
}

// Label returns the name to display for the product: the display name when
// present, else the short name, else the plain name.
func (p *Product) Label() string {
	if p.DisplayName != nil {
		return *p.DisplayName
	}
	if p.ShortName != nil {
		return *p.ShortName
	}
	return p.Name
}

// Selected reports whether the backend currently has this product marked
// for installation. Unknown products and every status other than selected
// read as false.
func (p *Product) Selected(ctx context.Context) (bool, error) {
	props, err := p.backend.Properties(ctx, p.Name, resolvable.KindProduct, "")
	if err != nil {
		return false, err
	}
	for _, prop := range props {
		if prop.Status == resolvable.StatusSelected {
			return true, nil
		}
	}
	return false, nil
}

// Select marks the product for installation in the default repository.
func (p *Product) Select(ctx context.Context) error {
	return p.backend.Select(ctx, p.Name, resolvable.KindProduct, "")
}

// Restore resets the product to a neutral status, keeping the selection
// state of related resolvables intact.
func (p *Product) Restore(ctx context.Context) error {
	return p.backend.Neutralize(ctx, p.Name, resolvable.KindProduct, true)
}

// License returns the license text to confirm for the product, verbatim
// from the backend: the text, the empty string when no license is
// required, or nil when the backend does not know the product. An empty
// lang falls back to the configured display language.
func (p *Product) License(ctx context.Context, lang string) (*string, error) {
	if lang == "" {
		lang = p.lang()
	}
	return p.backend.LicenseText(ctx, p.Name, lang)
}

// HasLicense reports whether the product carries a license text in the
// current display language. Both "no license required" and "product
// unknown" read as false. It is derived from License and issues no
// separate backend query.
func (p *Product) HasLicense(ctx context.Context) (bool, error) {
	text, err := p.License(ctx, "")
	if err != nil {
		return false, err
	}
	return text != nil && *text != "", nil
}

// LicenseConfirmationRequired reports whether the user must confirm the
// product license before installation.
func (p *Product) LicenseConfirmationRequired(ctx context.Context) (bool, error) {
	return p.backend.LicenseConfirmationRequired(ctx, p.Name)
}

// SetLicenseConfirmation records the user's license decision in the
// backend. Exactly one backend command is issued per call.
func (p *Product) SetLicenseConfirmation(ctx context.Context, confirmed bool) error {
	if confirmed {
		return p.backend.ConfirmLicense(ctx, p.Name)
	}
	return p.backend.UnconfirmLicense(ctx, p.Name)
}

// LicenseConfirmed reports whether the product license has already been
// confirmed.
func (p *Product) LicenseConfirmed(ctx context.Context) (bool, error) {
	return p.backend.LicenseConfirmed(ctx, p.Name)
}

// SelectedBase returns the first product in the given enumeration that the
// backend reports as selected, or nil when none is. Enumeration order
// decides ties: first match wins, the scan stops there.
func SelectedBase(ctx context.Context, products []*Product) (*Product, error) {
	for _, p := range products {
		selected, err := p.Selected(ctx)
		if err != nil {
			return nil, err
		}
		if selected {
			return p, nil
		}
	}
	return nil, nil
}
