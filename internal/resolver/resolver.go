// Package resolver implements the package-resolution backend productd
// serves products from: a resolvable catalog loaded from persistent
// storage, per-session selection state, and persisted license decisions.
package resolver

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/pkgforge/productd/internal/domain/product"
	"github.com/pkgforge/productd/internal/domain/resolvable"
	"github.com/pkgforge/productd/internal/locale"
)

var _ product.Backend = (*Resolver)(nil)

// bloomFPR is the false-positive rate of the known-name prefilter. A false
// positive only costs one catalog map lookup.
const bloomFPR = 0.001

// sessionKey identifies a resolvable within the session state.
type sessionKey struct {
	name string
	kind resolvable.Kind
}

// Resolver is the authoritative owner of selection and license state.
//
// The catalog and the persisted license decisions come from the store;
// selection is session state and lives only in memory, so a restart
// resets every mark without touching installed products.
type Resolver struct {
	store       resolvable.Store
	queries     metric.Int64Counter
	productOpts []product.Option

	mu      sync.RWMutex
	catalog map[string][]resolvable.Properties
	session map[sessionKey]resolvable.Status
	known   *bloom.BloomFilter
}

// Option customizes resolver construction.
type Option func(*Resolver)

// WithMeterProvider overrides the meter provider used for the backend
// query counter. The global provider is used by default.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(r *Resolver) {
		r.queries = newQueryCounter(mp)
	}
}

// WithDefaultLanguage fixes the license language used by product records
// built by Products, instead of reading the process locale per query.
func WithDefaultLanguage(lang string) Option {
	return func(r *Resolver) {
		r.productOpts = append(r.productOpts,
			product.WithLanguageFunc(func() string { return lang }))
	}
}

// New creates a Resolver over the given store. Call Load before serving
// queries.
func New(store resolvable.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:   store,
		queries: newQueryCounter(otel.GetMeterProvider()),
		catalog: make(map[string][]resolvable.Properties),
		session: make(map[sessionKey]resolvable.Status),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func newQueryCounter(mp metric.MeterProvider) metric.Int64Counter {
	meter := mp.Meter("github.com/pkgforge/productd/internal/resolver")
	counter, err := meter.Int64Counter("productd.backend.queries",
		metric.WithDescription("Backend queries and commands by operation."))
	if err != nil {
		counter, _ = noop.NewMeterProvider().Meter("").Int64Counter("")
	}
	return counter
}

// Load replaces the in-memory catalog with the store contents and rebuilds
// the known-name prefilter. Session selection state is preserved so a
// catalog refresh does not drop user choices.
func (r *Resolver) Load(ctx context.Context) error {
	all, err := r.store.ListResolvables(ctx)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	catalog := make(map[string][]resolvable.Properties, len(all))
	size := uint(len(all))
	if size == 0 {
		size = 1
	}
	known := bloom.NewWithEstimates(size, bloomFPR)
	for _, p := range all {
		catalog[p.Name] = append(catalog[p.Name], p)
		known.AddString(p.Name)
	}

	r.mu.Lock()
	r.catalog = catalog
	r.known = known
	r.mu.Unlock()
	return nil
}

func (r *Resolver) count(ctx context.Context, op string) {
	r.queries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

// knownName reports whether name can be in the catalog. The bloom filter
// answers definite misses without a map lookup.
func (r *Resolver) knownName(name string) bool {
	if r.known != nil && !r.known.TestString(name) {
		return false
	}
	_, ok := r.catalog[name]
	return ok
}

// Properties reports the resolvables matching name and kind, with session
// selection state applied over the stored status. Unknown names yield an
// empty result, not an error.
func (r *Resolver) Properties(ctx context.Context, name string, kind resolvable.Kind, repo string) ([]resolvable.Properties, error) {
	r.count(ctx, "properties")

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.knownName(name) {
		return nil, nil
	}

	var out []resolvable.Properties
	for _, p := range r.catalog[name] {
		if p.Kind != kind {
			continue
		}
		if repo != "" && p.Repository != repo {
			continue
		}
		if status, ok := r.session[sessionKey{name: p.Name, kind: p.Kind}]; ok {
			p.Status = status
		}
		out = append(out, p)
	}
	return out, nil
}

// Select marks the resolvable for installation. Unknown names are a
// silent no-op, matching the soft-negative contract of the backend.
func (r *Resolver) Select(ctx context.Context, name string, kind resolvable.Kind, repo string) error {
	r.count(ctx, "select")

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.knownName(name) {
		return nil
	}
	for _, p := range r.catalog[name] {
		if p.Kind != kind {
			continue
		}
		if repo != "" && p.Repository != repo {
			continue
		}
		r.session[sessionKey{name: p.Name, kind: p.Kind}] = resolvable.StatusSelected
		return nil
	}
	return nil
}

// Neutralize drops the session status of the resolvable, reverting it to
// the stored state. With keepRelated false, identically named resolvables
// of other kinds (a product's pattern or release package) are reverted
// too.
func (r *Resolver) Neutralize(ctx context.Context, name string, kind resolvable.Kind, keepRelated bool) error {
	r.count(ctx, "neutralize")

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.session, sessionKey{name: name, kind: kind})
	if !keepRelated {
		for _, k := range []resolvable.Kind{resolvable.KindProduct, resolvable.KindPackage, resolvable.KindPattern, resolvable.KindPatch} {
			delete(r.session, sessionKey{name: name, kind: k})
		}
	}
	return nil
}

// LicenseText returns the license to confirm for name: the text, the empty
// string when the resolvable carries no license, or nil when the name is
// unknown. Missing translations fall back to the bare language code and
// then to the default language.
func (r *Resolver) LicenseText(ctx context.Context, name, lang string) (*string, error) {
	r.count(ctx, "license_text")

	r.mu.RLock()
	known := r.knownName(name)
	r.mu.RUnlock()
	if !known {
		return nil, nil
	}

	for _, candidate := range licenseLangs(lang) {
		l, err := r.store.GetLicense(ctx, name, candidate)
		if err != nil {
			return nil, errors.Wrap(err, "get license")
		}
		if l != nil {
			text := l.Text
			return &text, nil
		}
	}

	// Known resolvable without any license text: no license to confirm.
	empty := ""
	return &empty, nil
}

// licenseLangs returns the language codes to try, most specific first:
// "de_DE" yields de_DE, de, en_US.
func licenseLangs(lang string) []string {
	langs := []string{lang}
	if i := strings.IndexByte(lang, '_'); i > 0 {
		langs = append(langs, lang[:i])
	}
	if lang != locale.DefaultLanguage {
		langs = append(langs, locale.DefaultLanguage)
	}
	return langs
}

// LicenseConfirmationRequired reports whether the license for name must be
// confirmed. Unknown names read as false.
func (r *Resolver) LicenseConfirmationRequired(ctx context.Context, name string) (bool, error) {
	r.count(ctx, "license_required")

	r.mu.RLock()
	known := r.knownName(name)
	r.mu.RUnlock()
	if !known {
		return false, nil
	}
	return r.store.LicenseConfirmationRequired(ctx, name)
}

// ConfirmLicense persists the user's acceptance of the license for name.
func (r *Resolver) ConfirmLicense(ctx context.Context, name string) error {
	r.count(ctx, "confirm_license")
	return r.store.SetLicenseConfirmed(ctx, name, true)
}

// UnconfirmLicense persists the withdrawal of the license acceptance.
func (r *Resolver) UnconfirmLicense(ctx context.Context, name string) error {
	r.count(ctx, "unconfirm_license")
	return r.store.SetLicenseConfirmed(ctx, name, false)
}

// LicenseConfirmed reports whether the license for name has been
// confirmed. Unknown names read as false.
func (r *Resolver) LicenseConfirmed(ctx context.Context, name string) (bool, error) {
	r.count(ctx, "license_confirmed")
	return r.store.LicenseConfirmed(ctx, name)
}

// Products builds the product records for every product-kind resolvable in
// the catalog, bound to this resolver as their backend. Base products come
// first so SelectedBase scans them in catalog order.
func (r *Resolver) Products(ctx context.Context) ([]*product.Product, error) {
	r.count(ctx, "products")

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*product.Product
	for _, entries := range r.catalog {
		for _, p := range entries {
			if p.Kind != resolvable.KindProduct {
				continue
			}
			status := p.Status
			if s, ok := r.session[sessionKey{name: p.Name, kind: p.Kind}]; ok {
				status = s
			}
			out = append(out, product.New(r, product.Attributes{
				Name:     p.Name,
				Version:  p.Version,
				Arch:     p.Arch,
				Vendor:   p.Vendor,
				Category: categoryOf(p),
				Status:   status,
			}, r.productOpts...))
		}
	}
	sortProducts(out)
	return out, nil
}

// categoryOf derives the product category from repo metadata: products
// from an addon repository are add-ons, everything else is a base product
// candidate.
func categoryOf(p resolvable.Properties) product.Category {
	if strings.Contains(p.Repository, "addon") {
		return product.CategoryAddon
	}
	return product.CategoryBase
}

// sortProducts orders base products before add-ons, then by name, so the
// first-match policy of SelectedBase sees base products in a stable order.
func sortProducts(products []*product.Product) {
	slices.SortFunc(products, func(a, b *product.Product) int {
		if a.Category != b.Category {
			if a.Category == product.CategoryBase {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
}
