package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/productd/internal/domain/resolvable"
)

// --- In-memory store ---

type memStore struct {
	resolvables []resolvable.Properties
	licenses    map[string]map[string]resolvable.License
	confirmed   map[string]bool

	licenseQueries int
}

func newMemStore(resolvables ...resolvable.Properties) *memStore {
	return &memStore{
		resolvables: resolvables,
		licenses:    make(map[string]map[string]resolvable.License),
		confirmed:   make(map[string]bool),
	}
}

func (m *memStore) addLicense(l resolvable.License) {
	if m.licenses[l.Name] == nil {
		m.licenses[l.Name] = make(map[string]resolvable.License)
	}
	m.licenses[l.Name][l.Language] = l
}

func (m *memStore) ListResolvables(_ context.Context) ([]resolvable.Properties, error) {
	return m.resolvables, nil
}

func (m *memStore) UpsertResolvable(_ context.Context, p resolvable.Properties) error {
	m.resolvables = append(m.resolvables, p)
	return nil
}

func (m *memStore) GetLicense(_ context.Context, name, lang string) (*resolvable.License, error) {
	m.licenseQueries++
	l, ok := m.licenses[name][lang]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *memStore) UpsertLicense(_ context.Context, l resolvable.License) error {
	m.addLicense(l)
	return nil
}

func (m *memStore) LicenseConfirmationRequired(_ context.Context, name string) (bool, error) {
	for _, l := range m.licenses[name] {
		if l.ConfirmationRequired {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) LicenseConfirmed(_ context.Context, name string) (bool, error) {
	return m.confirmed[name], nil
}

func (m *memStore) SetLicenseConfirmed(_ context.Context, name string, confirmed bool) error {
	m.confirmed[name] = confirmed
	return nil
}

// --- Helpers ---

func prod(name, repo string, status resolvable.Status) resolvable.Properties {
	return resolvable.Properties{
		Name:       name,
		Kind:       resolvable.KindProduct,
		Repository: repo,
		Status:     status,
		Version:    "15.6",
		Arch:       "x86_64",
		Vendor:     "openSUSE",
	}
}

func loadedResolver(t *testing.T, store *memStore) *Resolver {
	t.Helper()
	r := New(store)
	require.NoError(t, r.Load(context.Background()))
	return r
}

// --- Tests ---

func TestProperties_UnknownName(t *testing.T) {
	r := loadedResolver(t, newMemStore(prod("openSUSE", "repo-oss", resolvable.StatusNone)))

	props, err := r.Properties(context.Background(), "no-such-product", resolvable.KindProduct, "")
	require.NoError(t, err)
	assert.Empty(t, props, "unknown names must be a soft negative")
}

func TestProperties_KindAndRepoFilter(t *testing.T) {
	store := newMemStore(
		prod("openSUSE", "repo-oss", resolvable.StatusNone),
		prod("openSUSE", "repo-addon", resolvable.StatusNone),
		resolvable.Properties{Name: "openSUSE", Kind: resolvable.KindPattern, Repository: "repo-oss"},
	)
	r := loadedResolver(t, store)

	props, err := r.Properties(context.Background(), "openSUSE", resolvable.KindProduct, "")
	require.NoError(t, err)
	assert.Len(t, props, 2, "empty repo matches all repositories")

	props, err = r.Properties(context.Background(), "openSUSE", resolvable.KindProduct, "repo-addon")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "repo-addon", props[0].Repository)
}

func TestSelectAndNeutralize_SessionState(t *testing.T) {
	r := loadedResolver(t, newMemStore(prod("openSUSE", "repo-oss", resolvable.StatusNone)))
	ctx := context.Background()

	require.NoError(t, r.Select(ctx, "openSUSE", resolvable.KindProduct, ""))

	props, err := r.Properties(ctx, "openSUSE", resolvable.KindProduct, "")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, resolvable.StatusSelected, props[0].Status)

	require.NoError(t, r.Neutralize(ctx, "openSUSE", resolvable.KindProduct, true))

	props, err = r.Properties(ctx, "openSUSE", resolvable.KindProduct, "")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, resolvable.StatusNone, props[0].Status, "neutralize reverts to the stored status")
}

func TestSelect_UnknownNameIsNoop(t *testing.T) {
	r := loadedResolver(t, newMemStore(prod("openSUSE", "repo-oss", resolvable.StatusNone)))

	require.NoError(t, r.Select(context.Background(), "ghost", resolvable.KindProduct, ""))

	props, err := r.Properties(context.Background(), "ghost", resolvable.KindProduct, "")
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestNeutralize_RelatedKinds(t *testing.T) {
	store := newMemStore(
		prod("sles", "repo-oss", resolvable.StatusNone),
		resolvable.Properties{Name: "sles", Kind: resolvable.KindPattern, Repository: "repo-oss", Status: resolvable.StatusNone},
	)
	r := loadedResolver(t, store)
	ctx := context.Background()

	require.NoError(t, r.Select(ctx, "sles", resolvable.KindProduct, ""))
	require.NoError(t, r.Select(ctx, "sles", resolvable.KindPattern, ""))

	// keepRelated leaves the pattern selection alone.
	require.NoError(t, r.Neutralize(ctx, "sles", resolvable.KindProduct, true))
	props, err := r.Properties(ctx, "sles", resolvable.KindPattern, "")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, resolvable.StatusSelected, props[0].Status)

	// Without keepRelated the pattern reverts too.
	require.NoError(t, r.Neutralize(ctx, "sles", resolvable.KindProduct, false))
	props, err = r.Properties(ctx, "sles", resolvable.KindPattern, "")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, resolvable.StatusNone, props[0].Status)
}

func TestLicenseText(t *testing.T) {
	store := newMemStore(
		prod("sles", "repo-oss", resolvable.StatusNone),
		prod("leap", "repo-oss", resolvable.StatusNone),
	)
	store.addLicense(resolvable.License{Name: "sles", Language: "en_US", Text: "EULA", ConfirmationRequired: true})
	store.addLicense(resolvable.License{Name: "sles", Language: "de", Text: "EULA-DE"})
	r := loadedResolver(t, store)
	ctx := context.Background()

	text, err := r.LicenseText(ctx, "sles", "en_US")
	require.NoError(t, err)
	require.NotNil(t, text)
	assert.Equal(t, "EULA", *text)

	// de_DE falls back to the bare language code.
	text, err = r.LicenseText(ctx, "sles", "de_DE")
	require.NoError(t, err)
	require.NotNil(t, text)
	assert.Equal(t, "EULA-DE", *text)

	// cs_CZ falls back all the way to the default language.
	text, err = r.LicenseText(ctx, "sles", "cs_CZ")
	require.NoError(t, err)
	require.NotNil(t, text)
	assert.Equal(t, "EULA", *text)

	// Known product without any license: empty text, not nil.
	text, err = r.LicenseText(ctx, "leap", "en_US")
	require.NoError(t, err)
	require.NotNil(t, text)
	assert.Equal(t, "", *text)

	// Unknown product: nil.
	text, err = r.LicenseText(ctx, "ghost", "en_US")
	require.NoError(t, err)
	assert.Nil(t, text)
}

func TestLicenseText_UnknownSkipsStore(t *testing.T) {
	store := newMemStore(prod("sles", "repo-oss", resolvable.StatusNone))
	r := loadedResolver(t, store)

	_, err := r.LicenseText(context.Background(), "ghost", "en_US")
	require.NoError(t, err)
	assert.Zero(t, store.licenseQueries, "the prefilter must answer unknown names without a store query")
}

func TestLicenseConfirmation(t *testing.T) {
	store := newMemStore(prod("sles", "repo-oss", resolvable.StatusNone))
	store.addLicense(resolvable.License{Name: "sles", Language: "en_US", Text: "EULA", ConfirmationRequired: true})
	r := loadedResolver(t, store)
	ctx := context.Background()

	required, err := r.LicenseConfirmationRequired(ctx, "sles")
	require.NoError(t, err)
	assert.True(t, required)

	confirmed, err := r.LicenseConfirmed(ctx, "sles")
	require.NoError(t, err)
	assert.False(t, confirmed)

	require.NoError(t, r.ConfirmLicense(ctx, "sles"))
	confirmed, err = r.LicenseConfirmed(ctx, "sles")
	require.NoError(t, err)
	assert.True(t, confirmed)

	require.NoError(t, r.UnconfirmLicense(ctx, "sles"))
	confirmed, err = r.LicenseConfirmed(ctx, "sles")
	require.NoError(t, err)
	assert.False(t, confirmed)
}

func TestProducts_OrderAndBinding(t *testing.T) {
	store := newMemStore(
		prod("zzz-base", "repo-oss", resolvable.StatusNone),
		prod("addon-dev", "repo-addon", resolvable.StatusNone),
		prod("aaa-base", "repo-oss", resolvable.StatusInstalled),
	)
	r := loadedResolver(t, store)
	ctx := context.Background()

	products, err := r.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)

	assert.Equal(t, "aaa-base", products[0].Name)
	assert.Equal(t, "zzz-base", products[1].Name)
	assert.Equal(t, "addon-dev", products[2].Name, "add-ons sort after base products")

	// Products are live: selecting through the backend is visible on the
	// record's Selected query.
	require.NoError(t, r.Select(ctx, "zzz-base", resolvable.KindProduct, ""))
	selected, err := products[1].Selected(ctx)
	require.NoError(t, err)
	assert.True(t, selected)
}

func TestLoad_PreservesSession(t *testing.T) {
	store := newMemStore(prod("sles", "repo-oss", resolvable.StatusNone))
	r := loadedResolver(t, store)
	ctx := context.Background()

	require.NoError(t, r.Select(ctx, "sles", resolvable.KindProduct, ""))
	require.NoError(t, r.Load(ctx))

	props, err := r.Properties(ctx, "sles", resolvable.KindProduct, "")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, resolvable.StatusSelected, props[0].Status)
}
