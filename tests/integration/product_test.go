//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != seededProducts {
		t.Fatalf("expected %d products, got %d", seededProducts, len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var leap *productResponse
	for i := range products {
		if products[i].Name == "openSUSE-Leap" {
			leap = &products[i]
			break
		}
	}

	if leap == nil {
		t.Fatal("product openSUSE-Leap not found")
	}
	if leap.Version != "15.6-1.4" {
		t.Errorf("version: got %q, want %q", leap.Version, "15.6-1.4")
	}
	if leap.Arch != "x86_64" {
		t.Errorf("arch: got %q, want %q", leap.Arch, "x86_64")
	}
	if leap.Vendor != "openSUSE" {
		t.Errorf("vendor: got %q, want %q", leap.Vendor, "openSUSE")
	}
	if leap.Category != "base" {
		t.Errorf("category: got %q, want %q", leap.Category, "base")
	}
	if leap.Label == "" {
		t.Error("label is empty")
	}
}

func TestListProducts_BaseBeforeAddons(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	products := decodeJSON[[]productResponse](t, resp)

	seenAddon := false
	for _, p := range products {
		if p.Category == "addon" {
			seenAddon = true
		} else if seenAddon {
			t.Fatalf("base product %s listed after an addon", p.Name)
		}
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/SLES")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.Name != "SLES" {
		t.Errorf("name: got %q, want %q", p.Name, "SLES")
	}
	if p.Vendor != "SUSE LLC" {
		t.Errorf("vendor: got %q, want %q", p.Vendor, "SUSE LLC")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-product")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}

func TestSelect_Unauthorized(t *testing.T) {
	resp := doSend(t, http.MethodPost, "/api/products/SLES/select", nil, false)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

// TestSelectionLifecycle walks the full select / query / restore cycle
// against live server state. Subtests are ordered and must run as a unit.
func TestSelectionLifecycle(t *testing.T) {
	t.Run("initially not selected", func(t *testing.T) {
		resp := doGet(t, "/api/products/SLES")
		defer resp.Body.Close()

		p := decodeJSON[productResponse](t, resp)
		if p.Selected {
			t.Fatal("SLES selected before the test selected it")
		}
	})

	t.Run("no base selected yet", func(t *testing.T) {
		resp := doGet(t, "/api/base/selected")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("select", func(t *testing.T) {
		resp := doSend(t, http.MethodPost, "/api/products/SLES/select", nil, true)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}
	})

	t.Run("selected flag visible", func(t *testing.T) {
		resp := doGet(t, "/api/products/SLES")
		defer resp.Body.Close()

		p := decodeJSON[productResponse](t, resp)
		if !p.Selected {
			t.Fatal("SLES not reported selected after select")
		}
	})

	t.Run("base selected reports SLES", func(t *testing.T) {
		resp := doGet(t, "/api/base/selected")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		p := decodeJSON[productResponse](t, resp)
		if p.Name != "SLES" {
			t.Errorf("base selected: got %q, want %q", p.Name, "SLES")
		}
	})

	t.Run("restore", func(t *testing.T) {
		resp := doSend(t, http.MethodPost, "/api/products/SLES/restore", nil, true)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}
	})

	t.Run("restored to not selected", func(t *testing.T) {
		resp := doGet(t, "/api/products/SLES")
		defer resp.Body.Close()

		p := decodeJSON[productResponse](t, resp)
		if p.Selected {
			t.Fatal("SLES still selected after restore")
		}
	})
}
