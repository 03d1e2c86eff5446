//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestGetLicense(t *testing.T) {
	resp := doGet(t, "/api/products/SLES/license")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	lic := decodeJSON[licenseResponse](t, resp)
	if lic.Name != "SLES" {
		t.Errorf("name: got %q, want %q", lic.Name, "SLES")
	}
	if lic.Text == nil || !strings.Contains(*lic.Text, "SUSE End User License Agreement") {
		t.Error("license text missing or wrong")
	}
	if !lic.ConfirmationRequired {
		t.Error("SLES license should require confirmation")
	}
}

func TestGetLicense_Language(t *testing.T) {
	resp := doGet(t, "/api/products/openSUSE-Leap/license?lang=de_DE")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	lic := decodeJSON[licenseResponse](t, resp)
	if lic.Text == nil || !strings.Contains(*lic.Text, "LIZENZVEREINBARUNG") {
		t.Error("expected the German license text")
	}
	if lic.ConfirmationRequired {
		t.Error("openSUSE-Leap license should not require confirmation")
	}
}

func TestGetLicense_FallsBackToDefaultLanguage(t *testing.T) {
	// No Czech translation is seeded, so the default language text is served.
	resp := doGet(t, "/api/products/SLES/license?lang=cs_CZ")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	lic := decodeJSON[licenseResponse](t, resp)
	if lic.Text == nil || !strings.Contains(*lic.Text, "SUSE End User License Agreement") {
		t.Error("expected the default language license text")
	}
}

func TestGetLicense_NoLicense(t *testing.T) {
	resp := doGet(t, "/api/products/sle-module-development-tools/license")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	lic := decodeJSON[licenseResponse](t, resp)
	if lic.Text == nil || *lic.Text != "" {
		t.Error("expected an empty license text for a product without a license")
	}
	if lic.ConfirmationRequired {
		t.Error("no confirmation should be required without a license")
	}
}

func TestPutLicenseConfirmation_Unauthorized(t *testing.T) {
	resp := doSend(t, http.MethodPut, "/api/products/SLES/license/confirmation",
		map[string]bool{"confirmed": true}, false)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPutLicenseConfirmation_BadBody(t *testing.T) {
	resp := doSend(t, http.MethodPut, "/api/products/SLES/license/confirmation",
		map[string]string{"confirmed": "yes"}, true)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// TestLicenseConfirmationLifecycle confirms and revokes the SLES license,
// checking the persisted flag after each step.
func TestLicenseConfirmationLifecycle(t *testing.T) {
	confirm := func(t *testing.T, confirmed bool) {
		t.Helper()
		resp := doSend(t, http.MethodPut, "/api/products/SLES/license/confirmation",
			map[string]bool{"confirmed": confirmed}, true)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}
	}
	confirmedState := func(t *testing.T) bool {
		t.Helper()
		resp := doGet(t, "/api/products/SLES/license")
		defer resp.Body.Close()

		return decodeJSON[licenseResponse](t, resp).Confirmed
	}

	confirm(t, true)
	if !confirmedState(t) {
		t.Fatal("license not reported confirmed after confirmation")
	}

	confirm(t, false)
	if confirmedState(t) {
		t.Fatal("license still reported confirmed after revocation")
	}
}
