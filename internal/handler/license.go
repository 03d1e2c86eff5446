package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"
)

// getLicense returns the license state of a product: the text to confirm
// (empty when no license is required), whether confirmation is mandatory,
// and whether it has already been given. The optional lang query parameter
// overrides the server display language.
func (h *Handler) getLicense(w http.ResponseWriter, r *http.Request) {
	p := h.findProduct(w, r)
	if p == nil {
		return
	}
	ctx := r.Context()

	text, err := p.License(ctx, r.URL.Query().Get("lang"))
	if err != nil {
		logError(r, "query license", err)
		writeError(w, http.StatusInternalServerError, "backend query failed")
		return
	}

	required, err := p.LicenseConfirmationRequired(ctx)
	if err != nil {
		logError(r, "query license requirement", err)
		writeError(w, http.StatusInternalServerError, "backend query failed")
		return
	}

	confirmed, err := p.LicenseConfirmed(ctx)
	if err != nil {
		logError(r, "query license confirmation", err)
		writeError(w, http.StatusInternalServerError, "backend query failed")
		return
	}

	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("text")
	if text != nil {
		e.Str(*text)
	} else {
		e.Null()
	}
	e.FieldStart("confirmation_required")
	e.Bool(required)
	e.FieldStart("confirmed")
	e.Bool(confirmed)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
}

// putLicenseConfirmation records the user's license decision. The body is
// {"confirmed": bool}.
func (h *Handler) putLicenseConfirmation(w http.ResponseWriter, r *http.Request) {
	p := h.findProduct(w, r)
	if p == nil {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<10))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}

	confirmed, ok := decodeConfirmation(body)
	if !ok {
		writeError(w, http.StatusBadRequest, `body must be {"confirmed": bool}`)
		return
	}

	if err := p.SetLicenseConfirmation(r.Context(), confirmed); err != nil {
		logError(r, "set license confirmation", err)
		writeError(w, http.StatusInternalServerError, "confirmation update failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeConfirmation parses {"confirmed": bool}, tolerating extra keys.
func decodeConfirmation(body []byte) (confirmed, ok bool) {
	d := jx.DecodeBytes(body)
	found := false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "confirmed" {
			return d.Skip()
		}
		v, err := d.Bool()
		if err != nil {
			return err
		}
		confirmed = v
		found = true
		return nil
	})
	return confirmed, err == nil && found
}
