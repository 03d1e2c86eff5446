package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/pkgforge/productd/internal/domain/product"
)

// writeJSON writes the encoder contents with a JSON content type.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes a {code, message} error body.
func writeError(w http.ResponseWriter, status int, message string) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, e)
}

// encodeProduct writes one product object: the record attributes, the
// derived label, and the live selection state.
func encodeProduct(e *jx.Encoder, p *product.Product, selected bool) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("version")
	e.Str(p.Version)
	e.FieldStart("arch")
	e.Str(p.Arch)
	e.FieldStart("vendor")
	e.Str(p.Vendor)
	e.FieldStart("category")
	e.Str(string(p.Category))
	e.FieldStart("label")
	e.Str(p.Label())
	e.FieldStart("selected")
	e.Bool(selected)
	e.ObjEnd()
}

// logError records a handler failure on the request-scoped logger.
func logError(r *http.Request, msg string, err error) {
	zctx.From(r.Context()).Error(msg, zap.Error(err))
}
