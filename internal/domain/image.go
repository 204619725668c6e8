package domain

import (
	"encoding/base64"
	"strings"
)

const defaultImageMIME = "image/jpeg"

// ImageRef points at a product image: a remote URL, inline bytes, or both.
type ImageRef struct {
	URL      string
	Data     []byte
	MIMEType string
}

// ParseImageRef builds an ImageRef from a product image string.
// data: URLs with a base64 payload are decoded into inline bytes.
func ParseImageRef(raw string) ImageRef {
	ref := ImageRef{URL: raw}
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return ref
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return ref
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return ref
	}
	ref.Data = data
	ref.MIMEType = strings.TrimSuffix(meta, ";base64")
	return ref
}

// HasData reports whether inline bytes are available for vision analysis.
func (r ImageRef) HasData() bool { return len(r.Data) > 0 }

// DataURI encodes the inline bytes as a data: URI.
func (r ImageRef) DataURI() string {
	mime := r.MIMEType
	if mime == "" {
		mime = defaultImageMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Label is a short loggable identifier (never the inline payload).
func (r ImageRef) Label() string {
	if r.HasData() {
		return "inline:" + r.MIMEType
	}
	return r.URL
}
