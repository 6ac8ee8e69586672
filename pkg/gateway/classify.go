package gateway

import (
	"strings"

	"guidecache/pkg/models"
)

// Class is the request class the gateway dispatches on. Every request maps
// to exactly one class, and each class has its own resolution policy.
type Class string

const (
	// ClassAsset covers media and content JSON under the asset paths.
	ClassAsset Class = "asset"
	// ClassStatic covers immutable build output, fonts and icons.
	ClassStatic Class = "static"
	// ClassPage covers navigable views.
	ClassPage Class = "page"
	// ClassDefault covers everything else.
	ClassDefault Class = "other"
)

var assetPrefixes = []string{"/audio/", "/images/", "/data/"}

var staticPrefixes = []string{"/static/", "/assets/", "/fonts/"}

// Classify maps a request path to its class.
func Classify(path string) Class {
	for _, p := range assetPrefixes {
		if strings.HasPrefix(path, p) {
			return ClassAsset
		}
	}
	for _, p := range staticPrefixes {
		if strings.HasPrefix(path, p) {
			return ClassStatic
		}
	}
	if path == "/favicon.ico" {
		return ClassStatic
	}
	if path == "/" {
		return ClassPage
	}
	if _, ok := pathLocale(path); ok {
		return ClassPage
	}
	return ClassDefault
}

// pathLocale extracts the locale from a page path like /en-GB/room/2.
func pathLocale(path string) (models.Locale, bool) {
	seg := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	l, err := models.ParseLocale(seg)
	if err != nil {
		return "", false
	}
	return l, true
}
