package message

import (
	"strconv"
	"strings"
)

// MediaType is a CoAP Content-Format identifier (RFC 7252 §12.3).
type MediaType uint16

// Minimum media type registry required by spec.md §6.
const (
	TextPlain     MediaType = 0
	AppLinkFormat MediaType = 40
	AppXML        MediaType = 41
	AppOctets     MediaType = 42
	AppExi        MediaType = 47
	AppJSON       MediaType = 50
)

type mediaTypeInfo struct {
	name string
	ext  string
}

var mediaTypeRegistry = map[MediaType]mediaTypeInfo{
	TextPlain:     {"text/plain;charset=utf-8", "txt"},
	AppLinkFormat: {"application/link-format", "wlnk"},
	AppXML:        {"application/xml", "xml"},
	AppOctets:     {"application/octet-stream", "bin"},
	AppExi:        {"application/exi", "exi"},
	AppJSON:       {"application/json", "json"},
}

// Name returns the IANA media type name for t, or "unknown/<n>" for an
// unregistered type (spec.md §6).
func Name(t MediaType) string {
	if info, ok := mediaTypeRegistry[t]; ok {
		return info.name
	}
	return "unknown/" + strconv.Itoa(int(t))
}

// FileExtension returns the conventional file extension for t, or "" if
// unregistered.
func FileExtension(t MediaType) string {
	return mediaTypeRegistry[t].ext
}

// IsPrintable reports whether t's representation is human-readable text.
func IsPrintable(t MediaType) bool {
	switch t {
	case TextPlain, AppLinkFormat, AppXML, AppJSON:
		return true
	default:
		return false
	}
}

// IsImage reports whether t is an image media type. None of the minimum
// registry entries are images; kept for callers that register additional
// types via a custom registry layered on top of this package.
func IsImage(t MediaType) bool {
	name := Name(t)
	return strings.HasPrefix(name, "image/")
}

// ParseMediaType looks up a MediaType by its exact IANA name, returning
// false if mime is not registered (spec.md §6's parse(mime)).
func ParseMediaType(mime string) (MediaType, bool) {
	for t, info := range mediaTypeRegistry {
		if info.name == mime {
			return t, true
		}
	}
	return 0, false
}

// ParseWildcard resolves a "type/*" or "*/*" Accept-style pattern against
// the registry, returning the first match found, or false if none does
// (spec.md §6's parseWildcard(pattern)). Iteration order over the
// registry is unspecified, matching the "first match" semantics the
// caller should not rely on for a specific tie-break.
func ParseWildcard(pattern string) (MediaType, bool) {
	if pattern == "*/*" {
		for t := range mediaTypeRegistry {
			return t, true
		}
		return 0, false
	}
	prefix := strings.TrimSuffix(pattern, "*")
	if prefix == pattern {
		return ParseMediaType(pattern)
	}
	for t, info := range mediaTypeRegistry {
		if strings.HasPrefix(info.name, prefix) {
			return t, true
		}
	}
	return 0, false
}
