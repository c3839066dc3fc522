//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight per-request metadata: user-agent fingerprint, client IP,
//  and best-effort geolocation.  Submission handlers use the IP as the
//  rate-limit key and log the rest alongside each lead so the commercial
//  team can see where inquiries come from.  The structs are inert values,
//  safe to log or JSON-encode.
//

package requestinfo

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the parsed user-agent properties worth logging per lead.
type UA struct {
	Raw     string // Entire User-Agent header
	Browser string // "Chrome", "Firefox", "Safari", ...
	OS      string // "macOS", "Windows", "Android", ...
	Device  string // "Desktop", "Phone", "Tablet", ...
	IsBot   bool   // True if UA matches a known crawler signature
}

// Geo holds IP-based geolocation hints.  Best-effort; empty when no
// database is configured or the lookup misses.
type Geo struct {
	IP         net.IP
	CountryISO string // "MY", "SG", ...
}

// RequestInfo is stored in the request context by the Enrich middleware.
type RequestInfo struct {
	UA        UA
	Geo       Geo
	Timestamp time.Time
}

// ClientKey returns the string handlers key the rate limiter on.  Falls
// back to "unknown" when no address could be parsed, which groups such
// requests into one shared bucket.
func (ri *RequestInfo) ClientKey() string {
	if ri == nil || ri.Geo.IP == nil {
		return "unknown"
	}
	return ri.Geo.IP.String()
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// geoReader is a singleton MaxMind handle, safe for concurrent reads.
// Nil when geo tagging is disabled.
var geoReader *geoip2.Reader

// InitGeo opens the GeoLite2 database.  Call once from main; an empty
// path leaves geo tagging disabled.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoReader = r
	return nil
}

//
//  -----------------------------
//  Context plumbing
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich, or nil when
// the middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// parseUA converts a raw header into our UA struct using uasurfer.
func parseUA(uaHeader string) UA {
	u := uasurfer.Parse(uaHeader)

	osName := strings.TrimPrefix(u.OS.Name.String(), "OS")
	if osName == "MacOSX" {
		osName = "macOS"
	}

	return UA{
		Raw:     uaHeader,
		Browser: strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		OS:      osName,
		Device:  deviceTypeToString(u.DeviceType),
		IsBot:   u.IsBot(),
	}
}

// deviceTypeToString maps uasurfer.DeviceType to a user-friendly string.
func deviceTypeToString(dt uasurfer.DeviceType) string {
	switch dt {
	case uasurfer.DeviceComputer:
		return "Desktop"
	case uasurfer.DevicePhone:
		return "Phone"
	case uasurfer.DeviceTablet:
		return "Tablet"
	case uasurfer.DeviceTV:
		return "TV"
	default:
		return "Unknown"
	}
}

// lookupGeo returns best-effort Geo data using the global reader.
func lookupGeo(ip net.IP) Geo {
	if geoReader == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := geoReader.Country(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{IP: ip, CountryISO: rec.Country.IsoCode}
}
