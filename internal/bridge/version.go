package bridge

import (
	"regexp"

	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/rs/zerolog"
)

// Version identifies an engine release and the TraCI API level it speaks.
type Version struct {
	Release string
	API     int
	known   bool
	native  bool
}

var (
	// VersionUnknown is the result of looking up an unrecognized release.
	VersionUnknown = Version{Release: "unknown"}
	// VersionNotApplicable is reported by backends without a wire protocol.
	VersionNotApplicable = Version{Release: "n/a", native: true}
)

// KnownVersions lists supported releases from lowest to highest.
var KnownVersions = []Version{
	{Release: "1.0", API: protocol.API18, known: true},
	{Release: "1.1", API: protocol.API19, known: true},
	{Release: "1.2", API: protocol.API20, known: true},
	{Release: "1.3", API: protocol.API20, known: true},
	{Release: "1.4", API: protocol.API20, known: true},
	{Release: "1.5", API: protocol.API20, known: true},
	{Release: "1.6", API: protocol.API20, known: true},
	{Release: "1.7", API: protocol.API20, known: true},
	{Release: "1.8", API: protocol.API20, known: true},
	{Release: "1.9", API: protocol.API20, known: true},
	{Release: "1.10", API: protocol.API20, known: true},
	{Release: "1.11", API: protocol.API20, known: true},
	{Release: "1.12", API: protocol.API20, known: true},
	{Release: "1.13", API: protocol.API20, known: true},
	{Release: "1.14", API: protocol.API20, known: true},
	{Release: "1.15", API: protocol.API20, known: true},
	{Release: "1.16", API: protocol.API21, known: true},
	{Release: "1.17", API: protocol.API21, known: true},
	{Release: "1.18", API: protocol.API21, known: true},
	{Release: "1.19", API: protocol.API21, known: true},
	{Release: "1.20", API: protocol.API21, known: true},
}

func Lowest() Version {
	return KnownVersions[0]
}

func Highest() Version {
	return KnownVersions[len(KnownVersions)-1]
}

// Known reports whether v is one of KnownVersions.
func (v Version) Known() bool {
	return v.known
}

// Applicable is false for backends that do not negotiate a version.
func (v Version) Applicable() bool {
	return !v.native
}

// Supports reports whether commands requiring api may run against v.
func (v Version) Supports(api int) bool {
	return v.native || v.API >= api
}

func (v Version) String() string {
	return v.Release
}

var releasePattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.\d+)?`)

// LookupVersion finds the known release matching a reported version string
// such as "SUMO 1.14.1". Unrecognized releases yield VersionUnknown.
func LookupVersion(reported string) Version {
	m := releasePattern.FindStringSubmatch(reported)
	if m == nil {
		return VersionUnknown
	}
	release := m[1] + "." + m[2]
	for _, v := range KnownVersions {
		if v.Release == release {
			return v
		}
	}
	return VersionUnknown
}

// EngineVersion is the raw answer of a version query.
type EngineVersion struct {
	API     int
	Release string
}

// NegotiateVersion applies the acceptance rules for a reported version: an
// unknown release at the highest API, or any API above the highest, is
// accepted as Highest with a warning. Other unknown releases keep the
// reported API level.
func NegotiateVersion(reported EngineVersion, logger zerolog.Logger) Version {
	v := LookupVersion(reported.Release)
	highest := Highest()
	switch {
	case !v.known && reported.API == highest.API:
		logger.Warn().
			Str("release", reported.Release).
			Msg("engine release is not supported (but might work anyhow)")
		return highest
	case reported.API > highest.API:
		logger.Warn().
			Int("api", reported.API).
			Msg("TraCI API version is not supported (but might work anyhow)")
		return highest
	case !v.known:
		logger.Warn().
			Str("release", reported.Release).
			Int("api", reported.API).
			Msg("unknown engine release")
		return Version{Release: reported.Release, API: reported.API}
	default:
		return v
	}
}
