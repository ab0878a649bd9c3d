// Package display decides how a response is presented to the patient.
//
// A Resolver maps an intent descriptor and the inventory of unseen media to
// exactly one display Mode plus the media to show with it. Everything here
// is pure: no I/O, no clock, no shared state. Nil or empty media lists count
// as zero available items.
package display

import "strings"

// Mode is the presentation format of one response.
type Mode string

const (
	ModeThreePic      Mode = "3-pic"
	ModeFourPic       Mode = "4-pic"
	ModeFivePic       Mode = "5-pic"
	ModeVideo         Mode = "video"
	ModeVerticalVideo Mode = "vertical-video"
	ModeAgent         Mode = "agent"
)

// Modes lists every mode in a stable order.
var Modes = []Mode{ModeThreePic, ModeFourPic, ModeFivePic, ModeVideo, ModeVerticalVideo, ModeAgent}

// ParseMode accepts a mode name, ignoring surrounding space and case.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// PhotoCount returns how many images a photo mode shows, or 0 for
// non-photo modes.
func (m Mode) PhotoCount() int {
	switch m {
	case ModeThreePic:
		return 3
	case ModeFourPic:
		return 4
	case ModeFivePic:
		return 5
	}
	return 0
}

// IsPhoto reports whether m is one of the n-pic modes.
func (m Mode) IsPhoto() bool { return m.PhotoCount() > 0 }

// IsVideo reports whether m plays a single stored video.
func (m Mode) IsVideo() bool { return m == ModeVideo || m == ModeVerticalVideo }

func (m Mode) String() string { return string(m) }
