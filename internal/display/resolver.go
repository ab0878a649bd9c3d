package display

import "github.com/tbourn/go-remind-backend/internal/intent"

// DefaultPlaceholder stands in for the lip-sync video that an external
// pipeline renders for agent mode.
const DefaultPlaceholder = "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4"

// Inventory is the unseen media for one request, partitioned by kind.
// Each content id belongs to exactly one list.
type Inventory struct {
	Images           []string `json:"images"`
	HorizontalVideos []string `json:"horizontal_videos"`
	VerticalVideos   []string `json:"vertical_videos"`
}

// Empty reports whether the inventory holds no media at all.
func (inv Inventory) Empty() bool {
	return len(inv.Images) == 0 && len(inv.HorizontalVideos) == 0 && len(inv.VerticalVideos) == 0
}

// Result is a chosen mode with the media to show. Agent results always
// carry the placeholder; other modes may carry an empty list only when
// returned by Adjust with nothing left to show.
type Result struct {
	Mode  Mode     `json:"displayMode"`
	Media []string `json:"media"`
}

// Resolver turns intents and inventories into Results.
type Resolver struct {
	Placeholder string
}

// NewResolver returns a Resolver using placeholder for agent mode, or
// DefaultPlaceholder when it is empty.
func NewResolver(placeholder string) Resolver {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return Resolver{Placeholder: placeholder}
}

func (r Resolver) agent() Result {
	p := r.Placeholder
	if p == "" {
		p = DefaultPlaceholder
	}
	return Result{Mode: ModeAgent, Media: []string{p}}
}

// Resolve picks the mode for an intent given what is available.
//
// Conversation intents and interactive styles always start the agent.
// Otherwise the first match wins: a vertical video, a horizontal video,
// then photos by count (5+, 4, 3, and 1-2 shown under 3-pic). With nothing
// to show the agent is used so the topic can still be discussed.
func (r Resolver) Resolve(d intent.Descriptor, inv Inventory) Result {
	if d.Type == intent.TypeConversation || d.Style == intent.StyleInteractive {
		return r.agent()
	}
	if res, ok := firstVideo(inv.VerticalVideos, ModeVerticalVideo); ok {
		return res
	}
	if res, ok := firstVideo(inv.HorizontalVideos, ModeVideo); ok {
		return res
	}
	if res, ok := photoTier(inv.Images); ok {
		return res
	}
	return r.agent()
}

// Adjust reconciles a previously requested mode with the unseen inventory.
// Availability wins over the request:
//
//   - agent stays agent.
//   - a photo mode is honoured when enough images exist and is never
//     upgraded when more exist, so 3-pic with six images stays 3-pic.
//     A shortfall re-tiers the images that do exist. With no images it
//     falls back to a vertical, then a horizontal video.
//   - video prefers a horizontal clip, then a vertical one, then photos.
//   - vertical-video prefers a vertical clip, then a horizontal one, then
//     photos.
//
// When nothing at all can be shown, the requested mode comes back with an
// empty media list so the caller can tell the patient.
func (r Resolver) Adjust(requested Mode, inv Inventory) Result {
	switch {
	case requested == ModeAgent:
		return r.agent()

	case requested.IsPhoto():
		want := requested.PhotoCount()
		if len(inv.Images) >= want {
			return Result{Mode: requested, Media: clone(inv.Images[:want])}
		}
		if res, ok := photoTier(inv.Images); ok {
			return res
		}
		if res, ok := firstVideo(inv.VerticalVideos, ModeVerticalVideo); ok {
			return res
		}
		if res, ok := firstVideo(inv.HorizontalVideos, ModeVideo); ok {
			return res
		}

	case requested == ModeVideo:
		if res, ok := firstVideo(inv.HorizontalVideos, ModeVideo); ok {
			return res
		}
		if res, ok := firstVideo(inv.VerticalVideos, ModeVerticalVideo); ok {
			return res
		}
		if res, ok := photoTier(inv.Images); ok {
			return res
		}

	case requested == ModeVerticalVideo:
		if res, ok := firstVideo(inv.VerticalVideos, ModeVerticalVideo); ok {
			return res
		}
		if res, ok := firstVideo(inv.HorizontalVideos, ModeVideo); ok {
			return res
		}
		if res, ok := photoTier(inv.Images); ok {
			return res
		}

	default:
		// unknown modes get a fresh passive resolution
		return r.Resolve(intent.Descriptor{Type: intent.TypeMemoryReplay, Style: intent.StylePassive}, inv)
	}
	return Result{Mode: requested, Media: []string{}}
}

func firstVideo(videos []string, m Mode) (Result, bool) {
	if len(videos) == 0 {
		return Result{}, false
	}
	return Result{Mode: m, Media: []string{videos[0]}}, true
}

// photoTier applies the image-count tiers shared by Resolve and Adjust.
func photoTier(images []string) (Result, bool) {
	n := len(images)
	switch {
	case n >= 5:
		return Result{Mode: ModeFivePic, Media: clone(images[:5])}, true
	case n == 4:
		return Result{Mode: ModeFourPic, Media: clone(images)}, true
	case n >= 1:
		return Result{Mode: ModeThreePic, Media: clone(images[:min(n, 3)])}, true
	}
	return Result{}, false
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
