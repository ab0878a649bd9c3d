package display

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tbourn/go-remind-backend/internal/intent"
)

var passive = intent.Descriptor{Type: intent.TypeMemoryReplay, Style: intent.StylePassive}

func imgs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "i" + string(rune('1'+i))
	}
	return out
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode(" 4-PIC ")
	assert.True(t, ok)
	assert.Equal(t, ModeFourPic, m)

	_, ok = ParseMode("slideshow")
	assert.False(t, ok)

	assert.Equal(t, 5, ModeFivePic.PhotoCount())
	assert.False(t, ModeVideo.IsPhoto())
	assert.True(t, ModeVerticalVideo.IsVideo())
}

func TestResolve_Priority(t *testing.T) {
	r := NewResolver("")

	cases := map[string]struct {
		inv  Inventory
		want Result
	}{
		"ample images": {
			inv:  Inventory{Images: imgs(6)},
			want: Result{Mode: ModeFivePic, Media: imgs(5)},
		},
		"four images": {
			inv:  Inventory{Images: imgs(4)},
			want: Result{Mode: ModeFourPic, Media: imgs(4)},
		},
		"three images": {
			inv:  Inventory{Images: imgs(3)},
			want: Result{Mode: ModeThreePic, Media: imgs(3)},
		},
		"two images shown as 3-pic": {
			inv:  Inventory{Images: imgs(2)},
			want: Result{Mode: ModeThreePic, Media: imgs(2)},
		},
		"vertical video first": {
			inv:  Inventory{Images: imgs(5), HorizontalVideos: []string{"h1"}, VerticalVideos: []string{"v1", "v2"}},
			want: Result{Mode: ModeVerticalVideo, Media: []string{"v1"}},
		},
		"horizontal before photos": {
			inv:  Inventory{Images: imgs(5), HorizontalVideos: []string{"h1", "h2"}},
			want: Result{Mode: ModeVideo, Media: []string{"h1"}},
		},
		"nothing falls back to agent": {
			inv:  Inventory{},
			want: Result{Mode: ModeAgent, Media: []string{DefaultPlaceholder}},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Resolve(passive, tc.inv))
		})
	}
}

func TestResolve_ConversationAlwaysWins(t *testing.T) {
	r := NewResolver("https://cdn.example/agent.mp4")
	inv := Inventory{Images: imgs(5), VerticalVideos: []string{"v1"}}

	got := r.Resolve(intent.Descriptor{Type: intent.TypeConversation}, inv)
	assert.Equal(t, Result{Mode: ModeAgent, Media: []string{"https://cdn.example/agent.mp4"}}, got)

	got = r.Resolve(intent.Descriptor{Type: intent.TypeMemoryReplay, Style: intent.StyleInteractive}, inv)
	assert.Equal(t, ModeAgent, got.Mode)
}

func TestResolve_ZeroValueResolverUsesDefaultPlaceholder(t *testing.T) {
	var r Resolver
	got := r.Resolve(intent.Descriptor{Type: intent.TypeConversation}, Inventory{})
	assert.Equal(t, []string{DefaultPlaceholder}, got.Media)
}

func TestResolve_DoesNotAliasInventory(t *testing.T) {
	r := NewResolver("")
	inv := Inventory{Images: imgs(5)}

	got := r.Resolve(passive, inv)
	got.Media[0] = "changed"

	assert.Equal(t, "i1", inv.Images[0])
}

func TestAdjust(t *testing.T) {
	r := NewResolver("")

	cases := map[string]struct {
		requested Mode
		inv       Inventory
		want      Result
	}{
		"scarce images downgrade before video": {
			requested: ModeFourPic,
			inv:       Inventory{Images: imgs(2), HorizontalVideos: []string{"v1"}},
			want:      Result{Mode: ModeThreePic, Media: imgs(2)},
		},
		// a photo request is kept rather than upgraded when more images
		// exist; only a shortfall re-tiers (see Adjust)
		"enough images honour the request": {
			requested: ModeThreePic,
			inv:       Inventory{Images: imgs(6)},
			want:      Result{Mode: ModeThreePic, Media: imgs(3)},
		},
		"five requested four available": {
			requested: ModeFivePic,
			inv:       Inventory{Images: imgs(4)},
			want:      Result{Mode: ModeFourPic, Media: imgs(4)},
		},
		"photo request without images uses vertical video": {
			requested: ModeFivePic,
			inv:       Inventory{HorizontalVideos: []string{"h1"}, VerticalVideos: []string{"v1"}},
			want:      Result{Mode: ModeVerticalVideo, Media: []string{"v1"}},
		},
		"photo request with only horizontal video": {
			requested: ModeThreePic,
			inv:       Inventory{HorizontalVideos: []string{"h1"}},
			want:      Result{Mode: ModeVideo, Media: []string{"h1"}},
		},
		"video prefers horizontal": {
			requested: ModeVideo,
			inv:       Inventory{HorizontalVideos: []string{"h1"}, VerticalVideos: []string{"v1"}},
			want:      Result{Mode: ModeVideo, Media: []string{"h1"}},
		},
		"video falls to vertical": {
			requested: ModeVideo,
			inv:       Inventory{VerticalVideos: []string{"v1"}},
			want:      Result{Mode: ModeVerticalVideo, Media: []string{"v1"}},
		},
		"video falls to photos": {
			requested: ModeVideo,
			inv:       Inventory{Images: imgs(4)},
			want:      Result{Mode: ModeFourPic, Media: imgs(4)},
		},
		"vertical falls to horizontal": {
			requested: ModeVerticalVideo,
			inv:       Inventory{HorizontalVideos: []string{"h1"}},
			want:      Result{Mode: ModeVideo, Media: []string{"h1"}},
		},
		"vertical falls to photos": {
			requested: ModeVerticalVideo,
			inv:       Inventory{Images: imgs(1)},
			want:      Result{Mode: ModeThreePic, Media: imgs(1)},
		},
		"agent request keeps placeholder": {
			requested: ModeAgent,
			inv:       Inventory{Images: imgs(5)},
			want:      Result{Mode: ModeAgent, Media: []string{DefaultPlaceholder}},
		},
		"empty inventory keeps requested photo mode": {
			requested: ModeFourPic,
			inv:       Inventory{},
			want:      Result{Mode: ModeFourPic, Media: []string{}},
		},
		"empty inventory keeps requested video mode": {
			requested: ModeVerticalVideo,
			inv:       Inventory{Images: nil},
			want:      Result{Mode: ModeVerticalVideo, Media: []string{}},
		},
		"unknown mode resolves fresh": {
			requested: Mode("slideshow"),
			inv:       Inventory{Images: imgs(3)},
			want:      Result{Mode: ModeThreePic, Media: imgs(3)},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Adjust(tc.requested, tc.inv))
		})
	}
}

func TestInventory_Empty(t *testing.T) {
	assert.True(t, Inventory{}.Empty())
	assert.False(t, Inventory{VerticalVideos: []string{"v"}}.Empty())
}
