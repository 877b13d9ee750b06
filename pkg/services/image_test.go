package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"GemChat/models"
	"GemChat/pkg/cache"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

func newImageGateway(p TextProvider, opts ...GatewayOption) *Gateway {
	opts = append([]GatewayOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewGateway(p, zap.NewNop(), opts...)
}

func decodeSVG(t *testing.T, ref string) string {
	t.Helper()
	const prefix = "data:image/svg+xml;base64,"
	require.True(t, strings.HasPrefix(ref, prefix), ref)
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ref, prefix))
	require.NoError(t, err)
	return string(raw)
}

func TestGenerateImage_WithCaption(t *testing.T) {
	p := &stubProvider{reply: func(string) (string, error) { return "  A fox in snow.  ", nil }}
	g := newImageGateway(p)

	res := g.GenerateImage(context.Background(), "a red fox", "")
	require.Equal(t, "A fox in snow.", res.Content)
	require.Equal(t, "https://picsum.photos/500/400?random=1717230600000", res.ImageURL)
	require.Equal(t, "img_1717230600000", res.ID)
	require.Equal(t, models.MessageImage, res.MessageType)
	require.Equal(t, models.RoleAssistant, res.Role)
	require.Equal(t, fixedNow, res.CreatedAt)
	require.False(t, res.Degraded)
	require.Contains(t, p.lastPrompt(), `image that would show: "a red fox"`)
}

func TestGenerateImage_ProviderFailure(t *testing.T) {
	p := &stubProvider{reply: func(string) (string, error) { return "", errors.New("status 503: unavailable") }}
	g := newImageGateway(p)

	res := g.GenerateImage(context.Background(), "a red fox", "chat-1")
	require.True(t, res.Degraded)
	require.Equal(t, FallbackCaption("a red fox"), res.Content)
	require.Contains(t, res.Content, "a red fox")
	require.Contains(t, decodeSVG(t, res.ImageURL), "a red fox")
	require.Equal(t, models.MessageImage, res.MessageType)
	require.Equal(t, models.RoleAssistant, res.Role)
}

func TestGenerateImage_NeverEmpty(t *testing.T) {
	inputs := []string{"", "   ", strings.Repeat("very long prompt ", 200), `<script>&"'`}
	providers := []TextProvider{
		&stubProvider{},
		&stubProvider{reply: func(string) (string, error) { return "", nil }},
		&stubProvider{reply: func(string) (string, error) { return "", errors.New("boom") }},
		&panicProvider{},
	}
	for _, p := range providers {
		g := newImageGateway(p)
		for _, in := range inputs {
			res := g.GenerateImage(context.Background(), in, "")
			require.NotEmpty(t, res.Content)
			require.NotEmpty(t, res.ImageURL)
			require.NotEmpty(t, res.ID)
			require.Equal(t, models.MessageImage, res.MessageType)
			require.Equal(t, models.RoleAssistant, res.Role)
		}
	}
}

func TestGenerateImage_PanicFallback(t *testing.T) {
	g := newImageGateway(&panicProvider{})

	res := g.GenerateImage(context.Background(), "a red fox", "")
	require.True(t, strings.HasPrefix(res.ID, "fallback_"))
	require.Contains(t, res.Content, `I understand you want an image of: "a red fox"`)
	svg := decodeSVG(t, res.ImageURL)
	require.Contains(t, svg, "Temporarily Unavailable")
	require.Contains(t, svg, "a red fox")
}

func TestGenerateImage_EscapesSVGText(t *testing.T) {
	g := newImageGateway(&stubProvider{reply: func(string) (string, error) { return "", errors.New("x") }})

	res := g.GenerateImage(context.Background(), `<b>&fox</b>`, "")
	svg := decodeSVG(t, res.ImageURL)
	require.Contains(t, svg, "&lt;b&gt;&amp;fox&lt;/b&gt;")
	require.NotContains(t, svg, "<b>")
}

func TestGenerateImage_CachesCaption(t *testing.T) {
	p := &stubProvider{reply: func(string) (string, error) { return "caption", nil }}
	g := newImageGateway(p, WithCaptionCache(cache.New[string](10), time.Minute))

	g.GenerateImage(context.Background(), "a red fox", "")
	res := g.GenerateImage(context.Background(), "a red fox", "")
	require.Equal(t, "caption", res.Content)
	require.Equal(t, 1, p.calls())

	// failures are not cached
	f := &stubProvider{reply: func(string) (string, error) { return "", errors.New("x") }}
	g = newImageGateway(f, WithCaptionCache(cache.New[string](10), time.Minute))
	g.GenerateImage(context.Background(), "a red fox", "")
	g.GenerateImage(context.Background(), "a red fox", "")
	require.Equal(t, 2, f.calls())
}

func TestImageURL_Sources(t *testing.T) {
	require.Equal(t, "https://loremflickr.com/500/400/abstract,art?random=1717230600000", ImageURL(SourceLoremFlickr, "x", fixedNow))
	require.Equal(t, "https://placeholder.com/500x400/4285f4/ffffff?text=a%20red%20fox%20%26%20friends", ImageURL(SourcePlaceholder, "a red fox & friends", fixedNow))
	require.Contains(t, decodeSVG(t, ImageURL(SourceSVG, "a red fox", fixedNow)), "AI Generated Image")

	long := strings.Repeat("y", 40)
	require.True(t, strings.HasSuffix(ImageURL(SourcePlaceholder, long, fixedNow), "text="+strings.Repeat("y", 25)))

	g := newImageGateway(&stubProvider{}, WithImageSource(SourceLoremFlickr))
	require.True(t, strings.HasPrefix(g.GenerateImage(context.Background(), "x", "").ImageURL, "https://loremflickr.com/"))
}

func TestParseImageSource(t *testing.T) {
	require.Equal(t, SourceSVG, ParseImageSource(" SVG "))
	require.Equal(t, SourcePicsum, ParseImageSource("unknown"))
	require.Equal(t, SourcePlaceholder, ParseImageSource("placeholder"))
}

func TestGradientSVG_TruncatesPrompt(t *testing.T) {
	svg := decodeSVG(t, GradientSVG(strings.Repeat("z", 50)))
	require.Contains(t, svg, strings.Repeat("z", 30)+"</text>")
	require.NotContains(t, svg, strings.Repeat("z", 31))
}
