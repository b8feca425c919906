package strm

import (
	"strings"

	"github.com/snapetech/m3u2strm/internal/catalog"
)

// RenderLive builds the aggregate live manifest. group-title is emitted only
// when includeGroup is set.
func RenderLive(channels []catalog.Item, includeGroup bool) []byte {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, ch := range channels {
		b.WriteString(`#EXTINF:-1 tvg-id="`)
		b.WriteString(ch.TVGID)
		b.WriteString(`" tvg-name="`)
		b.WriteString(ch.TVGName)
		b.WriteString(`" tvg-logo="`)
		b.WriteString(ch.TVGLogo)
		b.WriteByte('"')
		if includeGroup {
			b.WriteString(` group-title="`)
			b.WriteString(ch.GroupTitle)
			b.WriteByte('"')
		}
		b.WriteByte(',')
		b.WriteString(ch.Title)
		b.WriteByte('\n')
		b.WriteString(ch.URL)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
