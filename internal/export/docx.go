package export

import (
	"strings"

	"github.com/gomutex/godocx"

	"github.com/echopost/echopost/internal/store"
)

const (
	fontName = "Calibri"
	fontSize = 11
)

// writeDocx renders the post set as a styled docx document, one heading per
// platform followed by the post text.
func writeDocx(path string, postSet *store.PostSet) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	title := doc.AddParagraph("")
	title.AddText("Social Media Posts").Font(fontName).Size(16).Color("000000").Bold(true)

	subtitle := doc.AddParagraph("")
	subtitle.AddText("Tone: "+postSet.Tone).Font(fontName).Size(fontSize).Color("444444")

	for _, platform := range sortedPlatforms(postSet) {
		doc.AddParagraph("")

		heading := doc.AddParagraph("")
		heading.AddText(titleCase(platform)).Font(fontName).Size(13).Color("000000").Bold(true)

		for _, line := range strings.Split(postSet.PlatformPosts[platform], "\n") {
			p := doc.AddParagraph("")
			p.AddText(line).Font(fontName).Size(fontSize).Color("000000")
		}
	}

	return doc.SaveTo(path)
}
