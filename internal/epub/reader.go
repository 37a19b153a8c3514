package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/charmbracelet/log"
)

// EPUB container errors
var (
	// ErrNoContainer indicates the archive has no META-INF/container.xml
	ErrNoContainer = errors.New("not an EPUB: missing META-INF/container.xml")

	// ErrNoRootfile indicates the container names no package document
	ErrNoRootfile = errors.New("container.xml names no rootfile")

	// ErrEmptySpine indicates the package document lists no reading order
	ErrEmptySpine = errors.New("package document has an empty spine")
)

const containerPath = "META-INF/container.xml"

// Book is the parsed EPUB content in reading order.
type Book struct {
	Title    string
	Language string
	Chapters []Chapter
}

// Chapter is one spine document reduced to plain text. Text keeps
// paragraph breaks as blank lines but carries no markup.
type Chapter struct {
	Title string
	Order int
	Text  string
}

// container mirrors META-INF/container.xml.
type container struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// packageDoc mirrors the parts of the OPF package document we use.
type packageDoc struct {
	Metadata struct {
		Titles    []string `xml:"title"`
		Languages []string `xml:"language"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemrefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// Read parses the EPUB at epubPath into spine-ordered chapters. Spine
// entries whose resource is missing from the archive are skipped, the
// way most readers treat them.
func Read(epubPath string) (*Book, error) {
	zr, err := zip.OpenReader(epubPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", epubPath, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var cont container
	if err := readXML(files, containerPath, &cont); err != nil {
		if errors.Is(err, errFileMissing) {
			return nil, ErrNoContainer
		}
		return nil, err
	}
	if len(cont.Rootfiles) == 0 || cont.Rootfiles[0].FullPath == "" {
		return nil, ErrNoRootfile
	}

	opfPath := cont.Rootfiles[0].FullPath
	var pkg packageDoc
	if err := readXML(files, opfPath, &pkg); err != nil {
		return nil, fmt.Errorf("reading package document %s: %w", opfPath, err)
	}
	if len(pkg.Spine.Itemrefs) == 0 {
		return nil, ErrEmptySpine
	}

	hrefs := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefs[item.ID] = item.Href
	}

	book := &Book{Title: first(pkg.Metadata.Titles), Language: first(pkg.Metadata.Languages)}
	opfDir := path.Dir(opfPath)

	for order, ref := range pkg.Spine.Itemrefs {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			log.Debug("Spine references unknown manifest item", "idref", ref.IDRef)
			continue
		}
		f := lookup(files, opfDir, href)
		if f == nil {
			log.Debug("Spine resource missing from archive", "href", href)
			continue
		}

		html, err := readAll(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		book.Chapters = append(book.Chapters, Chapter{
			Title: extractTitle(html, order),
			Order: order,
			Text:  extractText(strings.NewReader(html)),
		})
	}

	return book, nil
}

var errFileMissing = errors.New("file missing from archive")

// readXML decodes one archive member into dst.
func readXML(files map[string]*zip.File, name string, dst interface{}) error {
	f, ok := files[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, errFileMissing)
	}
	raw, err := readAll(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := xml.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// lookup resolves a manifest href, relative to the package document,
// to an archive member. Percent-encoded hrefs are retried decoded.
func lookup(files map[string]*zip.File, opfDir, href string) *zip.File {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	name := path.Clean(path.Join(opfDir, href))
	if f, ok := files[name]; ok {
		return f
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		if f, ok := files[decoded]; ok {
			return f
		}
	}
	return nil
}

func readAll(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
