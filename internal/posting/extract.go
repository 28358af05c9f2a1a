package posting

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Extract parses a posting page and fills a Record from it. Fields that
// cannot be located are left empty.
func Extract(page, pageURL string) (*Record, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing posting html: %w", err)
	}

	profile := profileFor(SiteDomain(pageURL))

	record := Record{
		URL:            strings.TrimSpace(pageURL),
		Title:          findTitle(root, profile.titles),
		Salary:         findLabelled(root, salaryLabels),
		Location:       findLabelled(root, locationLabels),
		Qualifications: findLabelled(root, qualificationsLabels),
		FullText:       visibleText(root),
	}

	return &record, nil
}

// ImageURLs returns the absolute URLs of the img elements on a posting page in
// document order, without duplicates. Inline data: images are skipped.
func ImageURLs(page, pageURL string) ([]string, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing posting html: %w", err)
	}

	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return nil, fmt.Errorf("parsing page url: %w", err)
	}

	var urls []string
	seen := make(map[string]struct{})
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			if src := imageSource(n); src != "" {
				if ref, err := url.Parse(src); err == nil {
					abs := base.ResolveReference(ref).String()
					if _, ok := seen[abs]; !ok {
						seen[abs] = struct{}{}
						urls = append(urls, abs)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return urls, nil
}

// imageSource prefers src and falls back to data-src used by lazy loaders.
func imageSource(n *html.Node) string {
	var src, lazy string
	for _, attr := range n.Attr {
		switch attr.Key {
		case "src":
			src = strings.TrimSpace(attr.Val)
		case "data-src":
			lazy = strings.TrimSpace(attr.Val)
		}
	}
	if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
		src = lazy
	}
	if strings.HasPrefix(strings.ToLower(src), "data:") {
		return ""
	}
	return src
}

func findTitle(root *html.Node, selectors []selector) string {
	for _, sel := range selectors {
		if n := findFirst(root, func(n *html.Node) bool { return matches(n, sel) }); n != nil {
			if text := visibleText(n); text != "" {
				return text
			}
		}
	}
	return ""
}

// findLabelled looks for a th/dt cell whose text contains one of labels and
// returns the text of the td/dd that follows it.
func findLabelled(root *html.Node, labels []string) string {
	for _, label := range labels {
		cell := findFirst(root, func(n *html.Node) bool {
			if n.Type != html.ElementNode || (n.DataAtom != atom.Th && n.DataAtom != atom.Dt) {
				return false
			}
			return strings.Contains(visibleText(n), label)
		})
		if cell == nil {
			continue
		}

		want := atom.Td
		if cell.DataAtom == atom.Dt {
			want = atom.Dd
		}
		for sib := cell.NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.ElementNode && sib.DataAtom == want {
				if text := visibleText(sib); text != "" {
					return text
				}
				break
			}
		}
	}
	return ""
}

func matches(n *html.Node, sel selector) bool {
	if n.Type != html.ElementNode || n.Data != sel.tag {
		return false
	}
	if sel.class == "" {
		return true
	}
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == sel.class {
				return true
			}
		}
	}
	return false
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// visibleText joins the non-empty text nodes under n with single spaces,
// skipping script, style and noscript content.
func visibleText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
