package seeder

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const userAgent = "careroute-seeder/1.0"

// noise is stripped from a page before its text is read.
const noise = "script, style, noscript, nav, header, footer, aside, form, .navbox, .toc, .breadcrumb, .cookie-banner"

// Page is the readable content of one policy page.
type Page struct {
	URL      string
	Title    string
	Content  string
	Sections []Section
}

type Section struct {
	Title   string
	Anchor  string
	Content string
}

type ScraperOptions struct {
	Delay   time.Duration
	Timeout time.Duration
}

// Scraper fetches policy pages with colly and reads them with goquery.
type Scraper struct {
	opts      ScraperOptions
	processor *ContentProcessor
}

func NewScraper(opts ScraperOptions) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Scraper{opts: opts, processor: NewContentProcessor()}
}

// Scrape visits one URL. Each call gets a fresh collector so revisits of the
// same URL across runs are allowed.
func (s *Scraper) Scrape(url string) (*Page, error) {
	var page *Page
	var processingError error

	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       s.opts.Delay,
	})
	c.SetRequestTimeout(s.opts.Timeout)

	c.OnHTML("html", func(e *colly.HTMLElement) {
		page = s.readPage(url, e.DOM)
	})

	c.OnError(func(r *colly.Response, err error) {
		processingError = err
	})

	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("failed to visit page: %w", err)
	}
	if processingError != nil {
		return nil, fmt.Errorf("processing error: %w", processingError)
	}
	if page == nil || page.Content == "" {
		return nil, fmt.Errorf("no content extracted from %s", url)
	}

	return page, nil
}

func (s *Scraper) readPage(url string, doc *goquery.Selection) *Page {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		title = h1
	}
	if title == "" {
		title = url
	}

	doc.Find(noise).Remove()

	root := doc.Find("main, article, #content").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var blocks []string
	root.Find("h1, h2, h3, h4, p, li, td").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) == 0 {
		blocks = append(blocks, root.Text())
	}

	return &Page{
		URL:      url,
		Title:    title,
		Content:  s.processor.CleanContent(strings.Join(blocks, "\n\n")),
		Sections: s.extractSections(root),
	}
}

func (s *Scraper) extractSections(root *goquery.Selection) []Section {
	var sections []Section

	root.Find("h2, h3").Each(func(_ int, heading *goquery.Selection) {
		title := strings.TrimSpace(heading.Text())
		if title == "" {
			return
		}
		anchor, _ := heading.Attr("id")

		var content strings.Builder
		heading.NextUntil("h2, h3").Each(func(_ int, sibling *goquery.Selection) {
			if sibling.Is("table") {
				return
			}
			if text := strings.TrimSpace(sibling.Text()); text != "" {
				content.WriteString(text + "\n")
			}
		})

		body := s.processor.CleanContent(content.String())
		// skip headings with only a line or two under them
		if len(body) > 50 {
			sections = append(sections, Section{Title: title, Anchor: anchor, Content: body})
		}
	})

	return sections
}
