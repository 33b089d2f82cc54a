// Package directory extracts foundation members from the Plone member
// directory: the listing page that links every active member, and the
// per-member profile pages.
package directory

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nzambello/plone-map/internal/fetcher"
)

const (
	// DefaultListingURL is the page that links every active member.
	DefaultListingURL = "https://plone.org/foundation/members"
	// DefaultProfilePrefix is stripped from profile URLs to form member ids.
	DefaultProfilePrefix = "https://plone.org/foundation/members/active-members"

	listingSelector = `article.tileItem a[title="FoundationMember"]`
	nameSelector    = "h1.documentFirstHeading"
	companySelector = "h1.documentFirstHeading + div > h3"
	venueSelector   = "h1.documentFirstHeading + div + div > h3"
)

var whitespace = regexp.MustCompile(`\s+`)

// Profile is the raw content of one member profile page.
type Profile struct {
	URL       string
	Name      string
	Company   string
	VenueName string
}

// Client reads the member directory through a Fetcher.
type Client struct {
	fetcher       fetcher.Fetcher
	listingURL    string
	profilePrefix string
}

// Option configures a Client.
type Option func(*Client)

// WithListingURL overrides the listing page URL.
func WithListingURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.listingURL = u
		}
	}
}

// WithProfilePrefix overrides the prefix stripped by MemberID.
func WithProfilePrefix(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.profilePrefix = p
		}
	}
}

// NewClient creates a directory client.
func NewClient(f fetcher.Fetcher, opts ...Option) *Client {
	c := &Client{
		fetcher:       f,
		listingURL:    DefaultListingURL,
		profilePrefix: DefaultProfilePrefix,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ListProfileURLs returns the href of every member link on the listing page,
// in document order. A page without member links yields an empty slice.
func (c *Client) ListProfileURLs(ctx context.Context) ([]string, error) {
	doc, err := c.document(ctx, c.listingURL)
	if err != nil {
		return nil, eris.Wrap(err, "directory: list profiles")
	}

	urls := []string{}
	doc.Find(listingSelector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			urls = append(urls, href)
		}
	})

	zap.L().Debug("directory: listing parsed",
		zap.String("url", c.listingURL),
		zap.Int("profiles", len(urls)),
	)
	return urls, nil
}

// FetchProfile downloads a profile page and extracts name, company and venue.
// Missing elements produce empty strings.
func (c *Client) FetchProfile(ctx context.Context, profileURL string) (*Profile, error) {
	doc, err := c.document(ctx, profileURL)
	if err != nil {
		return nil, eris.Wrapf(err, "directory: fetch profile %s", profileURL)
	}
	return &Profile{
		URL:       profileURL,
		Name:      normalizeText(doc.Find(nameSelector).Text()),
		Company:   normalizeText(doc.Find(companySelector).Text()),
		VenueName: normalizeText(doc.Find(venueSelector).Text()),
	}, nil
}

// MemberID removes the profile prefix from a profile URL.
func (c *Client) MemberID(profileURL string) string {
	return MemberID(profileURL, c.profilePrefix)
}

// MemberID removes the first occurrence of prefix from profileURL.
func MemberID(profileURL, prefix string) string {
	if prefix == "" {
		return profileURL
	}
	return strings.Replace(profileURL, prefix, "", 1)
}

func (c *Client) document(ctx context.Context, u string) (*goquery.Document, error) {
	body, err := c.fetcher.Download(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrapf(err, "parse html %s", u)
	}
	return doc, nil
}

func normalizeText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
