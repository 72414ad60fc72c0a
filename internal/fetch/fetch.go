// Package fetch talks to a MediaWiki API: category member listings and
// rendered page HTML. Everything downstream (chunking, graph building)
// works on what this package returns.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wikigraph/backend/internal/util"
)

const (
	// MediaWiki namespaces we care about.
	NamespacePage     = 0
	NamespaceCategory = 14

	maxTries = 3
)

// CategoryMember is one entry of a category listing: either a page or a
// subcategory, distinguished by namespace.
type CategoryMember struct {
	Title     string `json:"title"`
	Namespace int    `json:"ns"`
}

// Client fetches from one MediaWiki instance.
type Client struct {
	httpClient *http.Client
	apiURL     string
	userAgent  string
}

func NewClient(apiURL string, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     apiURL,
		userAgent:  userAgent,
	}
}

type categoryMembersResponse struct {
	Continue struct {
		CmContinue string `json:"cmcontinue"`
	} `json:"continue"`
	Query struct {
		CategoryMembers []CategoryMember `json:"categorymembers"`
	} `json:"query"`
}

// CategoryMembers lists all pages and subcategories of a category,
// following API pagination to the end. The category name is given
// without the "Category:" prefix.
func (c *Client) CategoryMembers(ctx context.Context, category string) ([]CategoryMember, error) {
	var members []CategoryMember
	cmcontinue := ""
	for {
		query := url.Values{}
		query.Set("action", "query")
		query.Set("list", "categorymembers")
		query.Set("cmtitle", "Category:"+category)
		query.Set("cmlimit", "500")
		query.Set("format", "json")
		if cmcontinue != "" {
			query.Set("cmcontinue", cmcontinue)
		}

		var page categoryMembersResponse
		if err := c.getJSON(ctx, query, &page); err != nil {
			return nil, fmt.Errorf("failed to list members of category %q: %w", category, err)
		}
		if page.Query.CategoryMembers == nil {
			return nil, fmt.Errorf("malformed category response for %q: no categorymembers", category)
		}
		members = append(members, page.Query.CategoryMembers...)

		if page.Continue.CmContinue == "" {
			return members, nil
		}
		cmcontinue = page.Continue.CmContinue
	}
}

type parseResponse struct {
	Parse struct {
		Title string `json:"title"`
		Text  struct {
			Content string `json:"*"`
		} `json:"text"`
	} `json:"parse"`
	Error struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// PageHTML fetches the rendered HTML body of a page by title.
func (c *Client) PageHTML(ctx context.Context, title string) (string, error) {
	query := url.Values{}
	query.Set("action", "parse")
	query.Set("page", title)
	query.Set("prop", "text")
	query.Set("format", "json")

	var parsed parseResponse
	if err := c.getJSON(ctx, query, &parsed); err != nil {
		return "", fmt.Errorf("failed to fetch page %q: %w", title, err)
	}
	if parsed.Error.Code != "" {
		return "", fmt.Errorf("failed to fetch page %q: %s (%s)", title, parsed.Error.Info, parsed.Error.Code)
	}
	if parsed.Parse.Text.Content == "" {
		return "", fmt.Errorf("empty parse result for page %q", title)
	}
	return parsed.Parse.Text.Content, nil
}

func (c *Client) getJSON(ctx context.Context, query url.Values, out any) error {
	return util.RetryErrWithContext(ctx, maxTries, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+query.Encode(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// FilterMembers drops members whose title contains any of the exclude
// keywords, case-insensitively. An empty keyword list keeps everything.
func FilterMembers(members []CategoryMember, exclude []string) []CategoryMember {
	if len(exclude) == 0 {
		return members
	}
	kept := make([]CategoryMember, 0, len(members))
	for _, member := range members {
		lower := strings.ToLower(member.Title)
		skip := false
		for _, keyword := range exclude {
			if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, member)
		}
	}
	return kept
}

// CategoryName strips the "Category:" prefix from a member title.
func CategoryName(title string) string {
	return strings.TrimPrefix(title, "Category:")
}
