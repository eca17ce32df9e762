package nitter

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"nitterscraper/pkg/config"
	"nitterscraper/pkg/errors"
	"nitterscraper/pkg/logger"
	"nitterscraper/pkg/mirror"
	"nitterscraper/pkg/models"
)

const (
	// canonicalHost is where post links point, whatever mirror served them
	canonicalHost = "https://twitter.com"
	// mediaHost serves images proxied by mirrors under /pic/
	mediaHost = "https://pbs.twimg.com"

	htmlAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// HTMLClient scrapes Nitter timeline pages
type HTMLClient struct {
	*client
}

// NewHTMLClient creates a client for Nitter HTML front-ends
func NewHTMLClient(cfg config.FetchConfig, log logger.Logger, opts ...Option) *HTMLClient {
	return &HTMLClient{client: newClient(cfg, log, htmlAccept, opts)}
}

// FetchTweets walks the timeline for term, following the cursor until count
// posts are collected or the mirror has no more pages.
func (c *HTMLClient) FetchTweets(ctx context.Context, term string, endpoint mirror.Endpoint, mode string, count int) (*Timeline, error) {
	pageURL, err := timelineURL(endpoint, term, mode)
	if err != nil {
		return nil, err
	}

	timeline := &Timeline{}
	seen := make(map[string]bool)
	for pageURL != "" && len(timeline.Tweets) < count {
		body, err := c.get(ctx, endpoint, pageURL)
		if err != nil {
			if len(timeline.Tweets) == 0 || ctx.Err() != nil {
				return nil, err
			}
			// Keep what earlier pages produced
			c.logger.WarnWithFields("stopping pagination after page error", map[string]interface{}{
				"term":     term,
				"endpoint": endpoint.String(),
				"error":    err.Error(),
			})
			break
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeParsing, endpoint.String(), fmt.Errorf("parse HTML: %w", err))
		}

		tweets := parseTimeline(doc, endpoint)
		added := 0
		for _, t := range tweets {
			link, _ := t.Get("link")
			if key, ok := link.(string); ok && key != "" {
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			timeline.Tweets = append(timeline.Tweets, t)
			added++
		}

		c.logger.DebugWithFields("parsed timeline page", map[string]interface{}{
			"term":     term,
			"endpoint": endpoint.String(),
			"found":    added,
			"total":    len(timeline.Tweets),
		})

		if added == 0 {
			break
		}
		next, err := nextPageURL(doc, pageURL)
		if err != nil || next == pageURL {
			break
		}
		pageURL = next
	}

	if len(timeline.Tweets) > count {
		timeline.Tweets = timeline.Tweets[:count]
	}
	return timeline, nil
}

// timelineURL builds the first page URL for a query
func timelineURL(endpoint mirror.Endpoint, term, mode string) (string, error) {
	switch mode {
	case "", ModeUser:
		return fmt.Sprintf("%s/%s", endpoint, url.PathEscape(term)), nil
	case ModeHashtag:
		q := url.Values{"f": {"tweets"}, "q": {"#" + strings.TrimLeft(term, "#")}}
		return fmt.Sprintf("%s/search?%s", endpoint, q.Encode()), nil
	case ModeTerm:
		q := url.Values{"f": {"tweets"}, "q": {term}}
		return fmt.Sprintf("%s/search?%s", endpoint, q.Encode()), nil
	default:
		return "", errors.New(errors.ErrorTypeUnknown, 0, endpoint.String(), fmt.Sprintf("unsupported mode %q", mode))
	}
}

// nextPageURL resolves the last "load more" link against the current page.
// The first .show-more on later pages points back to the newest posts.
func nextPageURL(doc *goquery.Document, current string) (string, error) {
	href, ok := doc.Find(".show-more a").Last().Attr("href")
	if !ok || !strings.Contains(href, "cursor=") {
		return "", fmt.Errorf("no cursor")
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// parseTimeline extracts every post on a page. Pages reporting no posts or an
// error panel yield nothing.
func parseTimeline(doc *goquery.Document, endpoint mirror.Endpoint) []*models.Fields {
	if doc.Find(".timeline-none, .error-panel").Length() > 0 {
		return nil
	}

	var tweets []*models.Fields
	doc.Find(".timeline-item").Each(func(_ int, item *goquery.Selection) {
		if item.HasClass("show-more") || item.Find(".tweet-link").Length() == 0 {
			return
		}
		tweets = append(tweets, parseTweet(item, endpoint))
	})
	return tweets
}

func parseTweet(item *goquery.Selection, endpoint mirror.Endpoint) *models.Fields {
	f := models.NewFields()

	href, _ := item.Find(".tweet-link").First().Attr("href")
	f.Set("link", canonicalLink(href))
	f.Set("text", cleanText(item.Find(".tweet-content").First().Text()))
	f.Set("user", parseUser(item.Find(".tweet-header").First(), endpoint))
	date, _ := outsideQuote(item.Find(".tweet-date a")).First().Attr("title")
	f.Set("date", date)
	f.Set("is-retweet", item.Find(".retweet-header").Length() > 0)
	f.Set("is-pinned", item.Find(".pinned").Length() > 0)
	f.Set("external-link", externalLink(item.Find(".tweet-content").First(), endpoint))
	f.Set("replying-to", replyingTo(item))
	f.Set("quoted-post", parseQuote(item.Find(".quote").First(), endpoint))
	f.Set("stats", parseStats(item.Find(".tweet-stats").First()))
	f.Set("pictures", mediaURLs(outsideQuote(item.Find(".attachment.image a.still-image")), "href", endpoint))
	f.Set("videos", mediaURLs(outsideQuote(item.Find(".attachment.video-container video source")), "src", endpoint))
	f.Set("gifs", mediaURLs(outsideQuote(item.Find(".attachment.gif video source")), "src", endpoint))
	return f
}

// outsideQuote drops elements that belong to a quoted post
func outsideQuote(sel *goquery.Selection) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Closest(".quote").Length() == 0
	})
}

func parseUser(header *goquery.Selection, endpoint mirror.Endpoint) *models.Fields {
	user := models.NewFields()
	user.Set("name", cleanText(header.Find(".fullname").First().Text()))
	user.Set("username", cleanText(header.Find(".username").First().Text()))
	avatar, _ := header.Find("img.avatar").First().Attr("src")
	user.Set("avatar", mediaURL(avatar, endpoint))
	return user
}

func parseQuote(quote *goquery.Selection, endpoint mirror.Endpoint) *models.Fields {
	q := models.NewFields()
	if quote.Length() == 0 {
		return q
	}
	href, _ := quote.Find(".quote-link").First().Attr("href")
	q.Set("link", canonicalLink(href))
	q.Set("text", cleanText(quote.Find(".quote-text").First().Text()))
	q.Set("user", parseUser(quote, endpoint))
	q.Set("pictures", mediaURLs(quote.Find(".attachment.image a.still-image"), "href", endpoint))
	return q
}

// parseStats reads the four counters in the order Nitter renders them
func parseStats(stats *goquery.Selection) *models.Fields {
	out := models.NewFields()
	icons := []struct{ class, name string }{
		{"icon-comment", "comments"},
		{"icon-retweet", "retweets"},
		{"icon-quote", "quotes"},
		{"icon-heart", "likes"},
	}
	for _, icon := range icons {
		stat := stats.Find("." + icon.class).First().Closest(".tweet-stat")
		out.Set(icon.name, parseCount(stat.Text()))
	}
	return out
}

func parseCount(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func replyingTo(item *goquery.Selection) []string {
	handles := []string{}
	item.Find(".replying-to a").Each(func(_ int, a *goquery.Selection) {
		if h := strings.TrimPrefix(cleanText(a.Text()), "@"); h != "" {
			handles = append(handles, h)
		}
	})
	return handles
}

// externalLink returns the first link in the post body that leaves the mirror
func externalLink(content *goquery.Selection, endpoint mirror.Endpoint) string {
	var link string
	content.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || !strings.HasPrefix(href, "http") || strings.HasPrefix(href, endpoint.String()) {
			return true
		}
		link = href
		return false
	})
	return link
}

func mediaURLs(sel *goquery.Selection, attr string, endpoint mirror.Endpoint) []string {
	urls := []string{}
	sel.Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok && v != "" {
			urls = append(urls, mediaURL(v, endpoint))
		}
	})
	return urls
}

// mediaURL maps a mirror proxy path back to the origin media URL.
// /pic/orig/media%2Fabc.jpg becomes https://pbs.twimg.com/media/abc.jpg and
// /pic/video.twimg.com%2Fx.mp4 becomes https://video.twimg.com/x.mp4.
func mediaURL(src string, endpoint mirror.Endpoint) string {
	if src == "" || strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	if !strings.HasPrefix(src, "/pic/") {
		return endpoint.String() + src
	}

	rest := strings.TrimPrefix(src, "/pic/")
	rest = strings.TrimPrefix(rest, "orig/")
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}
	first := rest
	if i := strings.Index(rest, "/"); i >= 0 {
		first = rest[:i]
	}
	if strings.Contains(first, ".") {
		return "https://" + rest
	}
	return mediaHost + "/" + rest
}

func canonicalLink(href string) string {
	if href == "" {
		return ""
	}
	return canonicalHost + strings.TrimSuffix(href, "#m")
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
