package nitter

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"nitterscraper/pkg/config"
	"nitterscraper/pkg/errors"
	"nitterscraper/pkg/logger"
	"nitterscraper/pkg/mirror"
	"nitterscraper/pkg/models"
)

// DefaultJSONPath is used when no path template is configured
const DefaultJSONPath = "/api/{username}/tweets?count={count}"

// JSONClient queries a JSON bridge answering {"tweets": [...]}
type JSONClient struct {
	*client
	path string
}

// NewJSONClient creates a client for JSON bridges
func NewJSONClient(cfg config.FetchConfig, log logger.Logger, opts ...Option) *JSONClient {
	path := cfg.JSONPath
	if path == "" {
		path = DefaultJSONPath
	}
	return &JSONClient{
		client: newClient(cfg, log, "application/json", opts),
		path:   path,
	}
}

// FetchTweets requests the bridge once and keeps at most count posts
func (c *JSONClient) FetchTweets(ctx context.Context, term string, endpoint mirror.Endpoint, mode string, count int) (*Timeline, error) {
	if mode == "" {
		mode = ModeUser
	}
	replacer := strings.NewReplacer(
		"{username}", url.PathEscape(term),
		"{count}", strconv.Itoa(count),
		"{mode}", url.PathEscape(mode),
	)

	body, err := c.get(ctx, endpoint, endpoint.String()+replacer.Replace(c.path))
	if err != nil {
		return nil, err
	}

	timeline, err := DecodeTimeline(body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, endpoint.String(), err)
	}
	if len(timeline.Tweets) > count {
		timeline.Tweets = timeline.Tweets[:count]
	}
	return timeline, nil
}

// DecodeTimeline normalizes a bridge response. Anything that is valid JSON
// but not an object with a non-empty "tweets" array is an empty timeline.
// Non-object entries in the array are skipped.
func DecodeTimeline(raw []byte) (*Timeline, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New(errors.ErrorTypeParsing, 0, "", "response is not valid JSON")
	}

	timeline := &Timeline{}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return timeline, nil
	}
	tweets := root.Get("tweets")
	if !tweets.IsArray() {
		return timeline, nil
	}

	tweets.ForEach(func(_, value gjson.Result) bool {
		if value.IsObject() {
			timeline.Tweets = append(timeline.Tweets, objectFields(value))
		}
		return true
	})
	return timeline, nil
}

func objectFields(obj gjson.Result) *models.Fields {
	f := models.NewFields()
	obj.ForEach(func(key, value gjson.Result) bool {
		f.Set(key.String(), jsonValue(value))
		return true
	})
	return f
}

func jsonValue(v gjson.Result) interface{} {
	switch {
	case v.IsObject():
		return objectFields(v)
	case v.IsArray():
		items := []interface{}{}
		v.ForEach(func(_, item gjson.Result) bool {
			items = append(items, jsonValue(item))
			return true
		})
		return items
	}

	switch v.Type {
	case gjson.String:
		return v.String()
	case gjson.Number:
		if strings.ContainsAny(v.Raw, ".eE") {
			return v.Float()
		}
		return v.Int()
	case gjson.True:
		return true
	case gjson.False:
		return false
	default:
		return nil
	}
}
