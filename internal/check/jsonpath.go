package check

import (
	"context"

	"github.com/tidwall/gjson"
)

// JSONPath reports activity when a path expression matches in a fetched
// JSON document. Paths use gjson syntax.
type JSONPath struct {
	name    string
	fetcher *fetcher
	path    string
}

func NewJSONPath(name string, opts Options) (Activity, error) {
	path, err := opts.RequiredString("jsonpath")
	if err != nil {
		return nil, err
	}

	f, err := newFetcher(opts)
	if err != nil {
		return nil, err
	}
	f.accept = "application/json"

	return &JSONPath{name: name, fetcher: f, path: path}, nil
}

func (c *JSONPath) Name() string { return c.name }

func (c *JSONPath) Check(ctx context.Context) (string, error) {
	body, err := c.fetcher.fetch(ctx)
	if err != nil {
		return "", err
	}

	if !gjson.ValidBytes(body) {
		return "", Temporary("response is not valid JSON", nil)
	}

	result := gjson.GetBytes(body, c.path)
	if result.Exists() && (!result.IsArray() || len(result.Array()) > 0) {
		return "json path " + c.path + " found elements", nil
	}

	return "", nil
}
