package check

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// xpathEvaluator fetches an XML document and selects nodes with a
// compiled XPath expression. Shared by the activity and wakeup variants.
type xpathEvaluator struct {
	fetcher    *fetcher
	expression string
	compiled   *xpath.Expr
}

func newXPathEvaluator(opts Options) (*xpathEvaluator, error) {
	expression, err := opts.RequiredString("xpath")
	if err != nil {
		return nil, err
	}

	compiled, err := xpath.Compile(expression)
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidOptions, err).WithData(expression)
	}

	f, err := newFetcher(opts)
	if err != nil {
		return nil, err
	}

	return &xpathEvaluator{fetcher: f, expression: expression, compiled: compiled}, nil
}

func (e *xpathEvaluator) evaluate(ctx context.Context) ([]*xmlquery.Node, error) {
	body, err := e.fetcher.fetch(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, Temporary("unable to parse XML from "+e.fetcher.url, err)
	}

	return xmlquery.QuerySelectorAll(doc, e.compiled), nil
}

// XPathActivity reports activity when the expression selects at least
// one node.
type XPathActivity struct {
	name string
	eval *xpathEvaluator
}

func NewXPathActivity(name string, opts Options) (Activity, error) {
	eval, err := newXPathEvaluator(opts)
	if err != nil {
		return nil, err
	}

	return &XPathActivity{name: name, eval: eval}, nil
}

func (c *XPathActivity) Name() string { return c.name }

func (c *XPathActivity) Check(ctx context.Context) (string, error) {
	nodes, err := c.eval.evaluate(ctx)
	if err != nil {
		return "", err
	}

	if len(nodes) > 0 {
		return "XPath matches for url " + c.eval.fetcher.url, nil
	}

	return "", nil
}

// XPathWakeup selects wake times from an XML document. Matched values
// are interpreted as UTC epoch seconds; the earliest wins.
type XPathWakeup struct {
	name string
	eval *xpathEvaluator
}

func NewXPathWakeup(name string, opts Options) (Wakeup, error) {
	eval, err := newXPathEvaluator(opts)
	if err != nil {
		return nil, err
	}

	return &XPathWakeup{name: name, eval: eval}, nil
}

func (c *XPathWakeup) Name() string { return c.name }

func (c *XPathWakeup) NextWakeup(ctx context.Context, _ time.Time) (time.Time, error) {
	nodes, err := c.eval.evaluate(ctx)
	if err != nil {
		return time.Time{}, err
	}

	var earliest time.Time
	for _, node := range nodes {
		at, err := parseEpoch(node.InnerText())
		if err != nil {
			return time.Time{}, err
		}
		if earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
	}

	return earliest, nil
}

// XPathDeltaWakeup is XPathWakeup with matched values interpreted as
// offsets from now in a configurable unit.
type XPathDeltaWakeup struct {
	name string
	eval *xpathEvaluator
	unit time.Duration
}

var deltaUnits = map[string]time.Duration{
	"microseconds": time.Microsecond,
	"milliseconds": time.Millisecond,
	"seconds":      time.Second,
	"minutes":      time.Minute,
	"hours":        time.Hour,
	"days":         24 * time.Hour,
	"weeks":        7 * 24 * time.Hour,
}

func NewXPathDeltaWakeup(name string, opts Options) (Wakeup, error) {
	unitName := strings.ToLower(opts.String("unit", "minutes"))
	unit, ok := deltaUnits[unitName]
	if !ok {
		return nil, errFactory.WithMessage(ErrInvalidOptions, "unsupported unit").WithData(unitName)
	}

	eval, err := newXPathEvaluator(opts)
	if err != nil {
		return nil, err
	}

	return &XPathDeltaWakeup{name: name, eval: eval, unit: unit}, nil
}

func (c *XPathDeltaWakeup) Name() string { return c.name }

func (c *XPathDeltaWakeup) NextWakeup(ctx context.Context, now time.Time) (time.Time, error) {
	nodes, err := c.eval.evaluate(ctx)
	if err != nil {
		return time.Time{}, err
	}

	var earliest time.Time
	for _, node := range nodes {
		value, err := strconv.ParseFloat(strings.TrimSpace(node.InnerText()), 64)
		if err != nil {
			return time.Time{}, Temporary("result cannot be parsed: "+node.InnerText(), err)
		}

		at := now.Add(time.Duration(value * float64(c.unit)))
		if earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
	}

	return earliest, nil
}
