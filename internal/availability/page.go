package availability

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"catalogdesk-backend/lib/htmlutil"
	"catalogdesk-backend/lib/restyutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const quantitySelector = "#product-quantity-block"

var firstNumber = regexp.MustCompile(`\d+`)

// ParseQuantity reads the stock level off a product page. Products marked
// unavailable, without a quantity block, or only available tomorrow count
// as 0.
func ParseQuantity(doc *goquery.Document) int {
	block := doc.Find(quantitySelector).First()
	if block.Length() == 0 || block.HasClass("not_avail") {
		return 0
	}

	text := htmlutil.SelectionText(block)
	if strings.Contains(text, "Завтра") {
		return 0
	}

	if raw, ok := block.Attr("data-quantity"); ok && strings.TrimSpace(raw) != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err == nil {
			return int(v)
		}
	}

	match := firstNumber.FindString(text)
	if match == "" {
		return 0
	}
	v, _ := strconv.Atoi(match)
	return v
}

// PageChecker fetches every product page itself and parses the quantity
// block, a page that cannot be fetched counts as out of stock.
type PageChecker struct {
	client      *resty.Client
	concurrency int
}

func NewPageChecker(concurrency int, timeout time.Duration) PageChecker {
	if concurrency <= 0 {
		concurrency = 10
	}
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	client := resty.New()
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(timeout)
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)
	return PageChecker{client: client, concurrency: concurrency}
}

func (c PageChecker) check(ctx context.Context, url string) int {
	res, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch product page", "url", url, "err", err)
		return 0
	}
	if res.IsError() {
		slog.WarnContext(ctx, "failed to fetch product page", "url", url, "status", res.StatusCode())
		return 0
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		slog.WarnContext(ctx, "failed to parse product page", "url", url, "err", err)
		return 0
	}
	return ParseQuantity(doc)
}

func (c PageChecker) Check(ctx context.Context, urls []string, report func(Result)) error {
	semaphore := make(chan struct{}, c.concurrency)
	wg := sync.WaitGroup{}

	for _, url := range urls {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}

		wg.Add(1)
		go func(url string) {
			defer func() {
				<-semaphore
				wg.Done()
			}()
			availability := c.check(ctx, url)
			if ctx.Err() != nil {
				return
			}
			report(Result{URL: url, Availability: availability})
		}(url)
	}
	wg.Wait()
	return ctx.Err()
}
