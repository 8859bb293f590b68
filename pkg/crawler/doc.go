// Package crawler drives image search queries from result page to saved file.
//
// A Batch runs queries in order. For each one it prepares the output
// directory and hands a fresh Session the shared BatchState, whose digest set
// suppresses identical content across the whole run. A Session pages through
// results, downloading each new link until its limit is reached.
//
// Empty result pages are handled by a BackoffController: the first pauses the
// crawl and retries the same page, a second before a few more downloads have
// succeeded ends the query.
//
// Basic usage:
//
//	batch := crawler.NewBatch(crawler.BatchOptions{Limit: 50, Adult: "off"}, crawler.Deps{
//		Pages:  bingClient,
//		Images: fetcher,
//		Dirs:   store,
//	})
//	results, err := batch.Run(ctx, []string{"cat", "red panda"})
package crawler
