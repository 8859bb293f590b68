// Package bing talks to the image search engine's asynchronous results
// endpoint.
//
// Client.FetchPage requests one page of results and returns its HTML
// fragment untouched; ExtractLinks pulls full-size image URLs out of that
// fragment with a textual marker match rather than an HTML parser, so it
// keeps working on malformed markup.
//
//	client := bing.NewClient(httpClient, bing.WithLogger(log))
//	body, err := client.FetchPage(ctx, bing.PageRequest{
//		Query:  "cat",
//		Page:   0,
//		Limit:  100,
//		Adult:  "off",
//		Filter: bing.BuildFilter("photo", ""),
//	})
//	for link := range bing.ExtractLinks(body) {
//		...
//	}
package bing
