// Package client is a Go HTTP client for the prodsearch API.
//
//	c, _ := client.New("http://localhost:8080", client.WithAPIKey(key))
//	res, _ := c.Search(ctx, client.SearchRequest{
//	    Query:   "wireless mouse",
//	    Filters: map[string]any{"platform": "amazon"},
//	    Limit:   client.Int(10),
//	})
//	for _, p := range res.Results {
//	    fmt.Println(p.Name, p.Score)
//	}
//
// Errors returned by the server are *APIError values. Use errors.Is with
// ErrValidation, ErrUnauthorized, ErrTimeout or ErrUnavailable to branch on them.
package client
