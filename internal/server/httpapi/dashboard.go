package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const sampleCacheKey = "recent"

// dashboardTemplate renders the recent-message table server-side. No client
// state; refresh the page to refresh the data.
const dashboardTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>hq dashboard</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.6em; text-align: left; }
th { background: #f4f4f4; }
pre { white-space: pre-wrap; margin: 0; }
</style>
</head>
<body>
<h1>hq</h1>
<h2>recent messages</h2>
<table>
<thead>
<tr>
<th>queue</th>
<th>id</th>
<th>state</th>
<th>args</th>
<th>attempts</th>
<th>inserted_at</th>
<th>locked_at</th>
<th>completed_at</th>
<th>failed_at</th>
<th>updated_at</th>
</tr>
</thead>
<tbody>
{{range .Messages}}
<tr>
<td>{{.Queue}}</td>
<td>{{.ID}}</td>
<td>{{.StateOf}}</td>
<td><pre>{{.Args}}</pre></td>
<td>{{.Attempts}}</td>
<td>{{.InsertedAt}}</td>
<td>{{.LockedAt}}</td>
<td>{{.CompletedAt}}</td>
<td>{{.FailedAt}}</td>
<td>{{.UpdatedAt}}</td>
</tr>
{{end}}
</tbody>
</table>
</body>
</html>
`

// dashboard handles GET /web: a read-only HTML view of the most recently
// touched messages. Samples go through a short-TTL cache so aggressive page
// refreshing cannot hammer the store.
func (h *Handler) dashboard(c *gin.Context) {
	messages, ok := h.sampleCache.Get(sampleCacheKey)
	if !ok {
		var err error
		messages, err = h.engine.SampleRecent(c.Request.Context(), h.sampleLimit)
		if err != nil {
			h.writeError(c, err)
			return
		}
		h.sampleCache.Add(sampleCacheKey, messages)
	}

	c.HTML(http.StatusOK, "dashboard", gin.H{"Messages": messages})
}
